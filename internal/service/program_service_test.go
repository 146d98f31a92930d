package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
	"alcyxob/trainer-core/internal/testutil"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestProgram_CreateAndAssignTwelveWeeks(t *testing.T) {
	e := newEnv(t)
	svc := service.NewProgramService(e.repos, logger.NewNop())
	bench := testutil.SeedExercise(t, e.ctx, e.repos, e.trainer)

	tree, err := svc.CreateProgram(e.ctx, e.trainer, service.CreateProgramInput{
		Name:          "Hypertrophy block",
		DurationWeeks: 12,
		Weeks: []service.ProgramWeekInput{
			{WeekNumber: 4, Name: "Deload", IsDeload: true},
			{WeekNumber: 1, Name: "Base", Workouts: []service.ProgramWorkoutInput{{
				DayNumber: 1,
				Name:      "Push",
				Exercises: []service.WorkoutExerciseInput{{
					ExerciseID: bench.ID,
					Sets: []service.SetConfigurationInput{
						{Reps: "8-10", WeightKg: testutil.FloatPtr(60)},
						{Reps: "8-10", WeightKg: testutil.FloatPtr(62.5)},
						{Reps: "AMRAP"},
					},
				}},
			}}},
		},
	})
	require.NoError(t, err)
	require.Len(t, tree.Weeks, 2)
	assert.Equal(t, 1, tree.Weeks[0].WeekNumber)
	require.Len(t, tree.Configurations, 3)
	assert.Equal(t, 3, tree.Configurations[2].SetNumber)

	stored, err := svc.GetProgram(e.ctx, e.trainer, tree.Program.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Workouts, 1)
	assert.Len(t, stored.Exercises, 1)

	start := mustDate(t, "2026-02-20")
	res, err := svc.AssignProgram(e.ctx, e.trainer, tree.Program.ID, service.AssignProgramInput{
		ClientID:  e.client,
		StartDate: start,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-05-15", res.Assignment.EndDate.Format(domain.DateLayout))
	assert.Equal(t, 84, int(res.Assignment.EndDate.Sub(res.Assignment.StartDate).Hours()/24))
	assert.True(t, res.Assignment.IsActive)

	require.Len(t, res.Schedule, 12)
	assert.Equal(t, "2026-02-20", res.Schedule[0].StartDate.Format(domain.DateLayout))
	assert.Equal(t, "2026-05-14", res.Schedule[11].EndDate.Format(domain.DateLayout))
	assert.True(t, res.Schedule[3].IsDeload)
	assert.False(t, res.Schedule[4].IsDeload)

	trainerView, err := svc.ListAssignments(e.ctx, e.trainerP())
	require.NoError(t, err)
	assert.Len(t, trainerView, 1)
	clientView, err := svc.ListAssignments(e.ctx, e.clientP())
	require.NoError(t, err)
	require.Len(t, clientView, 1)
	assert.Equal(t, res.Assignment.ID, clientView[0].ID)
}

func TestProgram_Validation(t *testing.T) {
	e := newEnv(t)
	svc := service.NewProgramService(e.repos, logger.NewNop())
	foreign := testutil.SeedExercise(t, e.ctx, e.repos, uuid.NewString())

	_, err := svc.CreateProgram(e.ctx, e.trainer, service.CreateProgramInput{Name: " ", DurationWeeks: 4})
	assert.ErrorIs(t, err, service.ErrProgramNameRequired)

	_, err = svc.CreateProgram(e.ctx, e.trainer, service.CreateProgramInput{Name: "x", DurationWeeks: 0})
	assert.ErrorIs(t, err, service.ErrInvalidDuration)

	_, err = svc.CreateProgram(e.ctx, e.trainer, service.CreateProgramInput{
		Name: "x", DurationWeeks: 2,
		Weeks: []service.ProgramWeekInput{{WeekNumber: 1}, {WeekNumber: 1}},
	})
	assert.ErrorIs(t, err, service.ErrInvalidWeekNumber)

	_, err = svc.CreateProgram(e.ctx, e.trainer, service.CreateProgramInput{
		Name: "x", DurationWeeks: 2,
		Weeks: []service.ProgramWeekInput{{WeekNumber: 3}},
	})
	assert.ErrorIs(t, err, service.ErrInvalidWeekNumber)

	_, err = svc.CreateProgram(e.ctx, e.trainer, service.CreateProgramInput{
		Name: "x", DurationWeeks: 1,
		Weeks: []service.ProgramWeekInput{{WeekNumber: 1, Workouts: []service.ProgramWorkoutInput{{
			DayNumber: 1,
			Exercises: []service.WorkoutExerciseInput{{ExerciseID: foreign.ID}},
		}}}},
	})
	assert.ErrorIs(t, err, service.ErrExerciseNotInCatalog)

	programs, err := svc.ListPrograms(e.ctx, e.trainer)
	require.NoError(t, err)
	assert.Empty(t, programs)
}

func TestProgram_AssignRequiresOwnershipAndRelation(t *testing.T) {
	e := newEnv(t)
	svc := service.NewProgramService(e.repos, logger.NewNop())
	tree := testutil.SeedProgram(t, e.ctx, e.repos, e.trainer, 4)
	start := monday

	_, err := svc.AssignProgram(e.ctx, uuid.NewString(), tree.Program.ID, service.AssignProgramInput{ClientID: e.client, StartDate: start})
	assert.ErrorIs(t, err, service.ErrProgramNotFound)

	_, err = svc.AssignProgram(e.ctx, e.trainer, tree.Program.ID, service.AssignProgramInput{ClientID: uuid.NewString(), StartDate: start})
	assert.ErrorIs(t, err, service.ErrClientNotManaged)

	_, err = svc.AssignProgram(e.ctx, e.trainer, tree.Program.ID, service.AssignProgramInput{ClientID: e.client})
	assert.ErrorIs(t, err, service.ErrStartDateRequired)

	_, err = svc.GetProgram(e.ctx, e.trainer, uuid.NewString())
	assert.ErrorIs(t, err, service.ErrProgramNotFound)
}
