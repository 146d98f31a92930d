package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var base = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // a Monday

func newAppointment(trainerID string, start, end time.Time) *domain.Appointment {
	a := &domain.Appointment{
		TrainerID:       trainerID,
		ClientID:        uuid.NewString(),
		Title:           "Session",
		AppointmentType: domain.AppointmentOneOnOne,
		Status:          domain.AppointmentScheduled,
	}
	a.SetInterval(start, end)
	return a
}

func TestAppointments_NoOverlapConstraint(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	trainer := uuid.NewString()

	first := newAppointment(trainer, base, base.Add(time.Hour))
	require.NoError(t, repos.Appointments.Create(ctx, first))

	// touching intervals do not overlap
	next := newAppointment(trainer, base.Add(time.Hour), base.Add(2*time.Hour))
	require.NoError(t, repos.Appointments.Create(ctx, next))

	clash := newAppointment(trainer, base.Add(30*time.Minute), base.Add(90*time.Minute))
	err := repos.Appointments.Create(ctx, clash)
	assert.True(t, errors.Is(err, repository.ErrConflict), "got %v", err)

	// another trainer's calendar is independent
	other := newAppointment(uuid.NewString(), base, base.Add(time.Hour))
	require.NoError(t, repos.Appointments.Create(ctx, other))

	// cancelled rows never block
	cancelled := newAppointment(trainer, base, base.Add(time.Hour))
	cancelled.Status = domain.AppointmentCancelled
	require.NoError(t, repos.Appointments.Create(ctx, cancelled))
}

func TestAppointments_UpdateConstraint(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	trainer := uuid.NewString()

	a := newAppointment(trainer, base, base.Add(time.Hour))
	b := newAppointment(trainer, base.Add(2*time.Hour), base.Add(3*time.Hour))
	require.NoError(t, repos.Appointments.Create(ctx, a))
	require.NoError(t, repos.Appointments.Create(ctx, b))

	// shifting within its own old slot is fine
	a.SetInterval(base.Add(15*time.Minute), base.Add(75*time.Minute))
	require.NoError(t, repos.Appointments.Update(ctx, a))

	b.SetInterval(base.Add(75*time.Minute), base.Add(135*time.Minute))
	require.NoError(t, repos.Appointments.Update(ctx, b))

	b.SetInterval(base.Add(30*time.Minute), base.Add(90*time.Minute))
	err := repos.Appointments.Update(ctx, b)
	assert.True(t, errors.Is(err, repository.ErrConflict), "got %v", err)

	// once a is cancelled its slot is free
	a.Status = domain.AppointmentCancelled
	require.NoError(t, repos.Appointments.Update(ctx, a))
	require.NoError(t, repos.Appointments.Update(ctx, b))

	stored, err := repos.Appointments.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartDatetime.Equal(base.Add(30*time.Minute)))
	assert.Equal(t, 60, stored.DurationMinutes)
}

func TestAppointments_FindConflict(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	trainer := uuid.NewString()

	a := newAppointment(trainer, base, base.Add(time.Hour))
	require.NoError(t, repos.Appointments.Create(ctx, a))

	found, err := repos.Appointments.FindConflict(ctx, trainer, base.Add(59*time.Minute), base.Add(2*time.Hour), "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, a.ID, found.ID)

	found, err = repos.Appointments.FindConflict(ctx, trainer, base.Add(time.Hour), base.Add(2*time.Hour), "")
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repos.Appointments.FindConflict(ctx, trainer, base, base.Add(time.Hour), a.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAppointments_ListFilters(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	trainer := uuid.NewString()

	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, repos.Appointments.Create(ctx, newAppointment(trainer, start, start.Add(time.Hour))))
	}

	from := base.Add(12 * time.Hour)
	appts, total, err := repos.Appointments.List(ctx, repository.AppointmentFilter{
		TrainerID: trainer,
		From:      &from,
		Page:      repository.Page{Limit: 1},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, appts, 1)
	assert.True(t, appts[0].StartDatetime.Equal(base.Add(24*time.Hour)))

	_, err = repos.Appointments.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAvailability_UpsertKeepsSlot(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	trainer := uuid.NewString()

	slot := &domain.AvailabilitySlot{TrainerID: trainer, DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsAvailable: true}
	require.NoError(t, repos.Availability.Upsert(ctx, slot))
	firstID := slot.ID

	again := &domain.AvailabilitySlot{TrainerID: trainer, DayOfWeek: 1, StartTime: "09:00", EndTime: "13:00", IsAvailable: true}
	require.NoError(t, repos.Availability.Upsert(ctx, again))
	assert.Equal(t, firstID, again.ID)
	assert.Equal(t, "13:00", again.EndTime)

	slots, err := repos.Availability.ListByTrainerDay(ctx, trainer, 1)
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	require.NoError(t, repos.Availability.Delete(ctx, firstID))
	assert.ErrorIs(t, repos.Availability.Delete(ctx, firstID), repository.ErrNotFound)
}

func newSession(clientID string) *domain.WorkoutSession {
	return &domain.WorkoutSession{
		ClientID:        clientID,
		Status:          domain.SessionInProgress,
		ActualStartTime: base,
	}
}

func TestSessions_SingleActivePerClient(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	client := uuid.NewString()

	active := newSession(client)
	require.NoError(t, repos.Sessions.Create(ctx, active))

	err := repos.Sessions.Create(ctx, newSession(client))
	assert.ErrorIs(t, err, repository.ErrConflict)

	// other clients are unaffected
	require.NoError(t, repos.Sessions.Create(ctx, newSession(uuid.NewString())))

	got, err := repos.Sessions.GetActiveByClient(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	end := base.Add(time.Hour)
	active.Status = domain.SessionCompleted
	active.ActualEndTime = &end
	require.NoError(t, repos.Sessions.Update(ctx, active))

	_, err = repos.Sessions.GetActiveByClient(ctx, client)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, repos.Sessions.Create(ctx, newSession(client)))
}

func TestSetLogs_UniqueSetNumber(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)

	session := newSession(uuid.NewString())
	require.NoError(t, repos.Sessions.Create(ctx, session))

	idx, err := repos.ExerciseLogs.MaxOrderIndex(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, idx)

	logs := []domain.ExerciseLog{
		{SessionID: session.ID, ExerciseID: uuid.NewString(), OrderIndex: 0},
		{SessionID: session.ID, ExerciseID: uuid.NewString(), OrderIndex: 1},
	}
	require.NoError(t, repos.ExerciseLogs.CreateMany(ctx, logs))

	idx, err = repos.ExerciseLogs.MaxOrderIndex(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	set := &domain.SetLog{ExerciseLogID: logs[0].ID, SessionID: session.ID, SetNumber: 2,
		Reps: testutil.IntPtr(5), WeightKg: testutil.FloatPtr(100)}
	require.NoError(t, repos.SetLogs.Create(ctx, set))

	dup := &domain.SetLog{ExerciseLogID: logs[0].ID, SessionID: session.ID, SetNumber: 2}
	assert.ErrorIs(t, repos.SetLogs.Create(ctx, dup), repository.ErrConflict)

	// out of order numbers and the same number on another log are accepted
	require.NoError(t, repos.SetLogs.Create(ctx, &domain.SetLog{ExerciseLogID: logs[0].ID, SessionID: session.ID, SetNumber: 1}))
	require.NoError(t, repos.SetLogs.Create(ctx, &domain.SetLog{ExerciseLogID: logs[1].ID, SessionID: session.ID, SetNumber: 2}))

	sets, err := repos.SetLogs.ListByExerciseLog(ctx, logs[0].ID)
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, 1, sets[0].SetNumber)

	require.NoError(t, repos.Sessions.IncrementCompletedSets(ctx, session.ID, 3))
	stored, err := repos.Sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CompletedSets)

	// sets only count toward load once their session is completed
	n, err := repos.Sessions.CountCompletedSessionSets(ctx, session.ClientID, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	stored.Status = domain.SessionCompleted
	require.NoError(t, repos.Sessions.Update(ctx, stored))
	n, err = repos.Sessions.CountCompletedSessionSets(ctx, session.ClientID, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	abandoned := newSession(session.ClientID)
	require.NoError(t, repos.Sessions.Create(ctx, abandoned))
	abandonedLog := []domain.ExerciseLog{{SessionID: abandoned.ID, ExerciseID: uuid.NewString()}}
	require.NoError(t, repos.ExerciseLogs.CreateMany(ctx, abandonedLog))
	require.NoError(t, repos.SetLogs.Create(ctx, &domain.SetLog{ExerciseLogID: abandonedLog[0].ID, SessionID: abandoned.ID, SetNumber: 1}))
	abandoned.Status = domain.SessionAbandoned
	require.NoError(t, repos.Sessions.Update(ctx, abandoned))

	n, err = repos.Sessions.CountCompletedSessionSets(ctx, session.ClientID, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTransactor_RollsBack(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	client := uuid.NewString()

	boom := errors.New("boom")
	err := repos.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := repos.Sessions.Create(ctx, newSession(client)); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return repos.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, err = repos.Sessions.GetActiveByClient(ctx, client)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func newMetric(userID, exerciseID string, mt domain.MetricType, value float64, at time.Time) *domain.PerformanceMetric {
	return &domain.PerformanceMetric{
		UserID:     userID,
		ExerciseID: &exerciseID,
		MetricType: mt,
		Value:      value,
		Unit:       "kg",
		RecordedAt: at,
	}
}

func TestMetrics_PersonalBestsTieBreak(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	user := uuid.NewString()
	squat := uuid.NewString()
	bench := uuid.NewString()

	older := newMetric(user, squat, domain.MetricOneRM, 140, base)
	newer := newMetric(user, squat, domain.MetricOneRM, 140, base.Add(time.Hour))
	lower := newMetric(user, squat, domain.MetricOneRM, 130, base.Add(2*time.Hour))
	vol := newMetric(user, squat, domain.MetricVolume, 3000, base)
	benchBest := newMetric(user, bench, domain.MetricOneRM, 100, base)
	otherUser := newMetric(uuid.NewString(), squat, domain.MetricOneRM, 300, base)
	for _, m := range []*domain.PerformanceMetric{older, newer, lower, vol, benchBest, otherUser} {
		require.NoError(t, repos.Metrics.Create(ctx, m))
	}

	bests, err := repos.Metrics.PersonalBests(ctx, user)
	require.NoError(t, err)
	require.Len(t, bests, 3)

	byKey := map[string]domain.PerformanceMetric{}
	for _, b := range bests {
		byKey[*b.ExerciseID+"/"+string(b.MetricType)] = b
	}
	assert.Equal(t, newer.ID, byKey[squat+"/one_rm"].ID)
	assert.Equal(t, vol.ID, byKey[squat+"/volume"].ID)
	assert.Equal(t, benchBest.ID, byKey[bench+"/one_rm"].ID)

	best, err := repos.Metrics.Best(ctx, user, squat, domain.MetricOneRM)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, best.ID)

	_, total, err := repos.Metrics.List(ctx, repository.MetricFilter{UserID: user, ExerciseID: squat, MetricType: domain.MetricOneRM})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestPersonalBests_HolderIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	user := uuid.NewString()
	exercise := uuid.NewString()

	session := newSession(user)
	require.NoError(t, repos.Sessions.Create(ctx, session))
	logs := []domain.ExerciseLog{
		{SessionID: session.ID, ExerciseID: exercise, OrderIndex: 0},
		{SessionID: session.ID, ExerciseID: exercise, OrderIndex: 1},
	}
	require.NoError(t, repos.ExerciseLogs.CreateMany(ctx, logs))

	holder := &domain.PersonalBestHolder{
		UserID: user, ExerciseID: exercise, MetricType: domain.MetricOneRM,
		MetricID: uuid.NewString(), ExerciseLogID: &logs[0].ID, Value: 100, RecordedAt: base,
	}
	require.NoError(t, repos.PersonalBests.Upsert(ctx, holder))
	require.NoError(t, repos.PersonalBests.SetExerciseLogFlag(ctx, logs[0].ID, true))

	moved := *holder
	moved.MetricID = uuid.NewString()
	moved.ExerciseLogID = &logs[1].ID
	moved.Value = 110
	require.NoError(t, repos.PersonalBests.Upsert(ctx, &moved))

	got, err := repos.PersonalBests.Get(ctx, user, exercise, domain.MetricOneRM)
	require.NoError(t, err)
	assert.Equal(t, 110.0, got.Value)
	assert.Equal(t, logs[1].ID, *got.ExerciseLogID)

	n, err := repos.PersonalBests.CountByExerciseLog(ctx, logs[0].ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repos.PersonalBests.SetExerciseLogFlag(ctx, logs[0].ID, false))
	stored, err := repos.ExerciseLogs.GetByID(ctx, logs[0].ID)
	require.NoError(t, err)
	assert.False(t, stored.PersonalBest)

	assert.ErrorIs(t, repos.PersonalBests.SetExerciseLogFlag(ctx, uuid.NewString(), true), repository.ErrNotFound)
}

func TestTrainingLoads_OneRowPerWeek(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	user := uuid.NewString()
	week := domain.WeekStart(base)

	first := &domain.TrainingLoad{UserID: user, WeekStartDate: week, Load: 1000, CalculatedAt: base}
	require.NoError(t, repos.TrainingLoads.Upsert(ctx, first))

	// any instant inside the week lands on the same row
	second := &domain.TrainingLoad{UserID: user, WeekStartDate: week.Add(50 * time.Hour), Load: 2500, CalculatedAt: base}
	require.NoError(t, repos.TrainingLoads.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	loads, err := repos.TrainingLoads.ListRange(ctx, user, week.AddDate(0, 0, -21), week)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, 2500.0, loads[0].Load)
	assert.True(t, loads[0].WeekStartDate.Equal(week))
}

func TestPrograms_TreeRoundTrip(t *testing.T) {
	ctx := context.Background()
	repos := testutil.Repos(t)
	trainer := uuid.NewString()

	squat := testutil.SeedExercise(t, ctx, repos, trainer)
	bench := testutil.SeedExercise(t, ctx, repos, trainer)
	tree := testutil.SeedProgram(t, ctx, repos, trainer, 4, squat, bench)

	got, err := repos.Programs.GetTree(ctx, tree.Program.ID)
	require.NoError(t, err)
	assert.Len(t, got.Weeks, 4)
	assert.True(t, got.Weeks[3].IsDeload)
	assert.Len(t, got.Workouts, 1)
	assert.Len(t, got.Exercises, 2)
	assert.Len(t, got.Configurations, 4)

	tmpl, err := repos.Programs.GetWorkoutTemplate(ctx, tree.Workouts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, tmpl.PlannedSets())
	assert.Equal(t, squat.ID, tmpl.Exercises[0].ExerciseID)
}
