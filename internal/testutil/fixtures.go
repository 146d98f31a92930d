package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

func SeedRelation(tb testing.TB, ctx context.Context, repos *repository.Repositories, trainerID, clientID string) {
	tb.Helper()
	rel := &domain.TrainerClient{TrainerID: trainerID, ClientID: clientID, Status: domain.RelationActive}
	if err := repos.Clients.Upsert(ctx, rel); err != nil {
		tb.Fatalf("seed relation: %v", err)
	}
}

func SeedExercise(tb testing.TB, ctx context.Context, repos *repository.Repositories, trainerID string) *domain.Exercise {
	tb.Helper()
	ex := &domain.Exercise{
		TrainerID: trainerID,
		Name:      gofakeit.Word() + " press",
		BodyPart:  "chest",
		Equipment: "barbell",
	}
	if err := repos.Exercises.Create(ctx, ex); err != nil {
		tb.Fatalf("seed exercise: %v", err)
	}
	return ex
}

// SeedProgram stores a program of the given length. Week 1 has one workout
// prescribing two sets of each exercise; the last week is a deload.
func SeedProgram(tb testing.TB, ctx context.Context, repos *repository.Repositories, trainerID string, weeks int, exercises ...*domain.Exercise) *domain.ProgramTree {
	tb.Helper()
	programID := uuid.NewString()
	tree := &domain.ProgramTree{
		Program: domain.Program{
			ID:            programID,
			TrainerID:     trainerID,
			Name:          gofakeit.Name() + " block",
			DurationWeeks: weeks,
		},
	}
	for w := 1; w <= weeks; w++ {
		tree.Weeks = append(tree.Weeks, domain.ProgramWeek{
			ID:         uuid.NewString(),
			ProgramID:  programID,
			WeekNumber: w,
			IsDeload:   w == weeks && weeks > 1,
		})
	}

	workout := domain.ProgramWorkout{
		ID:        uuid.NewString(),
		ProgramID: programID,
		WeekID:    tree.Weeks[0].ID,
		DayNumber: 1,
		Name:      "Day 1",
	}
	tree.Workouts = append(tree.Workouts, workout)

	for i, ex := range exercises {
		we := domain.WorkoutExercise{
			ID:         uuid.NewString(),
			WorkoutID:  workout.ID,
			ExerciseID: ex.ID,
			OrderIndex: i,
		}
		tree.Exercises = append(tree.Exercises, we)
		for s := 1; s <= 2; s++ {
			weight := 60.0
			tree.Configurations = append(tree.Configurations, domain.SetConfiguration{
				ID:                uuid.NewString(),
				WorkoutExerciseID: we.ID,
				SetNumber:         s,
				Reps:              "8-10",
				WeightKg:          &weight,
			})
		}
	}

	err := repos.Transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		return repos.Programs.CreateTree(ctx, tree)
	})
	if err != nil {
		tb.Fatalf("seed program: %v", err)
	}
	return tree
}

func SeedAssignment(tb testing.TB, ctx context.Context, repos *repository.Repositories, program *domain.Program, clientID string, start time.Time) *domain.ProgramAssignment {
	tb.Helper()
	a := &domain.ProgramAssignment{
		ProgramID: program.ID,
		ClientID:  clientID,
		TrainerID: program.TrainerID,
		StartDate: domain.CalendarDate(start),
		EndDate:   domain.AssignmentEndDate(start, program.DurationWeeks),
		IsActive:  true,
	}
	if err := repos.Assignments.Create(ctx, a); err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

func StringPtr(v string) *string { return &v }
