package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/telemetry"
)

// --- Error Definitions ---
var (
	ErrProgramNotFound        = newError(ErrNotFound, "program not found")
	ErrProgramNameRequired    = newError(ErrInvalidInput, "program name is required")
	ErrInvalidDuration        = newError(ErrInvalidInput, "durationWeeks must be between 1 and 52")
	ErrInvalidWeekNumber      = newError(ErrInvalidInput, "week numbers must be unique and within the program duration")
	ErrInvalidDayNumber       = newError(ErrInvalidInput, "day numbers must be between 1 and 7")
	ErrExerciseNotInCatalog   = newError(ErrInvalidInput, "program references an exercise outside your catalog")
	ErrStartDateRequired      = newError(ErrInvalidInput, "startDate is required")
	ErrAssignmentNotFound     = newError(ErrNotFound, "program assignment not found")
	ErrWorkoutNotInProgram    = newError(ErrInvalidInput, "workout does not belong to the assigned program")
	ErrWorkoutNeedsAssignment = newError(ErrInvalidInput, "workoutId requires programAssignmentId")
)

const maxProgramWeeks = 52

// --- Service Interface ---
type ProgramService interface {
	CreateProgram(ctx context.Context, trainerID string, in CreateProgramInput) (*domain.ProgramTree, error)
	ListPrograms(ctx context.Context, trainerID string) ([]domain.Program, error)
	GetProgram(ctx context.Context, trainerID, programID string) (*domain.ProgramTree, error)

	AssignProgram(ctx context.Context, trainerID, programID string, in AssignProgramInput) (*AssignmentResult, error)
	ListAssignments(ctx context.Context, caller domain.Principal) ([]domain.ProgramAssignment, error)
}

type CreateProgramInput struct {
	Name          string
	Description   string
	DurationWeeks int
	Weeks         []ProgramWeekInput
}

type ProgramWeekInput struct {
	WeekNumber int
	Name       string
	IsDeload   bool
	Workouts   []ProgramWorkoutInput
}

type ProgramWorkoutInput struct {
	DayNumber int
	Name      string
	IsRestDay bool
	Exercises []WorkoutExerciseInput
}

type WorkoutExerciseInput struct {
	ExerciseID    string
	SupersetGroup string
	Notes         string
	Sets          []SetConfigurationInput
}

type SetConfigurationInput struct {
	Reps            string
	WeightKg        *float64
	RPE             *float64
	RestSeconds     *int
	DurationSeconds *int
}

type AssignProgramInput struct {
	ClientID  string
	StartDate time.Time
}

// AssignmentResult is the stored assignment plus its week-by-week calendar.
type AssignmentResult struct {
	Assignment *domain.ProgramAssignment
	Schedule   []domain.WeekSchedule
}

// --- Service Implementation ---

type programService struct {
	tx             repository.Transactor
	programRepo    repository.ProgramRepository
	exerciseRepo   repository.ExerciseRepository
	assignmentRepo repository.AssignmentRepository
	clientRepo     repository.TrainerClientRepository
	log            *logger.Logger
}

func NewProgramService(repos *repository.Repositories, baseLog *logger.Logger) ProgramService {
	return &programService{
		tx:             repos.Transactor,
		programRepo:    repos.Programs,
		exerciseRepo:   repos.Exercises,
		assignmentRepo: repos.Assignments,
		clientRepo:     repos.Clients,
		log:            baseLog.With("service", "ProgramService"),
	}
}

// CreateProgram stores the whole template in one transaction.
func (s *programService) CreateProgram(ctx context.Context, trainerID string, in CreateProgramInput) (*domain.ProgramTree, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ProgramService.CreateProgram")
	defer span.End()

	// 1. Validate header
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrProgramNameRequired
	}
	if in.DurationWeeks < 1 || in.DurationWeeks > maxProgramWeeks {
		return nil, ErrInvalidDuration
	}

	programID := uuid.NewString()
	tree := &domain.ProgramTree{
		Program: domain.Program{
			ID:            programID,
			TrainerID:     trainerID,
			Name:          name,
			Description:   in.Description,
			DurationWeeks: in.DurationWeeks,
		},
	}

	// 2. Flatten the nested input, checking every exercise against the catalog once
	seenWeeks := make(map[int]bool, len(in.Weeks))
	owned := make(map[string]bool)
	for _, w := range in.Weeks {
		if w.WeekNumber < 1 || w.WeekNumber > in.DurationWeeks || seenWeeks[w.WeekNumber] {
			return nil, ErrInvalidWeekNumber
		}
		seenWeeks[w.WeekNumber] = true

		week := domain.ProgramWeek{
			ID:         uuid.NewString(),
			ProgramID:  programID,
			WeekNumber: w.WeekNumber,
			Name:       w.Name,
			IsDeload:   w.IsDeload,
		}
		tree.Weeks = append(tree.Weeks, week)

		for _, wo := range w.Workouts {
			if wo.DayNumber < 1 || wo.DayNumber > 7 {
				return nil, ErrInvalidDayNumber
			}
			workout := domain.ProgramWorkout{
				ID:        uuid.NewString(),
				ProgramID: programID,
				WeekID:    week.ID,
				DayNumber: wo.DayNumber,
				Name:      wo.Name,
				IsRestDay: wo.IsRestDay,
			}
			tree.Workouts = append(tree.Workouts, workout)

			for i, ex := range wo.Exercises {
				if err := s.checkCatalog(ctx, trainerID, ex.ExerciseID, owned); err != nil {
					return nil, err
				}
				we := domain.WorkoutExercise{
					ID:            uuid.NewString(),
					WorkoutID:     workout.ID,
					ExerciseID:    ex.ExerciseID,
					OrderIndex:    i,
					SupersetGroup: ex.SupersetGroup,
					Notes:         ex.Notes,
				}
				tree.Exercises = append(tree.Exercises, we)
				for n, set := range ex.Sets {
					tree.Configurations = append(tree.Configurations, domain.SetConfiguration{
						ID:                uuid.NewString(),
						WorkoutExerciseID: we.ID,
						SetNumber:         n + 1,
						Reps:              set.Reps,
						WeightKg:          set.WeightKg,
						RPE:               set.RPE,
						RestSeconds:       set.RestSeconds,
						DurationSeconds:   set.DurationSeconds,
					})
				}
			}
		}
	}
	domain.SortProgramWeeks(tree.Weeks)

	// 3. Persist
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.programRepo.CreateTree(ctx, tree)
	})
	if err != nil {
		s.log.Error("failed to create program", "trainer_id", trainerID, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("program.id", programID))
	return tree, nil
}

func (s *programService) checkCatalog(ctx context.Context, trainerID, exerciseID string, owned map[string]bool) error {
	if owned[exerciseID] {
		return nil
	}
	exercise, err := getExercise(ctx, s.exerciseRepo, exerciseID)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			return ErrExerciseNotInCatalog
		}
		return err
	}
	if exercise.TrainerID != trainerID {
		return ErrExerciseNotInCatalog
	}
	owned[exerciseID] = true
	return nil
}

func (s *programService) ListPrograms(ctx context.Context, trainerID string) ([]domain.Program, error) {
	return s.programRepo.ListByTrainer(ctx, trainerID)
}

// GetProgram hides programs of other trainers behind ErrProgramNotFound.
func (s *programService) GetProgram(ctx context.Context, trainerID, programID string) (*domain.ProgramTree, error) {
	tree, err := s.programRepo.GetTree(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if tree.Program.TrainerID != trainerID {
		return nil, ErrProgramNotFound
	}
	domain.SortProgramWeeks(tree.Weeks)
	return tree, nil
}

// AssignProgram binds the program to a managed client from startDate for
// durationWeeks whole weeks. No appointments or sessions are created.
func (s *programService) AssignProgram(ctx context.Context, trainerID, programID string, in AssignProgramInput) (*AssignmentResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ProgramService.AssignProgram")
	defer span.End()
	span.SetAttributes(attribute.String("program.id", programID), attribute.String("client.id", in.ClientID))

	// 1. Validate Input
	if in.ClientID == "" {
		return nil, ErrClientRequired
	}
	if in.StartDate.IsZero() {
		return nil, ErrStartDateRequired
	}

	// 2. Ownership and relationship
	tree, err := s.GetProgram(ctx, trainerID, programID)
	if err != nil {
		return nil, err
	}
	if err := requireActiveRelation(ctx, s.clientRepo, trainerID, in.ClientID); err != nil {
		return nil, err
	}

	// 3. Derive the calendar window
	start := domain.CalendarDate(in.StartDate)
	assignment := &domain.ProgramAssignment{
		ProgramID: programID,
		ClientID:  in.ClientID,
		TrainerID: trainerID,
		StartDate: start,
		EndDate:   domain.AssignmentEndDate(start, tree.Program.DurationWeeks),
		IsActive:  true,
	}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		s.log.Error("failed to assign program", "program_id", programID, "client_id", in.ClientID, "error", err)
		return nil, err
	}

	s.log.Info("program assigned", "program_id", programID, "client_id", in.ClientID,
		"start_date", start.Format(domain.DateLayout), "end_date", assignment.EndDate.Format(domain.DateLayout))
	return &AssignmentResult{
		Assignment: assignment,
		Schedule:   domain.ScheduleWeeks(start, tree.Program.DurationWeeks, tree.Weeks),
	}, nil
}

func (s *programService) ListAssignments(ctx context.Context, caller domain.Principal) ([]domain.ProgramAssignment, error) {
	switch caller.Role {
	case domain.RoleTrainer:
		return s.assignmentRepo.ListByTrainer(ctx, caller.UserID)
	case domain.RoleClient:
		return s.assignmentRepo.ListByClient(ctx, caller.UserID)
	}
	return nil, ErrForbidden
}
