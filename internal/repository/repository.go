package repository

import (
	"context"
	"time"

	"alcyxob/trainer-core/internal/domain"
)

// RepositoryError is the error type repositories return for well-known conditions.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

const (
	ErrNotFound = RepositoryError("not found")
	// ErrConflict is returned when a store constraint rejects a write:
	// unique keys, the single active session index or overlapping appointments.
	ErrConflict = RepositoryError("conflict")
)

// Transactor runs fn inside one store transaction. Repositories called with the
// ctx passed to fn take part in that transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

type AppointmentFilter struct {
	TrainerID string
	ClientID  string
	Status    domain.AppointmentStatus
	From      *time.Time // StartDatetime >= From
	To        *time.Time // StartDatetime < To
	Page
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	Update(ctx context.Context, appt *domain.Appointment) error
	// FindConflict returns a blocking appointment of the trainer overlapping [start, end),
	// ignoring excludeID, or nil when the slot is free.
	FindConflict(ctx context.Context, trainerID string, start, end time.Time, excludeID string) (*domain.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, int64, error)
}

type AvailabilityRepository interface {
	Upsert(ctx context.Context, slot *domain.AvailabilitySlot) error
	GetByID(ctx context.Context, id string) (*domain.AvailabilitySlot, error)
	ListByTrainer(ctx context.Context, trainerID string) ([]domain.AvailabilitySlot, error)
	ListByTrainerDay(ctx context.Context, trainerID string, dayOfWeek int) ([]domain.AvailabilitySlot, error)
	Delete(ctx context.Context, id string) error
}

type TrainerClientRepository interface {
	Upsert(ctx context.Context, rel *domain.TrainerClient) error
	Get(ctx context.Context, trainerID, clientID string) (*domain.TrainerClient, error)
	ListByTrainer(ctx context.Context, trainerID string, status domain.RelationStatus) ([]domain.TrainerClient, error)
}

type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) error
	GetByID(ctx context.Context, id string) (*domain.Exercise, error)
	ListByTrainer(ctx context.Context, trainerID string) ([]domain.Exercise, error)
}

type ProgramRepository interface {
	// CreateTree inserts the program and all of its template rows.
	CreateTree(ctx context.Context, tree *domain.ProgramTree) error
	GetByID(ctx context.Context, id string) (*domain.Program, error)
	GetTree(ctx context.Context, id string) (*domain.ProgramTree, error)
	ListByTrainer(ctx context.Context, trainerID string) ([]domain.Program, error)
	GetWorkoutTemplate(ctx context.Context, workoutID string) (*domain.WorkoutTemplate, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.ProgramAssignment) error
	GetByID(ctx context.Context, id string) (*domain.ProgramAssignment, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.ProgramAssignment, error)
	ListByTrainer(ctx context.Context, trainerID string) ([]domain.ProgramAssignment, error)
}

type SessionFilter struct {
	ClientID  string
	TrainerID string
	Status    domain.SessionStatus
	From      *time.Time
	To        *time.Time
	Page
}

type SessionRepository interface {
	// Create fails with ErrConflict when the client already has a session in progress.
	Create(ctx context.Context, session *domain.WorkoutSession) error
	GetByID(ctx context.Context, id string) (*domain.WorkoutSession, error)
	// GetActiveByClient returns the most recently started in-progress session, or ErrNotFound.
	GetActiveByClient(ctx context.Context, clientID string) (*domain.WorkoutSession, error)
	Update(ctx context.Context, session *domain.WorkoutSession) error
	IncrementCompletedSets(ctx context.Context, id string, delta int) error
	List(ctx context.Context, filter SessionFilter) ([]domain.WorkoutSession, int64, error)
	// CountCompletedSessionSets counts set logs of the client's completed sessions
	// started in [from, to).
	CountCompletedSessionSets(ctx context.Context, clientID string, from, to time.Time) (int, error)
}

type ExerciseLogRepository interface {
	CreateMany(ctx context.Context, logs []domain.ExerciseLog) error
	GetByID(ctx context.Context, id string) (*domain.ExerciseLog, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.ExerciseLog, error)
	Update(ctx context.Context, log *domain.ExerciseLog) error
	MaxOrderIndex(ctx context.Context, sessionID string) (int, error)
}

type SetLogRepository interface {
	// Create fails with ErrConflict on a duplicate set number for the exercise log.
	Create(ctx context.Context, set *domain.SetLog) error
	ListByExerciseLog(ctx context.Context, exerciseLogID string) ([]domain.SetLog, error)
	ListBySession(ctx context.Context, sessionID string) ([]domain.SetLog, error)
}

type MetricFilter struct {
	UserID     string
	ExerciseID string
	MetricType domain.MetricType
	From       *time.Time
	To         *time.Time
	Page
}

type MetricRepository interface {
	Create(ctx context.Context, metric *domain.PerformanceMetric) error
	List(ctx context.Context, filter MetricFilter) ([]domain.PerformanceMetric, int64, error)
	// Best returns the top-ranked metric for the triple, or ErrNotFound.
	Best(ctx context.Context, userID, exerciseID string, metricType domain.MetricType) (*domain.PerformanceMetric, error)
	// PersonalBests returns one best metric per (exercise, metric type) ordered by exercise then type.
	PersonalBests(ctx context.Context, userID string) ([]domain.PerformanceMetric, error)
	ExistsForExerciseLog(ctx context.Context, exerciseLogID string, metricType domain.MetricType) (bool, error)
}

type PersonalBestRepository interface {
	Get(ctx context.Context, userID, exerciseID string, metricType domain.MetricType) (*domain.PersonalBestHolder, error)
	Upsert(ctx context.Context, holder *domain.PersonalBestHolder) error
	// CountByExerciseLog counts triples the exercise log currently holds.
	CountByExerciseLog(ctx context.Context, exerciseLogID string) (int64, error)
	// SetExerciseLogFlag writes ExerciseLog.PersonalBest.
	SetExerciseLogFlag(ctx context.Context, exerciseLogID string, flag bool) error
}

type TrainingLoadRepository interface {
	// Upsert writes the row for (UserID, WeekStartDate), replacing any previous values.
	Upsert(ctx context.Context, load *domain.TrainingLoad) error
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.TrainingLoad, error)
}

// Repositories bundles every repository of one backend.
type Repositories struct {
	Transactor    Transactor
	Appointments  AppointmentRepository
	Availability  AvailabilityRepository
	Clients       TrainerClientRepository
	Exercises     ExerciseRepository
	Programs      ProgramRepository
	Assignments   AssignmentRepository
	Sessions      SessionRepository
	ExerciseLogs  ExerciseLogRepository
	SetLogs       SetLogRepository
	Metrics       MetricRepository
	PersonalBests PersonalBestRepository
	TrainingLoads TrainingLoadRepository
}
