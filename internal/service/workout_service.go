package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/telemetry"
)

// --- Error Definitions ---
var (
	ErrSessionNotFound       = newError(ErrNotFound, "workout session not found")
	ErrActiveSessionNotFound = newError(ErrNotFound, "active workout session not found")
	ErrSessionNotActive      = newError(ErrConflict, "session not active")
	ErrExerciseLogNotFound   = newError(ErrNotFound, "exercise log not found in this session")
	ErrDuplicateSet          = newError(ErrConflict, "set number already logged for this exercise")
	ErrSetsAlreadyLogged     = newError(ErrConflict, "can not skip an exercise with logged sets")
	ErrInvalidSet            = newError(ErrInvalidInput, "setNumber must be positive; reps, weight and duration must not be negative; rpe must be 0-10")
	ErrInvalidSessionStatus  = newError(ErrInvalidInput, "invalid session status")
)

// --- Service Interface ---
type WorkoutService interface {
	// Lifecycle
	StartSession(ctx context.Context, caller domain.Principal, in StartSessionInput) (*SessionDetail, bool, error)
	GetActiveSession(ctx context.Context, clientID string) (*SessionDetail, error)
	GetSession(ctx context.Context, caller domain.Principal, sessionID string) (*SessionDetail, error)
	History(ctx context.Context, caller domain.Principal, q HistoryQuery) ([]domain.WorkoutSession, int64, error)
	CompleteSession(ctx context.Context, clientID, sessionID, notes string) (*domain.WorkoutSession, error)
	AbandonSession(ctx context.Context, clientID, sessionID string) (*domain.WorkoutSession, error)

	// Logging
	LogSet(ctx context.Context, clientID, sessionID string, in LogSetInput) (*LogSetResult, error)
	AddExercise(ctx context.Context, clientID, sessionID, exerciseID string) (*domain.ExerciseLog, error)
	SkipExercise(ctx context.Context, clientID, sessionID, exerciseLogID string) (*domain.ExerciseLog, error)
	CompleteExercise(ctx context.Context, clientID, sessionID, exerciseLogID string) (*domain.ExerciseLog, error)
}

type StartSessionInput struct {
	// ClientID is required when a trainer starts the session.
	ClientID            string
	ProgramAssignmentID string
	WorkoutID           string
	Notes               string
}

type HistoryQuery struct {
	ClientID string
	Status   domain.SessionStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// SessionDetail is a session with its exercise logs in order.
type SessionDetail struct {
	Session   *domain.WorkoutSession
	Exercises []ExerciseDetail
}

type ExerciseDetail struct {
	Log     domain.ExerciseLog
	Sets    []domain.SetLog
	Planned []domain.SetConfiguration
}

// --- Service Implementation ---

type workoutService struct {
	tx             repository.Transactor
	sessionRepo    repository.SessionRepository
	logRepo        repository.ExerciseLogRepository
	setRepo        repository.SetLogRepository
	programRepo    repository.ProgramRepository
	assignmentRepo repository.AssignmentRepository
	exerciseRepo   repository.ExerciseRepository
	clientRepo     repository.TrainerClientRepository
	metricRepo     repository.MetricRepository
	agg            *aggregator
	metrics        *metrics.Manager
	now            Clock
	log            *logger.Logger
}

func NewWorkoutService(repos *repository.Repositories, m *metrics.Manager, clock Clock, baseLog *logger.Logger) WorkoutService {
	log := baseLog.With("service", "WorkoutService")
	now := clockOrSystem(clock)
	return &workoutService{
		tx:             repos.Transactor,
		sessionRepo:    repos.Sessions,
		logRepo:        repos.ExerciseLogs,
		setRepo:        repos.SetLogs,
		programRepo:    repos.Programs,
		assignmentRepo: repos.Assignments,
		exerciseRepo:   repos.Exercises,
		clientRepo:     repos.Clients,
		metricRepo:     repos.Metrics,
		agg:            newAggregator(repos, m, now, log),
		metrics:        m,
		now:            now,
		log:            log,
	}
}

// StartSession returns the client's session in progress when there is one;
// created is true only when a new session was stored.
func (s *workoutService) StartSession(ctx context.Context, caller domain.Principal, in StartSessionInput) (*SessionDetail, bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "WorkoutService.StartSession")
	defer span.End()

	// 1. Resolve who the session is for
	var clientID string
	var trainerID *string
	switch caller.Role {
	case domain.RoleClient:
		clientID = caller.UserID
	case domain.RoleTrainer:
		if in.ClientID == "" {
			return nil, false, ErrClientRequired
		}
		if err := requireActiveRelation(ctx, s.clientRepo, caller.UserID, in.ClientID); err != nil {
			return nil, false, err
		}
		clientID = in.ClientID
		trainerID = &caller.UserID
	default:
		return nil, false, ErrForbidden
	}
	span.SetAttributes(attribute.String("client.id", clientID))

	// 2. Resume an active session
	if detail, err := s.GetActiveSession(ctx, clientID); err != nil || detail != nil {
		return detail, false, err
	}

	// 3. Resolve the template
	if in.WorkoutID != "" && in.ProgramAssignmentID == "" {
		return nil, false, ErrWorkoutNeedsAssignment
	}
	now := s.now()
	session := &domain.WorkoutSession{
		ClientID:        clientID,
		TrainerID:       trainerID,
		Status:          domain.SessionInProgress,
		ActualStartTime: now,
		Notes:           in.Notes,
	}
	var tmpl *domain.WorkoutTemplate
	if in.ProgramAssignmentID != "" {
		assignment, err := s.assignmentRepo.GetByID(ctx, in.ProgramAssignmentID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, false, err
		}
		if err != nil || assignment.ClientID != clientID {
			return nil, false, ErrAssignmentNotFound
		}
		if !assignment.Covers(now) {
			s.log.Warn("session started outside the assignment window", "client_id", clientID,
				"assignment_id", assignment.ID, "start_date", assignment.StartDate.Format(domain.DateLayout),
				"end_date", assignment.EndDate.Format(domain.DateLayout))
		}
		session.ProgramAssignmentID = &assignment.ID
		if session.TrainerID == nil {
			session.TrainerID = &assignment.TrainerID
		}

		if in.WorkoutID != "" {
			tmpl, err = s.programRepo.GetWorkoutTemplate(ctx, in.WorkoutID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, false, err
			}
			if err != nil || tmpl.Workout.ProgramID != assignment.ProgramID {
				return nil, false, ErrWorkoutNotInProgram
			}
			session.WorkoutID = &tmpl.Workout.ID
			session.TotalSets = tmpl.PlannedSets()
		}
	}

	// 4. Store the session with one log per planned exercise
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.sessionRepo.Create(ctx, session); err != nil {
			return err
		}
		if tmpl == nil {
			return nil
		}
		logs := make([]domain.ExerciseLog, 0, len(tmpl.Exercises))
		for i := range tmpl.Exercises {
			we := tmpl.Exercises[i]
			logs = append(logs, domain.ExerciseLog{
				SessionID:         session.ID,
				ExerciseID:        we.ExerciseID,
				WorkoutExerciseID: &we.ID,
				OrderIndex:        we.OrderIndex,
				SupersetGroup:     we.SupersetGroup,
			})
		}
		return s.logRepo.CreateMany(ctx, logs)
	})
	if errors.Is(err, repository.ErrConflict) {
		// lost the race to a concurrent start; the winner is the active session
		detail, err := s.GetActiveSession(ctx, clientID)
		if err != nil {
			return nil, false, err
		}
		if detail != nil {
			return detail, false, nil
		}
		return nil, false, ErrSessionNotActive
	}
	if err != nil {
		s.log.Error("failed to start session", "client_id", clientID, "error", err)
		return nil, false, err
	}

	s.metrics.CounterSessionsStarted.Inc()
	s.log.Info("session started", "session_id", session.ID, "client_id", clientID, "planned_sets", session.TotalSets)
	detail, err := s.loadDetail(ctx, session)
	return detail, true, err
}

// GetActiveSession returns nil without error when the client has no session in progress.
func (s *workoutService) GetActiveSession(ctx context.Context, clientID string) (*SessionDetail, error) {
	session, err := s.sessionRepo.GetActiveByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.loadDetail(ctx, session)
}

func (s *workoutService) GetSession(ctx context.Context, caller domain.Principal, sessionID string) (*SessionDetail, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if !s.canSeeSession(ctx, caller, session) {
		return nil, ErrSessionNotFound
	}
	return s.loadDetail(ctx, session)
}

func (s *workoutService) canSeeSession(ctx context.Context, caller domain.Principal, session *domain.WorkoutSession) bool {
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleClient:
		return session.ClientID == caller.UserID
	case domain.RoleTrainer:
		if session.TrainerID != nil && *session.TrainerID == caller.UserID {
			return true
		}
		return requireActiveRelation(ctx, s.clientRepo, caller.UserID, session.ClientID) == nil
	}
	return false
}

func (s *workoutService) History(ctx context.Context, caller domain.Principal, q HistoryQuery) ([]domain.WorkoutSession, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, ErrInvalidSessionStatus
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		return nil, 0, ErrInvalidDateRange
	}
	limit, offset, err := normalizePage(q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.SessionFilter{
		Status: q.Status,
		From:   q.From,
		To:     q.To,
		Page:   repository.Page{Limit: limit, Offset: offset},
	}
	switch caller.Role {
	case domain.RoleClient:
		filter.ClientID = caller.UserID
	case domain.RoleTrainer:
		if q.ClientID == "" {
			filter.TrainerID = caller.UserID
			break
		}
		if err := requireActiveRelation(ctx, s.clientRepo, caller.UserID, q.ClientID); err != nil {
			return nil, 0, err
		}
		filter.ClientID = q.ClientID
	case domain.RoleAdmin:
		filter.ClientID = q.ClientID
	default:
		return nil, 0, ErrForbidden
	}
	return s.sessionRepo.List(ctx, filter)
}

// CompleteSession closes the session and folds it into analytics: summary
// fields, per-exercise metrics, personal bests and the weekly training load.
func (s *workoutService) CompleteSession(ctx context.Context, clientID, sessionID, notes string) (*domain.WorkoutSession, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "WorkoutService.CompleteSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	var session *domain.WorkoutSession
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.ownedSession(ctx, clientID, sessionID)
		if err != nil {
			return err
		}
		if !session.IsActive() {
			return ErrActiveSessionNotFound
		}

		logs, err := s.logRepo.ListBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		sets, err := s.setRepo.ListBySession(ctx, session.ID)
		if err != nil {
			return err
		}
		bySet := groupSets(sets)
		now := s.now()

		// 1. Exercise log totals go first so the flags written below are not overwritten
		for i := range logs {
			l := &logs[i]
			if l.Skipped {
				continue
			}
			l.TotalVolume = domain.ExerciseVolume(bySet[l.ID])
			if l.CompletedAt == nil && len(bySet[l.ID]) > 0 {
				l.CompletedAt = &now
			}
			if err := s.logRepo.Update(ctx, l); err != nil {
				return err
			}
		}

		// 2. Session summary
		summary := domain.SummarizeSession(session, logs, sets, now)
		session.Status = domain.SessionCompleted
		session.ActualEndTime = &now
		if notes != "" {
			session.Notes = notes
		}
		session.CompletedSets = summary.CompletedSets
		session.TotalVolume = summary.TotalVolume
		session.AverageRPE = summary.AverageRPE
		session.DurationMinutes = &summary.DurationMinutes
		session.AdherenceScore = summary.AdherenceScore
		if err := s.sessionRepo.Update(ctx, session); err != nil {
			return err
		}

		// 3. Metrics and personal bests per performed exercise
		for i := range logs {
			l := &logs[i]
			if l.Skipped || len(bySet[l.ID]) == 0 {
				continue
			}
			if err := s.recordExerciseMetrics(ctx, session, l, bySet[l.ID], now); err != nil {
				return err
			}
		}

		// 4. Training load of the affected weeks
		if err := s.agg.refreshTrainingLoad(ctx, clientID, now); err != nil {
			return err
		}
		if started := domain.WeekStart(session.ActualStartTime); !started.Equal(domain.WeekStart(now)) {
			return s.agg.refreshTrainingLoad(ctx, clientID, started)
		}
		return nil
	})
	if err != nil {
		var svcErr *Error
		if !errors.As(err, &svcErr) {
			s.log.Error("failed to complete session", "session_id", sessionID, "client_id", clientID, "error", err)
		}
		return nil, err
	}

	s.metrics.CounterSessionsFinished.WithLabelValues(string(domain.SessionCompleted)).Inc()
	s.log.Info("session completed", "session_id", session.ID, "client_id", clientID,
		"completed_sets", session.CompletedSets, "total_volume", session.TotalVolume)
	return session, nil
}

func (s *workoutService) recordExerciseMetrics(ctx context.Context, session *domain.WorkoutSession, l *domain.ExerciseLog, sets []domain.SetLog, at time.Time) error {
	totals := domain.SummarizeSets(sets)
	record := func(mt domain.MetricType, value float64, unit string) error {
		_, err := s.agg.record(ctx, &domain.PerformanceMetric{
			UserID:        session.ClientID,
			ExerciseID:    &l.ExerciseID,
			MetricType:    mt,
			Value:         value,
			Unit:          unit,
			RecordedAt:    at,
			ExerciseLogID: &l.ID,
			SessionID:     &session.ID,
		})
		return err
	}

	if totals.Volume > 0 {
		if err := record(domain.MetricVolume, totals.Volume, "kg"); err != nil {
			return err
		}
	}
	if totals.Reps > 0 {
		if err := record(domain.MetricEndurance, float64(totals.Reps), "reps"); err != nil {
			return err
		}
	}
	if totals.MaxWeight > 0 {
		exists, err := s.metricRepo.ExistsForExerciseLog(ctx, l.ID, domain.MetricOneRM)
		if err != nil {
			return err
		}
		if !exists {
			return record(domain.MetricOneRM, totals.MaxWeight, "kg")
		}
	}
	return nil
}

func (s *workoutService) AbandonSession(ctx context.Context, clientID, sessionID string) (*domain.WorkoutSession, error) {
	session, err := s.ownedSession(ctx, clientID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrActiveSessionNotFound
	}

	now := s.now()
	minutes := int(now.Sub(session.ActualStartTime).Round(time.Minute) / time.Minute)
	session.Status = domain.SessionAbandoned
	session.ActualEndTime = &now
	session.DurationMinutes = &minutes
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.CounterSessionsFinished.WithLabelValues(string(domain.SessionAbandoned)).Inc()
	s.log.Info("session abandoned", "session_id", session.ID, "client_id", clientID)
	return session, nil
}

// ownedSession loads the session and hides sessions of other clients.
func (s *workoutService) ownedSession(ctx context.Context, clientID, sessionID string) (*domain.WorkoutSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.ClientID != clientID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *workoutService) loadDetail(ctx context.Context, session *domain.WorkoutSession) (*SessionDetail, error) {
	logs, err := s.logRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	sets, err := s.setRepo.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	bySet := groupSets(sets)

	planned := map[string][]domain.SetConfiguration{}
	if session.WorkoutID != nil {
		tmpl, err := s.programRepo.GetWorkoutTemplate(ctx, *session.WorkoutID)
		switch {
		case err == nil:
			planned = tmpl.Configurations
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	detail := &SessionDetail{Session: session, Exercises: make([]ExerciseDetail, 0, len(logs))}
	for _, l := range logs {
		ed := ExerciseDetail{Log: l, Sets: bySet[l.ID]}
		if l.WorkoutExerciseID != nil {
			ed.Planned = planned[*l.WorkoutExerciseID]
		}
		detail.Exercises = append(detail.Exercises, ed)
	}
	return detail, nil
}

func groupSets(sets []domain.SetLog) map[string][]domain.SetLog {
	out := make(map[string][]domain.SetLog)
	for _, set := range sets {
		out[set.ExerciseLogID] = append(out[set.ExerciseLogID], set)
	}
	return out
}
