package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/telemetry"
)

type LogSetInput struct {
	ExerciseLogID   string
	SetNumber       int
	Reps            *int
	WeightKg        *float64
	DurationSeconds *int
	RPE             *float64
	RIR             *int
	Notes           string
}

func (in LogSetInput) valid() bool {
	switch {
	case in.SetNumber < 1:
		return false
	case in.Reps != nil && *in.Reps < 0:
		return false
	case in.WeightKg != nil && *in.WeightKg < 0:
		return false
	case in.DurationSeconds != nil && *in.DurationSeconds < 0:
		return false
	case in.RIR != nil && *in.RIR < 0:
		return false
	case in.RPE != nil && (*in.RPE < 0 || *in.RPE > 10):
		return false
	}
	return true
}

// LogSetResult is the stored set with the exercise log it updated.
type LogSetResult struct {
	Set          *domain.SetLog
	ExerciseLog  *domain.ExerciseLog
	PersonalBest bool
}

// LogSet appends a set to an exercise log of the caller's active session.
// A weight above the client's one-rep-max best records a new personal best.
func (s *workoutService) LogSet(ctx context.Context, clientID, sessionID string, in LogSetInput) (*LogSetResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "WorkoutService.LogSet")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID), attribute.Int("set.number", in.SetNumber))

	if !in.valid() {
		return nil, ErrInvalidSet
	}

	result := &LogSetResult{}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 1. Session and log must match
		session, l, err := s.activeExerciseLog(ctx, clientID, sessionID, in.ExerciseLogID)
		if err != nil {
			return err
		}

		// 2. Append the set
		set := &domain.SetLog{
			ExerciseLogID:   l.ID,
			SessionID:       session.ID,
			SetNumber:       in.SetNumber,
			Reps:            in.Reps,
			WeightKg:        in.WeightKg,
			DurationSeconds: in.DurationSeconds,
			RPE:             in.RPE,
			RIR:             in.RIR,
			Notes:           in.Notes,
			LoggedAt:        s.now(),
		}
		if err := s.setRepo.Create(ctx, set); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicateSet
			}
			return err
		}

		// 3. Derived totals
		sets, err := s.setRepo.ListByExerciseLog(ctx, l.ID)
		if err != nil {
			return err
		}
		l.TotalVolume = domain.ExerciseVolume(sets)
		l.Skipped = false
		if err := s.logRepo.Update(ctx, l); err != nil {
			return err
		}
		if err := s.sessionRepo.IncrementCompletedSets(ctx, session.ID, 1); err != nil {
			return err
		}

		// 4. One-rep-max personal best
		if in.WeightKg != nil && *in.WeightKg > 0 {
			pb, err := s.maybeRecordOneRM(ctx, session, l, *in.WeightKg)
			if err != nil {
				return err
			}
			if pb {
				l.PersonalBest = true
			}
			result.PersonalBest = pb
		}

		result.Set = set
		result.ExerciseLog = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CounterSetsLogged.Inc()
	if result.PersonalBest {
		s.log.Info("new personal best", "client_id", clientID, "exercise_id", result.ExerciseLog.ExerciseID,
			"weight_kg", *in.WeightKg)
	}
	return result, nil
}

func (s *workoutService) maybeRecordOneRM(ctx context.Context, session *domain.WorkoutSession, l *domain.ExerciseLog, weight float64) (bool, error) {
	best, err := s.metricRepo.Best(ctx, session.ClientID, l.ExerciseID, domain.MetricOneRM)
	switch {
	case err == nil:
		if weight <= best.Value {
			return false, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return false, err
	}

	return s.agg.record(ctx, &domain.PerformanceMetric{
		UserID:        session.ClientID,
		ExerciseID:    &l.ExerciseID,
		MetricType:    domain.MetricOneRM,
		Value:         weight,
		Unit:          "kg",
		RecordedAt:    s.now(),
		ExerciseLogID: &l.ID,
		SessionID:     &session.ID,
	})
}

// AddExercise appends an ad hoc exercise after the last one in the session.
func (s *workoutService) AddExercise(ctx context.Context, clientID, sessionID, exerciseID string) (*domain.ExerciseLog, error) {
	if _, err := getExercise(ctx, s.exerciseRepo, exerciseID); err != nil {
		return nil, err
	}

	var added domain.ExerciseLog
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		session, err := s.activeSession(ctx, clientID, sessionID)
		if err != nil {
			return err
		}
		last, err := s.logRepo.MaxOrderIndex(ctx, session.ID)
		if err != nil {
			return err
		}
		logs := []domain.ExerciseLog{{
			SessionID:  session.ID,
			ExerciseID: exerciseID,
			OrderIndex: last + 1,
		}}
		if err := s.logRepo.CreateMany(ctx, logs); err != nil {
			return err
		}
		added = logs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// SkipExercise marks an untouched exercise as skipped.
func (s *workoutService) SkipExercise(ctx context.Context, clientID, sessionID, exerciseLogID string) (*domain.ExerciseLog, error) {
	var out *domain.ExerciseLog
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, l, err := s.activeExerciseLog(ctx, clientID, sessionID, exerciseLogID)
		if err != nil {
			return err
		}
		sets, err := s.setRepo.ListByExerciseLog(ctx, l.ID)
		if err != nil {
			return err
		}
		if len(sets) > 0 {
			return ErrSetsAlreadyLogged
		}
		l.Skipped = true
		l.TotalVolume = 0
		out = l
		return s.logRepo.Update(ctx, l)
	})
	return out, err
}

func (s *workoutService) CompleteExercise(ctx context.Context, clientID, sessionID, exerciseLogID string) (*domain.ExerciseLog, error) {
	var out *domain.ExerciseLog
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, l, err := s.activeExerciseLog(ctx, clientID, sessionID, exerciseLogID)
		if err != nil {
			return err
		}
		sets, err := s.setRepo.ListByExerciseLog(ctx, l.ID)
		if err != nil {
			return err
		}
		now := s.now()
		l.CompletedAt = &now
		l.TotalVolume = domain.ExerciseVolume(sets)
		out = l
		return s.logRepo.Update(ctx, l)
	})
	return out, err
}

func (s *workoutService) activeSession(ctx context.Context, clientID, sessionID string) (*domain.WorkoutSession, error) {
	session, err := s.ownedSession(ctx, clientID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}
	return session, nil
}

func (s *workoutService) activeExerciseLog(ctx context.Context, clientID, sessionID, exerciseLogID string) (*domain.WorkoutSession, *domain.ExerciseLog, error) {
	session, err := s.activeSession(ctx, clientID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	l, err := s.logRepo.GetByID(ctx, exerciseLogID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrExerciseLogNotFound
		}
		return nil, nil, err
	}
	if l.SessionID != session.ID {
		return nil, nil, ErrExerciseLogNotFound
	}
	return session, l, nil
}
