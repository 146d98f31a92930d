package service

import (
	"context"
	"errors"
	"time"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
	"alcyxob/trainer-core/internal/repository"
)

// aggregator keeps personal-best holders and weekly training load in step with
// the metrics they derive from. Callers run it inside the transaction of the
// source write.
type aggregator struct {
	metricRepo  repository.MetricRepository
	pbRepo      repository.PersonalBestRepository
	loadRepo    repository.TrainingLoadRepository
	sessionRepo repository.SessionRepository
	metrics     *metrics.Manager
	now         Clock
	log         *logger.Logger
}

func newAggregator(repos *repository.Repositories, m *metrics.Manager, now Clock, log *logger.Logger) *aggregator {
	return &aggregator{
		metricRepo:  repos.Metrics,
		pbRepo:      repos.PersonalBests,
		loadRepo:    repos.TrainingLoads,
		sessionRepo: repos.Sessions,
		metrics:     m,
		now:         clockOrSystem(now),
		log:         log,
	}
}

// record stores the metric and refreshes the personal best of its triple.
// It reports whether the new metric became the best.
func (a *aggregator) record(ctx context.Context, m *domain.PerformanceMetric) (bool, error) {
	if err := a.metricRepo.Create(ctx, m); err != nil {
		return false, err
	}
	if m.ExerciseID == nil {
		return false, nil
	}
	bestID, err := a.refreshPersonalBest(ctx, m.UserID, *m.ExerciseID, m.MetricType)
	if err != nil {
		return false, err
	}
	return bestID == m.ID, nil
}

// refreshPersonalBest moves the holder row to the current best metric of the
// triple and fixes the personalBest flags of the exercise logs involved.
// Running it twice without new metrics changes nothing.
func (a *aggregator) refreshPersonalBest(ctx context.Context, userID, exerciseID string, mt domain.MetricType) (string, error) {
	best, err := a.metricRepo.Best(ctx, userID, exerciseID, mt)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	var previousLog *string
	holder, err := a.pbRepo.Get(ctx, userID, exerciseID, mt)
	switch {
	case err == nil:
		if holder.MetricID == best.ID {
			return best.ID, nil
		}
		previousLog = holder.ExerciseLogID
	case errors.Is(err, repository.ErrNotFound):
	default:
		return "", err
	}

	err = a.pbRepo.Upsert(ctx, &domain.PersonalBestHolder{
		UserID:        userID,
		ExerciseID:    exerciseID,
		MetricType:    mt,
		MetricID:      best.ID,
		ExerciseLogID: best.ExerciseLogID,
		Value:         best.Value,
		RecordedAt:    best.RecordedAt,
	})
	if err != nil {
		return "", err
	}

	if best.ExerciseLogID != nil {
		if err := a.setFlag(ctx, *best.ExerciseLogID, true); err != nil {
			return "", err
		}
	}
	if previousLog != nil && (best.ExerciseLogID == nil || *previousLog != *best.ExerciseLogID) {
		// the old log may still hold another triple
		held, err := a.pbRepo.CountByExerciseLog(ctx, *previousLog)
		if err != nil {
			return "", err
		}
		if err := a.setFlag(ctx, *previousLog, held > 0); err != nil {
			return "", err
		}
	}

	a.metrics.CounterPersonalBests.Inc()
	a.log.Debug("personal best moved", "user_id", userID, "exercise_id", exerciseID,
		"metric_type", mt, "metric_id", best.ID, "value", best.Value)
	return best.ID, nil
}

func (a *aggregator) setFlag(ctx context.Context, exerciseLogID string, flag bool) error {
	err := a.pbRepo.SetExerciseLogFlag(ctx, exerciseLogID, flag)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// refreshTrainingLoad upserts the week containing at and every stored week whose
// chronic window includes it.
func (a *aggregator) refreshTrainingLoad(ctx context.Context, userID string, at time.Time) error {
	week := domain.WeekStart(at)
	following, err := a.loadRepo.ListRange(ctx, userID,
		week.AddDate(0, 0, 7), week.AddDate(0, 0, 7*(domain.ChronicWindowWeeks-1)))
	if err != nil {
		return err
	}
	weeks := []time.Time{week}
	for _, row := range following {
		weeks = append(weeks, domain.WeekStart(row.WeekStartDate))
	}

	from := week.AddDate(0, 0, -7*(domain.ChronicWindowWeeks-1))
	to := weeks[len(weeks)-1].AddDate(0, 0, 7)
	recorded, _, err := a.metricRepo.List(ctx, repository.MetricFilter{UserID: userID, From: &from, To: &to})
	if err != nil {
		return err
	}

	activity := make(map[time.Time]domain.WeekActivity, len(weeks))
	for _, ws := range weeks {
		n, err := a.sessionRepo.CountCompletedSessionSets(ctx, userID, ws, ws.AddDate(0, 0, 7))
		if err != nil {
			return err
		}
		activity[ws] = domain.WeekActivity{SetsLogged: n}
	}

	rows := domain.BuildTrainingLoads(userID, weeks, recorded, activity, a.now())
	for i := range rows {
		if err := a.loadRepo.Upsert(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}
