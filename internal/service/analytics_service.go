package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/storage"
	"alcyxob/trainer-core/internal/telemetry"
)

// --- Error Definitions ---
var (
	ErrAnalyticsForbidden = newError(ErrForbidden, "you can not access analytics of this user")
	ErrInvalidMetricType  = newError(ErrInvalidInput, "invalid metric type")
	ErrInvalidMetricValue = newError(ErrInvalidInput, "metric value must be a non-negative number")
	ErrInvalidWeeks       = newError(ErrInvalidInput, "weeks must be between 1 and 52")
	ErrReportsDisabled    = newError(ErrNotFound, "report export is not enabled")
)

const (
	defaultLoadWeeks   = 4
	maxLoadWeeks       = 52
	reportHistoryWeeks = 12
)

// --- Service Interface ---
type AnalyticsService interface {
	RecordMetric(ctx context.Context, caller domain.Principal, in RecordMetricInput) (*MetricResult, error)
	ListMetrics(ctx context.Context, caller domain.Principal, q MetricQuery) ([]domain.PerformanceMetric, int64, error)
	GetPersonalBests(ctx context.Context, caller domain.Principal, userID string) ([]domain.PersonalBest, error)
	GetTrainingLoad(ctx context.Context, caller domain.Principal, userID string, from time.Time, weeks int) ([]domain.TrainingLoad, error)
	ExportReport(ctx context.Context, caller domain.Principal, userID string) (*domain.Report, error)
}

type RecordMetricInput struct {
	// UserID defaults to the caller; trainers may record for managed clients.
	UserID     string
	ExerciseID string
	MetricType domain.MetricType
	Value      float64
	Unit       string
	RecordedAt time.Time
	Notes      string
}

type MetricResult struct {
	Metric       *domain.PerformanceMetric
	PersonalBest bool
}

type MetricQuery struct {
	UserID     string
	ExerciseID string
	MetricType domain.MetricType
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// --- Service Implementation ---

type analyticsService struct {
	tx           repository.Transactor
	metricRepo   repository.MetricRepository
	loadRepo     repository.TrainingLoadRepository
	exerciseRepo repository.ExerciseRepository
	clientRepo   repository.TrainerClientRepository
	agg          *aggregator
	files        storage.FileStorage // nil disables report export
	now          Clock
	log          *logger.Logger
}

func NewAnalyticsService(repos *repository.Repositories, files storage.FileStorage, m *metrics.Manager, clock Clock, baseLog *logger.Logger) AnalyticsService {
	log := baseLog.With("service", "AnalyticsService")
	now := clockOrSystem(clock)
	return &analyticsService{
		tx:           repos.Transactor,
		metricRepo:   repos.Metrics,
		loadRepo:     repos.TrainingLoads,
		exerciseRepo: repos.Exercises,
		clientRepo:   repos.Clients,
		agg:          newAggregator(repos, m, now, log),
		files:        files,
		now:          now,
		log:          log,
	}
}

// subject resolves whose analytics the caller is addressing.
func (s *analyticsService) subject(ctx context.Context, caller domain.Principal, userID string) (string, error) {
	if userID == "" || userID == "me" || userID == caller.UserID {
		return caller.UserID, nil
	}
	switch caller.Role {
	case domain.RoleAdmin:
		return userID, nil
	case domain.RoleTrainer:
		if err := requireActiveRelation(ctx, s.clientRepo, caller.UserID, userID); err != nil {
			if errors.Is(err, ErrClientNotManaged) {
				return "", ErrAnalyticsForbidden
			}
			return "", err
		}
		return userID, nil
	}
	return "", ErrAnalyticsForbidden
}

func (s *analyticsService) RecordMetric(ctx context.Context, caller domain.Principal, in RecordMetricInput) (*MetricResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "AnalyticsService.RecordMetric")
	defer span.End()

	// 1. Validate Input
	if !in.MetricType.Valid() {
		return nil, ErrInvalidMetricType
	}
	if in.Value < 0 || math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
		return nil, ErrInvalidMetricValue
	}
	userID, err := s.subject(ctx, caller, in.UserID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("metric.type", string(in.MetricType)))

	metric := &domain.PerformanceMetric{
		UserID:     userID,
		MetricType: in.MetricType,
		Value:      in.Value,
		Unit:       in.Unit,
		RecordedAt: in.RecordedAt,
		Notes:      in.Notes,
	}
	if metric.RecordedAt.IsZero() {
		metric.RecordedAt = s.now()
	}
	if in.ExerciseID != "" {
		if _, err := getExercise(ctx, s.exerciseRepo, in.ExerciseID); err != nil {
			return nil, err
		}
		metric.ExerciseID = &in.ExerciseID
	}

	// 2. Store and refresh derived rows together
	result := &MetricResult{Metric: metric}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		best, err := s.agg.record(ctx, metric)
		if err != nil {
			return err
		}
		result.PersonalBest = best
		if domain.ContributesToLoad(metric.MetricType) || metric.MetricType == domain.MetricEndurance {
			return s.agg.refreshTrainingLoad(ctx, userID, metric.RecordedAt)
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to record metric", "user_id", userID, "metric_type", in.MetricType, "error", err)
		return nil, err
	}
	return result, nil
}

func (s *analyticsService) ListMetrics(ctx context.Context, caller domain.Principal, q MetricQuery) ([]domain.PerformanceMetric, int64, error) {
	if q.MetricType != "" && !q.MetricType.Valid() {
		return nil, 0, ErrInvalidMetricType
	}
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		return nil, 0, ErrInvalidDateRange
	}
	limit, offset, err := normalizePage(q.Limit, q.Offset)
	if err != nil {
		return nil, 0, err
	}
	userID, err := s.subject(ctx, caller, q.UserID)
	if err != nil {
		return nil, 0, err
	}
	return s.metricRepo.List(ctx, repository.MetricFilter{
		UserID:     userID,
		ExerciseID: q.ExerciseID,
		MetricType: q.MetricType,
		From:       q.From,
		To:         q.To,
		Page:       repository.Page{Limit: limit, Offset: offset},
	})
}

// GetPersonalBests returns one row per (exercise, metric type), ordered by
// exercise then metric type. It only reads.
func (s *analyticsService) GetPersonalBests(ctx context.Context, caller domain.Principal, userID string) ([]domain.PersonalBest, error) {
	userID, err := s.subject(ctx, caller, userID)
	if err != nil {
		return nil, err
	}
	return s.personalBests(ctx, userID)
}

func (s *analyticsService) personalBests(ctx context.Context, userID string) ([]domain.PersonalBest, error) {
	best, err := s.metricRepo.PersonalBests(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	out := make([]domain.PersonalBest, 0, len(best))
	for _, m := range best {
		if m.ExerciseID == nil {
			continue
		}
		name, ok := names[*m.ExerciseID]
		if !ok {
			exercise, err := s.exerciseRepo.GetByID(ctx, *m.ExerciseID)
			switch {
			case err == nil:
				name = exercise.Name
			case !errors.Is(err, repository.ErrNotFound):
				return nil, err
			}
			names[*m.ExerciseID] = name
		}
		out = append(out, domain.PersonalBest{
			ExerciseID: *m.ExerciseID,
			Exercise:   name,
			MetricType: m.MetricType,
			Value:      m.Value,
			Unit:       m.Unit,
			RecordedAt: m.RecordedAt,
			MetricID:   m.ID,
		})
	}
	return out, nil
}

// GetTrainingLoad returns stored weeks in [weekStart(from), +weeks) ascending.
// A zero from ends the range at the current week.
func (s *analyticsService) GetTrainingLoad(ctx context.Context, caller domain.Principal, userID string, from time.Time, weeks int) ([]domain.TrainingLoad, error) {
	if weeks == 0 {
		weeks = defaultLoadWeeks
	}
	if weeks < 1 || weeks > maxLoadWeeks {
		return nil, ErrInvalidWeeks
	}
	userID, err := s.subject(ctx, caller, userID)
	if err != nil {
		return nil, err
	}
	return s.trainingLoad(ctx, userID, from, weeks)
}

func (s *analyticsService) trainingLoad(ctx context.Context, userID string, from time.Time, weeks int) ([]domain.TrainingLoad, error) {
	var start time.Time
	if from.IsZero() {
		start = domain.WeekStart(s.now()).AddDate(0, 0, -7*(weeks-1))
	} else {
		start = domain.WeekStart(from)
	}
	return s.loadRepo.ListRange(ctx, userID, start, start.AddDate(0, 0, 7*(weeks-1)))
}

type reportDocument struct {
	UserID        string                `json:"userId"`
	GeneratedAt   time.Time             `json:"generatedAt"`
	PersonalBests []domain.PersonalBest `json:"personalBests"`
	TrainingLoad  []domain.TrainingLoad `json:"trainingLoad"`
}

// ExportReport uploads a JSON snapshot of personal bests and recent training
// load and returns a presigned link to it.
func (s *analyticsService) ExportReport(ctx context.Context, caller domain.Principal, userID string) (*domain.Report, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "AnalyticsService.ExportReport")
	defer span.End()

	if s.files == nil {
		return nil, ErrReportsDisabled
	}
	userID, err := s.subject(ctx, caller, userID)
	if err != nil {
		return nil, err
	}

	// 1. Collect
	now := s.now()
	bests, err := s.personalBests(ctx, userID)
	if err != nil {
		return nil, err
	}
	load, err := s.trainingLoad(ctx, userID, time.Time{}, reportHistoryWeeks)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(reportDocument{
		UserID:        userID,
		GeneratedAt:   now,
		PersonalBests: bests,
		TrainingLoad:  load,
	})
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	// 2. Upload and sign
	key := fmt.Sprintf("reports/%s/%s.json", userID, now.Format("20060102T150405Z"))
	span.SetAttributes(attribute.String("report.key", key))
	if err := s.files.PutObject(ctx, key, body, "application/json"); err != nil {
		s.log.Error("failed to upload report", "user_id", userID, "key", key, "error", err)
		return nil, err
	}
	url, err := s.files.GeneratePresignedDownloadURL(ctx, key, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.log.Error("failed to presign report", "user_id", userID, "key", key, "error", err)
		if delErr := s.files.DeleteObject(ctx, key); delErr != nil {
			s.log.Warn("failed to remove unsigned report", "key", key, "error", delErr)
		}
		return nil, err
	}

	return &domain.Report{
		ObjectKey:   key,
		DownloadURL: url,
		ExpiresAt:   now.Add(storage.DefaultPresignedURLExpiry),
		GeneratedAt: now,
	}, nil
}
