package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

type metricRepo struct {
	db *gorm.DB
}

func NewMetricRepo(db *gorm.DB) repository.MetricRepository {
	return &metricRepo{db: db}
}

func (r *metricRepo) Create(ctx context.Context, metric *domain.PerformanceMetric) error {
	if metric.ID == "" {
		metric.ID = uuid.NewString()
	}
	metric.CreatedAt = time.Now().UTC()
	metric.RecordedAt = metric.RecordedAt.UTC()
	return translateError(conn(ctx, r.db).Create(metric).Error)
}

func (r *metricRepo) List(ctx context.Context, f repository.MetricFilter) ([]domain.PerformanceMetric, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", f.UserID)
		if f.ExerciseID != "" {
			db = db.Where("exercise_id = ?", f.ExerciseID)
		}
		if f.MetricType != "" {
			db = db.Where("metric_type = ?", f.MetricType)
		}
		if f.From != nil {
			db = db.Where("recorded_at >= ?", f.From.UTC())
		}
		if f.To != nil {
			db = db.Where("recorded_at < ?", f.To.UTC())
		}
		return db
	}

	var total int64
	if err := conn(ctx, r.db).Model(&domain.PerformanceMetric{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}
	var metrics []domain.PerformanceMetric
	err := conn(ctx, r.db).Scopes(scope, paginate(f.Page)).
		Order("recorded_at DESC, id DESC").
		Find(&metrics).Error
	if err != nil {
		return nil, 0, translateError(err)
	}
	return metrics, total, nil
}

func (r *metricRepo) Best(ctx context.Context, userID, exerciseID string, metricType domain.MetricType) (*domain.PerformanceMetric, error) {
	var metric domain.PerformanceMetric
	err := conn(ctx, r.db).
		Where("user_id = ? AND exercise_id = ? AND metric_type = ?", userID, exerciseID, metricType).
		Order("value DESC, recorded_at DESC, id DESC").
		First(&metric).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &metric, nil
}

// personalBestsQuery keeps a metric only when no other metric of the same triple ranks above it.
// It avoids window functions so both dialects return declared column types.
const personalBestsQuery = `
SELECT m.* FROM performance_metrics m
WHERE m.user_id = ? AND m.exercise_id IS NOT NULL
	AND NOT EXISTS (
		SELECT 1 FROM performance_metrics o
		WHERE o.user_id = m.user_id
			AND o.exercise_id = m.exercise_id
			AND o.metric_type = m.metric_type
			AND (o.value > m.value
				OR (o.value = m.value AND o.recorded_at > m.recorded_at)
				OR (o.value = m.value AND o.recorded_at = m.recorded_at AND o.id > m.id))
	)
ORDER BY m.exercise_id ASC, m.metric_type ASC`

func (r *metricRepo) PersonalBests(ctx context.Context, userID string) ([]domain.PerformanceMetric, error) {
	var metrics []domain.PerformanceMetric
	err := conn(ctx, r.db).Raw(personalBestsQuery, userID).Scan(&metrics).Error
	return metrics, translateError(err)
}

func (r *metricRepo) ExistsForExerciseLog(ctx context.Context, exerciseLogID string, metricType domain.MetricType) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.PerformanceMetric{}).
		Where("exercise_log_id = ? AND metric_type = ?", exerciseLogID, metricType).
		Count(&n).Error
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}
