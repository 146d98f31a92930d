package sqlstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

type personalBestRepo struct {
	db *gorm.DB
}

func NewPersonalBestRepo(db *gorm.DB) repository.PersonalBestRepository {
	return &personalBestRepo{db: db}
}

func (r *personalBestRepo) Get(ctx context.Context, userID, exerciseID string, metricType domain.MetricType) (*domain.PersonalBestHolder, error) {
	var holder domain.PersonalBestHolder
	err := conn(ctx, r.db).
		Where("user_id = ? AND exercise_id = ? AND metric_type = ?", userID, exerciseID, metricType).
		First(&holder).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &holder, nil
}

func (r *personalBestRepo) Upsert(ctx context.Context, holder *domain.PersonalBestHolder) error {
	holder.UpdatedAt = time.Now().UTC()
	holder.RecordedAt = holder.RecordedAt.UTC()
	return translateError(conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "exercise_id"}, {Name: "metric_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"metric_id", "exercise_log_id", "value", "recorded_at", "updated_at",
		}),
	}).Create(holder).Error)
}

func (r *personalBestRepo) CountByExerciseLog(ctx context.Context, exerciseLogID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.PersonalBestHolder{}).
		Where("exercise_log_id = ?", exerciseLogID).
		Count(&n).Error
	return n, translateError(err)
}

func (r *personalBestRepo) SetExerciseLogFlag(ctx context.Context, exerciseLogID string, flag bool) error {
	res := conn(ctx, r.db).Model(&domain.ExerciseLog{}).
		Where("id = ?", exerciseLogID).
		UpdateColumns(map[string]interface{}{
			"personal_best": flag,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
