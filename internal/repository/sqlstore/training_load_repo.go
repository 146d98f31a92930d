package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

type trainingLoadRepo struct {
	db *gorm.DB
}

func NewTrainingLoadRepo(db *gorm.DB) repository.TrainingLoadRepository {
	return &trainingLoadRepo{db: db}
}

// Upsert replaces the values of the (user, week) row and reloads it, so a
// recomputed week keeps the id it was first stored with.
func (r *trainingLoadRepo) Upsert(ctx context.Context, load *domain.TrainingLoad) error {
	if load.ID == "" {
		load.ID = uuid.NewString()
	}
	load.WeekStartDate = domain.WeekStart(load.WeekStartDate)

	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "week_start_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"load", "total_volume", "total_reps", "total_sets", "training_days",
			"acute_load", "chronic_load", "load_ratio", "calculated_at",
		}),
	}).Create(load).Error
	if err != nil {
		return translateError(err)
	}

	var stored domain.TrainingLoad
	err = conn(ctx, r.db).
		Where("user_id = ? AND week_start_date = ?", load.UserID, load.WeekStartDate).
		First(&stored).Error
	if err != nil {
		return translateError(err)
	}
	*load = stored
	return nil
}

func (r *trainingLoadRepo) ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.TrainingLoad, error) {
	var loads []domain.TrainingLoad
	err := conn(ctx, r.db).
		Where("user_id = ? AND week_start_date >= ? AND week_start_date <= ?", userID, from.UTC(), to.UTC()).
		Order("week_start_date ASC").
		Find(&loads).Error
	return loads, translateError(err)
}
