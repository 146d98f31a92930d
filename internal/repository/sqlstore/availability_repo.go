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

type availabilityRepo struct {
	db *gorm.DB
}

func NewAvailabilityRepo(db *gorm.DB) repository.AvailabilityRepository {
	return &availabilityRepo{db: db}
}

// Upsert writes the slot keyed by (trainer, day, start time) and reloads it so the
// caller sees the id of the stored row.
func (r *availabilityRepo) Upsert(ctx context.Context, slot *domain.AvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	err := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trainer_id"}, {Name: "day_of_week"}, {Name: "start_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"end_time", "is_available", "location", "updated_at"}),
	}).Create(slot).Error
	if err != nil {
		return translateError(err)
	}

	var stored domain.AvailabilitySlot
	err = conn(ctx, r.db).
		Where("trainer_id = ? AND day_of_week = ? AND start_time = ?", slot.TrainerID, slot.DayOfWeek, slot.StartTime).
		First(&stored).Error
	if err != nil {
		return translateError(err)
	}
	*slot = stored
	return nil
}

func (r *availabilityRepo) GetByID(ctx context.Context, id string) (*domain.AvailabilitySlot, error) {
	var slot domain.AvailabilitySlot
	if err := conn(ctx, r.db).Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, translateError(err)
	}
	return &slot, nil
}

func (r *availabilityRepo) ListByTrainer(ctx context.Context, trainerID string) ([]domain.AvailabilitySlot, error) {
	var slots []domain.AvailabilitySlot
	err := conn(ctx, r.db).Where("trainer_id = ?", trainerID).
		Order("day_of_week ASC, start_time ASC").
		Find(&slots).Error
	return slots, translateError(err)
}

func (r *availabilityRepo) ListByTrainerDay(ctx context.Context, trainerID string, dayOfWeek int) ([]domain.AvailabilitySlot, error) {
	var slots []domain.AvailabilitySlot
	err := conn(ctx, r.db).Where("trainer_id = ? AND day_of_week = ?", trainerID, dayOfWeek).
		Order("start_time ASC").
		Find(&slots).Error
	return slots, translateError(err)
}

func (r *availabilityRepo) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Where("id = ?", id).Delete(&domain.AvailabilitySlot{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
