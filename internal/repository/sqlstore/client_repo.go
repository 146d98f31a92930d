package sqlstore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

type trainerClientRepo struct {
	db *gorm.DB
}

func NewTrainerClientRepo(db *gorm.DB) repository.TrainerClientRepository {
	return &trainerClientRepo{db: db}
}

func (r *trainerClientRepo) Upsert(ctx context.Context, rel *domain.TrainerClient) error {
	now := time.Now().UTC()
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = now
	}
	rel.UpdatedAt = now
	return translateError(conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trainer_id"}, {Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(rel).Error)
}

func (r *trainerClientRepo) Get(ctx context.Context, trainerID, clientID string) (*domain.TrainerClient, error) {
	var rel domain.TrainerClient
	err := conn(ctx, r.db).Where("trainer_id = ? AND client_id = ?", trainerID, clientID).First(&rel).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &rel, nil
}

func (r *trainerClientRepo) ListByTrainer(ctx context.Context, trainerID string, status domain.RelationStatus) ([]domain.TrainerClient, error) {
	q := conn(ctx, r.db).Where("trainer_id = ?", trainerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rels []domain.TrainerClient
	err := q.Order("created_at ASC").Find(&rels).Error
	return rels, translateError(err)
}
