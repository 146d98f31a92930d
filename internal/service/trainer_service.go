package service

import (
	"context"
	"errors"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/repository"
)

// --- Error Definitions ---
var (
	ErrClientRequired      = newError(ErrInvalidInput, "client id is required")
	ErrCannotManageSelf    = newError(ErrInvalidInput, "a trainer can not add themselves as a client")
	ErrRelationNotFound    = newError(ErrNotFound, "client is not managed by this trainer")
	ErrInvalidRelationKind = newError(ErrInvalidInput, "status must be active or inactive")
)

// --- Service Interface ---
type TrainerService interface {
	// Client Management
	AddClient(ctx context.Context, trainerID, clientID string) (*domain.TrainerClient, error)
	GetManagedClients(ctx context.Context, trainerID string, status domain.RelationStatus) ([]domain.TrainerClient, error)
	RemoveClient(ctx context.Context, trainerID, clientID string) error
}

// --- Service Implementation ---

// trainerService manages trainer-client relationships. Profiles live in the
// identity service; only the pair and its status are stored here.
type trainerService struct {
	clientRepo repository.TrainerClientRepository
	log        *logger.Logger
}

// NewTrainerService creates a new instance of trainerService.
func NewTrainerService(clientRepo repository.TrainerClientRepository, baseLog *logger.Logger) TrainerService {
	return &trainerService{
		clientRepo: clientRepo,
		log:        baseLog.With("service", "TrainerService"),
	}
}

// AddClient activates (or re-activates) the relationship with the client.
func (s *trainerService) AddClient(ctx context.Context, trainerID, clientID string) (*domain.TrainerClient, error) {
	// 1. Validate Input
	if clientID == "" {
		return nil, ErrClientRequired
	}
	if clientID == trainerID {
		return nil, ErrCannotManageSelf
	}

	// 2. Upsert the pair as active
	rel := &domain.TrainerClient{
		TrainerID: trainerID,
		ClientID:  clientID,
		Status:    domain.RelationActive,
	}
	if err := s.clientRepo.Upsert(ctx, rel); err != nil {
		s.log.Error("failed to add client", "trainer_id", trainerID, "client_id", clientID, "error", err)
		return nil, err
	}
	return rel, nil
}

// GetManagedClients lists the trainer's relationships, optionally by status.
func (s *trainerService) GetManagedClients(ctx context.Context, trainerID string, status domain.RelationStatus) ([]domain.TrainerClient, error) {
	if status != "" && status != domain.RelationActive && status != domain.RelationInactive {
		return nil, ErrInvalidRelationKind
	}
	return s.clientRepo.ListByTrainer(ctx, trainerID, status)
}

// RemoveClient deactivates the relationship. History stays attached to the pair.
func (s *trainerService) RemoveClient(ctx context.Context, trainerID, clientID string) error {
	rel, err := s.clientRepo.Get(ctx, trainerID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRelationNotFound
		}
		return err
	}
	if !rel.IsActive() {
		return nil
	}
	rel.Status = domain.RelationInactive
	return s.clientRepo.Upsert(ctx, rel)
}

// requireActiveRelation fails with ErrClientNotManaged unless the pair is active.
func requireActiveRelation(ctx context.Context, repo repository.TrainerClientRepository, trainerID, clientID string) error {
	rel, err := repo.Get(ctx, trainerID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotManaged
		}
		return err
	}
	if !rel.IsActive() {
		return ErrClientNotManaged
	}
	return nil
}
