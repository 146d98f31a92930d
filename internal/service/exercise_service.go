package service

import (
	"context"
	"errors"
	"strings"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/repository"
)

// --- Error Definitions ---
var (
	ErrExerciseNameRequired = newError(ErrInvalidInput, "exercise name is required")
)

// --- Service Interface ---
type ExerciseService interface {
	CreateExercise(ctx context.Context, trainerID string, in CreateExerciseInput) (*domain.Exercise, error)
	GetExercisesByTrainer(ctx context.Context, trainerID string) ([]domain.Exercise, error)
}

type CreateExerciseInput struct {
	Name      string
	BodyPart  string
	Equipment string
}

// --- Service Implementation ---

// exerciseService manages a trainer's exercise catalog.
type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
	}
}

// CreateExercise adds an exercise to the trainer's catalog.
func (s *exerciseService) CreateExercise(ctx context.Context, trainerID string, in CreateExerciseInput) (*domain.Exercise, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrExerciseNameRequired
	}

	exercise := &domain.Exercise{
		TrainerID: trainerID,
		Name:      name,
		BodyPart:  strings.TrimSpace(in.BodyPart),
		Equipment: strings.TrimSpace(in.Equipment),
	}
	if err := s.exerciseRepo.Create(ctx, exercise); err != nil {
		return nil, err
	}
	return exercise, nil
}

func (s *exerciseService) GetExercisesByTrainer(ctx context.Context, trainerID string) ([]domain.Exercise, error) {
	return s.exerciseRepo.ListByTrainer(ctx, trainerID)
}

// getExercise maps a missing exercise onto ErrExerciseNotFound.
func getExercise(ctx context.Context, repo repository.ExerciseRepository, id string) (*domain.Exercise, error) {
	exercise, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}
