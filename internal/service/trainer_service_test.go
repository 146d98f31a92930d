package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
)

func TestTrainer_ClientRelationship(t *testing.T) {
	e := newEnv(t)
	svc := service.NewTrainerService(e.repos.Clients, logger.NewNop())
	client := uuid.NewString()

	rel, err := svc.AddClient(e.ctx, e.trainer, client)
	require.NoError(t, err)
	assert.True(t, rel.IsActive())

	_, err = svc.AddClient(e.ctx, e.trainer, e.trainer)
	assert.ErrorIs(t, err, service.ErrCannotManageSelf)
	_, err = svc.AddClient(e.ctx, e.trainer, "")
	assert.ErrorIs(t, err, service.ErrClientRequired)

	active, err := svc.GetManagedClients(e.ctx, e.trainer, domain.RelationActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, svc.RemoveClient(e.ctx, e.trainer, client))
	require.NoError(t, svc.RemoveClient(e.ctx, e.trainer, client))
	inactive, err := svc.GetManagedClients(e.ctx, e.trainer, domain.RelationInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, client, inactive[0].ClientID)

	// re-adding reactivates the same pair
	_, err = svc.AddClient(e.ctx, e.trainer, client)
	require.NoError(t, err)
	all, err := svc.GetManagedClients(e.ctx, e.trainer, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, svc.RemoveClient(e.ctx, e.trainer, uuid.NewString()), service.ErrRelationNotFound)
	_, err = svc.GetManagedClients(e.ctx, e.trainer, "pending")
	assert.ErrorIs(t, err, service.ErrInvalidRelationKind)
}

func TestExercise_Catalog(t *testing.T) {
	e := newEnv(t)
	svc := service.NewExerciseService(e.repos.Exercises)

	_, err := svc.CreateExercise(e.ctx, e.trainer, service.CreateExerciseInput{Name: "  "})
	assert.ErrorIs(t, err, service.ErrExerciseNameRequired)

	for _, name := range []string{"Squat", "Bench Press"} {
		_, err := svc.CreateExercise(e.ctx, e.trainer, service.CreateExerciseInput{Name: name, Equipment: "barbell"})
		require.NoError(t, err)
	}
	list, err := svc.GetExercisesByTrainer(e.ctx, e.trainer)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bench Press", list[0].Name)
}
