package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/testutil"
)

func TestWorkoutHandler_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	ctok := s.clientToken(t)
	bench := testutil.SeedExercise(t, context.Background(), s.repos, s.trainer)

	rr, resp := s.do(t, http.MethodGet, "/api/v1/workouts/active", ctok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "null", string(resp.Data))

	rr, resp = s.do(t, http.MethodPost, "/api/v1/workouts/start", ctok, gin.H{"notes": "push day"})
	require.Equal(t, http.StatusCreated, rr.Code, resp.Error)
	var session SessionResponse
	decodeData(t, resp, &session)
	require.NotNil(t, session.WorkoutSession)
	assert.Equal(t, domain.SessionInProgress, session.Status)

	// starting again hands back the running session
	rr, resp = s.do(t, http.MethodPost, "/api/v1/workouts/start", ctok, gin.H{})
	require.Equal(t, http.StatusOK, rr.Code, resp.Error)
	var again SessionResponse
	decodeData(t, resp, &again)
	assert.Equal(t, session.ID, again.ID)

	base := "/api/v1/workouts/" + session.ID
	rr, resp = s.do(t, http.MethodPost, base+"/exercises", ctok, gin.H{"exerciseId": bench.ID})
	require.Equal(t, http.StatusCreated, rr.Code, resp.Error)
	var exLog domain.ExerciseLog
	decodeData(t, resp, &exLog)

	rr, resp = s.do(t, http.MethodPost, base+"/sets", ctok, gin.H{
		"exerciseLogId": exLog.ID,
		"setNumber":     1,
		"reps":          10,
		"weightKg":      60,
		"rpe":           8,
	})
	require.Equal(t, http.StatusCreated, rr.Code, resp.Error)
	var logged LogSetResponse
	decodeData(t, resp, &logged)
	assert.True(t, logged.PersonalBest)
	assert.InDelta(t, 600, logged.ExerciseLog.TotalVolume, 1e-9)

	rr, _ = s.do(t, http.MethodPost, base+"/sets", ctok, gin.H{"exerciseLogId": exLog.ID, "setNumber": 1, "reps": 8, "weightKg": 60})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr, _ = s.do(t, http.MethodPost, base+"/sets", ctok, gin.H{"exerciseLogId": exLog.ID, "setNumber": 0, "reps": 8})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// the trainer sees the client's session detail
	rr, resp = s.do(t, http.MethodGet, base, s.trainerToken(t), nil)
	require.Equal(t, http.StatusOK, rr.Code, resp.Error)
	var detail SessionResponse
	decodeData(t, resp, &detail)
	require.Len(t, detail.Exercises, 1)
	assert.Len(t, detail.Exercises[0].Sets, 1)

	rr, resp = s.do(t, http.MethodPost, base+"/complete", ctok, gin.H{"notes": "felt strong"})
	require.Equal(t, http.StatusOK, rr.Code, resp.Error)
	var done domain.WorkoutSession
	decodeData(t, resp, &done)
	assert.Equal(t, domain.SessionCompleted, done.Status)

	rr, _ = s.do(t, http.MethodPost, base+"/sets", ctok, gin.H{"exerciseLogId": exLog.ID, "setNumber": 2, "reps": 8, "weightKg": 60})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr, _ = s.do(t, http.MethodPost, base+"/abandon", ctok, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, resp = s.do(t, http.MethodGet, "/api/v1/workouts/history", ctok, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, resp.Meta)
	assert.EqualValues(t, 1, resp.Meta.Total)
}

func TestWorkoutHandler_StartValidation(t *testing.T) {
	s := newTestServer(t)

	rr, _ := s.do(t, http.MethodPost, "/api/v1/workouts/start", s.clientToken(t), gin.H{"workoutId": "w1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// a trainer starts on behalf of a managed client only
	rr, _ = s.do(t, http.MethodPost, "/api/v1/workouts/start", s.trainerToken(t), gin.H{"clientId": "stranger"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr, resp := s.do(t, http.MethodPost, "/api/v1/workouts/start", s.trainerToken(t), gin.H{"clientId": s.client})
	require.Equal(t, http.StatusCreated, rr.Code, resp.Error)
}
