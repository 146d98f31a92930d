package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/trainer-core/internal/domain"
)

func TestProgramHandler_CreateAndAssign(t *testing.T) {
	s := newTestServer(t)
	tok := s.trainerToken(t)

	rr, resp := s.do(t, http.MethodPost, "/api/v1/exercises", tok, gin.H{"name": "Back Squat", "bodyPart": "legs"})
	require.Equal(t, http.StatusCreated, rr.Code, resp.Error)
	var squat domain.Exercise
	decodeData(t, resp, &squat)

	rr, resp = s.do(t, http.MethodPost, "/api/v1/programs", tok, gin.H{
		"name":          "Strength Block",
		"durationWeeks": 12,
		"weeks": []gin.H{
			{
				"weekNumber": 1,
				"name":       "Intro",
				"workouts": []gin.H{{
					"dayNumber": 1,
					"name":      "Lower",
					"exercises": []gin.H{{
						"exerciseId": squat.ID,
						"sets":       []gin.H{{"reps": "5", "weightKg": 100}, {"reps": "5", "weightKg": 100}},
					}},
				}},
			},
			{"weekNumber": 4, "name": "Deload", "isDeload": true},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, resp.Error)
	var program ProgramResponse
	decodeData(t, resp, &program)
	assert.Equal(t, "Strength Block", program.Name)
	require.Len(t, program.Weeks, 2)
	require.Len(t, program.Weeks[0].Workouts, 1)
	require.Len(t, program.Weeks[0].Workouts[0].Exercises, 1)
	assert.Len(t, program.Weeks[0].Workouts[0].Exercises[0].Sets, 2)
	assert.Empty(t, program.Weeks[1].Workouts)

	rr, resp = s.do(t, http.MethodPost, "/api/v1/programs/"+program.ID+"/assign", tok, gin.H{
		"clientId":  s.client,
		"startDate": "2026-02-20",
	})
	require.Equal(t, http.StatusCreated, rr.Code, resp.Error)
	var assignment AssignmentResponse
	decodeData(t, resp, &assignment)
	assert.Equal(t, "2026-02-20", assignment.StartDate)
	assert.Equal(t, "2026-05-15", assignment.EndDate)
	require.Len(t, assignment.Schedule, 12)
	assert.True(t, assignment.Schedule[3].IsDeload)
	assert.Equal(t, "2026-03-13", assignment.Schedule[3].StartDate)

	rr, resp = s.do(t, http.MethodGet, "/api/v1/assignments", s.clientToken(t), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var mine []AssignmentResponse
	decodeData(t, resp, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, assignment.ID, mine[0].ID)
}

func TestProgramHandler_Validation(t *testing.T) {
	s := newTestServer(t)
	tok := s.trainerToken(t)

	tests := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"missing name", gin.H{"durationWeeks": 4}, http.StatusBadRequest},
		{"too long", gin.H{"name": "Year", "durationWeeks": 53}, http.StatusBadRequest},
		{"bad weekday", gin.H{"name": "P", "durationWeeks": 4, "weeks": []gin.H{{"weekNumber": 1, "workouts": []gin.H{{"dayNumber": 8}}}}}, http.StatusBadRequest},
		{"week beyond duration", gin.H{"name": "P", "durationWeeks": 4, "weeks": []gin.H{{"weekNumber": 5}}}, http.StatusBadRequest},
		{"unknown exercise", gin.H{"name": "P", "durationWeeks": 4, "weeks": []gin.H{{"weekNumber": 1, "workouts": []gin.H{{"dayNumber": 1, "exercises": []gin.H{{"exerciseId": "nope"}}}}}}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, resp := s.do(t, http.MethodPost, "/api/v1/programs", tok, tt.body)
			assert.Equal(t, tt.status, rr.Code, resp.Error)
		})
	}

	rr, _ := s.do(t, http.MethodPost, "/api/v1/programs/missing/assign", tok, gin.H{"clientId": s.client, "startDate": "20-02-2026"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = s.do(t, http.MethodPost, "/api/v1/programs/missing/assign", tok, gin.H{"clientId": s.client, "startDate": "2026-02-20"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
