package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
)

type WorkoutHandler struct {
	workouts service.WorkoutService
	log      *logger.Logger
}

func NewWorkoutHandler(workouts service.WorkoutService, log *logger.Logger) *WorkoutHandler {
	return &WorkoutHandler{workouts: workouts, log: log}
}

// --- DTOs for Sessions ---

type StartSessionRequest struct {
	ClientID            string `json:"clientId"`
	ProgramAssignmentID string `json:"programAssignmentId"`
	WorkoutID           string `json:"workoutId"`
	Notes               string `json:"notes"`
}

type LogSetRequest struct {
	ExerciseLogID   string   `json:"exerciseLogId" binding:"required"`
	SetNumber       int      `json:"setNumber" binding:"required,min=1"`
	Reps            *int     `json:"reps" binding:"omitempty,gte=0"`
	WeightKg        *float64 `json:"weightKg" binding:"omitempty,gte=0"`
	DurationSeconds *int     `json:"durationSeconds" binding:"omitempty,gte=0"`
	RPE             *float64 `json:"rpe" binding:"omitempty,min=1,max=10"`
	RIR             *int     `json:"rir" binding:"omitempty,gte=0"`
	Notes           string   `json:"notes"`
}

type AddExerciseRequest struct {
	ExerciseID string `json:"exerciseId" binding:"required"`
}

type FinishSessionRequest struct {
	Notes string `json:"notes"`
}

// SessionResponse is a session with its exercise logs in order.
type SessionResponse struct {
	*domain.WorkoutSession
	Exercises []ExerciseLogResponse `json:"exercises"`
}

type ExerciseLogResponse struct {
	domain.ExerciseLog
	Sets    []domain.SetLog           `json:"sets"`
	Planned []domain.SetConfiguration `json:"plannedSets,omitempty"`
}

type LogSetResponse struct {
	Set          *domain.SetLog      `json:"set"`
	ExerciseLog  *domain.ExerciseLog `json:"exerciseLog"`
	PersonalBest bool                `json:"personalBest"`
}

func MapSessionDetailToResponse(d *service.SessionDetail) SessionResponse {
	resp := SessionResponse{WorkoutSession: d.Session, Exercises: make([]ExerciseLogResponse, len(d.Exercises))}
	for i, ex := range d.Exercises {
		sets := ex.Sets
		if sets == nil {
			sets = []domain.SetLog{}
		}
		resp.Exercises[i] = ExerciseLogResponse{ExerciseLog: ex.Log, Sets: sets, Planned: ex.Planned}
	}
	return resp
}

// --- Handler Methods for Sessions ---

// GetActiveSession godoc
// @Summary Get the caller's in-progress session
// @Description data is null when no session is in progress.
// @Tags Workouts
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Router /workouts/active [get]
func (h *WorkoutHandler) GetActiveSession(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	detail, err := h.workouts.GetActiveSession(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, h.log, "GetActiveSession", err)
		return
	}
	if detail == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": nil})
		return
	}
	respond(c, http.StatusOK, MapSessionDetailToResponse(detail))
}

// StartSession godoc
// @Summary Start a workout session
// @Description Returns the existing in-progress session with 200 instead of creating a second one.
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body StartSessionRequest false "Template and notes"
// @Success 201 {object} SessionResponse "Session started"
// @Success 200 {object} SessionResponse "Session already in progress"
// @Failure 400 {object} envelope "workoutId needs programAssignmentId"
// @Failure 403 {object} envelope "Not your assignment or client"
// @Router /workouts/start [post]
func (h *WorkoutHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}

	detail, created, err := h.workouts.StartSession(c.Request.Context(), caller, service.StartSessionInput{
		ClientID:            req.ClientID,
		ProgramAssignmentID: req.ProgramAssignmentID,
		WorkoutID:           req.WorkoutID,
		Notes:               req.Notes,
	})
	if err != nil {
		respondError(c, h.log, "StartSession", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(c, status, MapSessionDetailToResponse(detail))
}

// History godoc
// @Summary List past sessions
// @Tags Workouts
// @Security BearerAuth
// @Param clientId query string false "trainer only"
// @Param status query string false "in_progress|completed|abandoned"
// @Param startDate query string false "from"
// @Param endDate query string false "to"
// @Router /workouts/history [get]
func (h *WorkoutHandler) History(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	limit, offset, ok := pageQuery(c)
	if !ok {
		return
	}
	from, ok := queryTime(c, "startDate", false)
	if !ok {
		return
	}
	to, ok := queryTime(c, "endDate", true)
	if !ok {
		return
	}

	sessions, total, err := h.workouts.History(c.Request.Context(), caller, service.HistoryQuery{
		ClientID: c.Query("clientId"),
		Status:   domain.SessionStatus(c.Query("status")),
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(c, h.log, "History", err)
		return
	}
	if sessions == nil {
		sessions = []domain.WorkoutSession{}
	}
	respondList(c, sessions, total, limit, offset)
}

func (h *WorkoutHandler) GetSession(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	detail, err := h.workouts.GetSession(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetSession", err)
		return
	}
	respond(c, http.StatusOK, MapSessionDetailToResponse(detail))
}

// LogSet godoc
// @Summary Log a set on an exercise of the active session
// @Tags Workouts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param set body LogSetRequest true "Set"
// @Success 201 {object} LogSetResponse
// @Failure 409 {object} envelope "Session not active or set number already logged"
// @Router /workouts/{id}/sets [post]
func (h *WorkoutHandler) LogSet(c *gin.Context) {
	var req LogSetRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}

	res, err := h.workouts.LogSet(c.Request.Context(), caller.UserID, c.Param("id"), service.LogSetInput{
		ExerciseLogID:   req.ExerciseLogID,
		SetNumber:       req.SetNumber,
		Reps:            req.Reps,
		WeightKg:        req.WeightKg,
		DurationSeconds: req.DurationSeconds,
		RPE:             req.RPE,
		RIR:             req.RIR,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, h.log, "LogSet", err)
		return
	}
	respond(c, http.StatusCreated, LogSetResponse{Set: res.Set, ExerciseLog: res.ExerciseLog, PersonalBest: res.PersonalBest})
}

func (h *WorkoutHandler) AddExercise(c *gin.Context) {
	var req AddExerciseRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}
	log, err := h.workouts.AddExercise(c.Request.Context(), caller.UserID, c.Param("id"), req.ExerciseID)
	if err != nil {
		respondError(c, h.log, "AddExercise", err)
		return
	}
	respond(c, http.StatusCreated, log)
}

func (h *WorkoutHandler) SkipExercise(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	log, err := h.workouts.SkipExercise(c.Request.Context(), caller.UserID, c.Param("id"), c.Param("logId"))
	if err != nil {
		respondError(c, h.log, "SkipExercise", err)
		return
	}
	respond(c, http.StatusOK, log)
}

func (h *WorkoutHandler) CompleteExercise(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	log, err := h.workouts.CompleteExercise(c.Request.Context(), caller.UserID, c.Param("id"), c.Param("logId"))
	if err != nil {
		respondError(c, h.log, "CompleteExercise", err)
		return
	}
	respond(c, http.StatusOK, log)
}

// CompleteSession godoc
// @Summary Finish the active session
// @Description Computes the session summary and records volume, endurance and one-rep-max metrics.
// @Tags Workouts
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} domain.WorkoutSession
// @Failure 404 {object} envelope "No such active session"
// @Router /workouts/{id}/complete [post]
func (h *WorkoutHandler) CompleteSession(c *gin.Context) {
	var req FinishSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}
	session, err := h.workouts.CompleteSession(c.Request.Context(), caller.UserID, c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, h.log, "CompleteSession", err)
		return
	}
	respond(c, http.StatusOK, session)
}

func (h *WorkoutHandler) AbandonSession(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	session, err := h.workouts.AbandonSession(c.Request.Context(), caller.UserID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, "AbandonSession", err)
		return
	}
	respond(c, http.StatusOK, session)
}
