package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
	log             *logger.Logger
}

func NewExerciseHandler(exerciseService service.ExerciseService, log *logger.Logger) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService, log: log}
}

// CreateExerciseRequest defines the expected JSON for creating an exercise.
type CreateExerciseRequest struct {
	Name      string `json:"name" binding:"required"`
	BodyPart  string `json:"bodyPart"`  // e.g. "Chest", "Legs"
	Equipment string `json:"equipment"` // e.g. "Barbell"
}

// CreateExercise godoc
// @Summary Create a new exercise
// @Description Adds an exercise to the authenticated trainer's catalog.
// @Tags Exercises
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param exercise body CreateExerciseRequest true "Exercise details"
// @Success 201 {object} domain.Exercise "Exercise created successfully"
// @Failure 400 {object} envelope "Invalid input (validation error)"
// @Failure 401 {object} envelope "Unauthorized"
// @Failure 403 {object} envelope "Forbidden (not a trainer)"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req CreateExerciseRequest
	if !bindJSON(c, &req) {
		return
	}
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), trainerID, service.CreateExerciseInput{
		Name:      req.Name,
		BodyPart:  req.BodyPart,
		Equipment: req.Equipment,
	})
	if err != nil {
		respondError(c, h.log, "CreateExercise", err)
		return
	}
	respond(c, http.StatusCreated, exercise)
}

// GetTrainerExercises godoc
// @Summary Get exercises for the authenticated trainer
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Exercise "List of exercises"
// @Router /exercises [get]
func (h *ExerciseHandler) GetTrainerExercises(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	exercises, err := h.exerciseService.GetExercisesByTrainer(c.Request.Context(), trainerID)
	if err != nil {
		respondError(c, h.log, "GetTrainerExercises", err)
		return
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	respond(c, http.StatusOK, exercises)
}
