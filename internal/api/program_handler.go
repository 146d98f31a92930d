package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
)

type ProgramHandler struct {
	programs service.ProgramService
	log      *logger.Logger
}

func NewProgramHandler(programs service.ProgramService, log *logger.Logger) *ProgramHandler {
	return &ProgramHandler{programs: programs, log: log}
}

// --- DTOs for Programs ---

type CreateProgramRequest struct {
	Name          string               `json:"name" binding:"required"`
	Description   string               `json:"description"`
	DurationWeeks int                  `json:"durationWeeks" binding:"required,min=1,max=52"`
	Weeks         []ProgramWeekRequest `json:"weeks" binding:"dive"`
}

type ProgramWeekRequest struct {
	WeekNumber int                     `json:"weekNumber" binding:"required,min=1"`
	Name       string                  `json:"name"`
	IsDeload   bool                    `json:"isDeload"`
	Workouts   []ProgramWorkoutRequest `json:"workouts" binding:"dive"`
}

type ProgramWorkoutRequest struct {
	DayNumber int                      `json:"dayNumber" binding:"required,min=1,max=7"`
	Name      string                   `json:"name"`
	IsRestDay bool                     `json:"isRestDay"`
	Exercises []WorkoutExerciseRequest `json:"exercises" binding:"dive"`
}

type WorkoutExerciseRequest struct {
	ExerciseID    string             `json:"exerciseId" binding:"required"`
	SupersetGroup string             `json:"supersetGroup"`
	Notes         string             `json:"notes"`
	Sets          []SetConfigRequest `json:"sets" binding:"dive"`
}

type SetConfigRequest struct {
	Reps            string   `json:"reps"`
	WeightKg        *float64 `json:"weightKg" binding:"omitempty,gte=0"`
	RPE             *float64 `json:"rpe" binding:"omitempty,min=1,max=10"`
	RestSeconds     *int     `json:"restSeconds" binding:"omitempty,gte=0"`
	DurationSeconds *int     `json:"durationSeconds" binding:"omitempty,gte=0"`
}

type AssignProgramRequest struct {
	ClientID  string `json:"clientId" binding:"required"`
	StartDate string `json:"startDate" binding:"required,datetime=2006-01-02"`
}

// ProgramResponse nests the template rows under their parents.
type ProgramResponse struct {
	domain.Program
	Weeks []ProgramWeekResponse `json:"weeks"`
}

type ProgramWeekResponse struct {
	domain.ProgramWeek
	Workouts []ProgramWorkoutResponse `json:"workouts"`
}

type ProgramWorkoutResponse struct {
	domain.ProgramWorkout
	Exercises []WorkoutExerciseResponse `json:"exercises"`
}

type WorkoutExerciseResponse struct {
	domain.WorkoutExercise
	Sets []domain.SetConfiguration `json:"sets"`
}

// AssignmentResponse renders calendar dates as YYYY-MM-DD.
type AssignmentResponse struct {
	ID        string                 `json:"id"`
	ProgramID string                 `json:"programId"`
	ClientID  string                 `json:"clientId"`
	TrainerID string                 `json:"trainerId"`
	StartDate string                 `json:"startDate"`
	EndDate   string                 `json:"endDate"`
	IsActive  bool                   `json:"isActive"`
	Schedule  []WeekScheduleResponse `json:"schedule,omitempty"`
}

type WeekScheduleResponse struct {
	WeekNumber int    `json:"weekNumber"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	IsDeload   bool   `json:"isDeload"`
}

// MapProgramTreeToResponse folds the flat tree rows into nested form.
func MapProgramTreeToResponse(tree *domain.ProgramTree) ProgramResponse {
	sets := make(map[string][]domain.SetConfiguration)
	for _, cfg := range tree.Configurations {
		sets[cfg.WorkoutExerciseID] = append(sets[cfg.WorkoutExerciseID], cfg)
	}
	exercises := make(map[string][]WorkoutExerciseResponse)
	for _, ex := range tree.Exercises {
		planned := sets[ex.ID]
		if planned == nil {
			planned = []domain.SetConfiguration{}
		}
		exercises[ex.WorkoutID] = append(exercises[ex.WorkoutID], WorkoutExerciseResponse{WorkoutExercise: ex, Sets: planned})
	}
	workouts := make(map[string][]ProgramWorkoutResponse)
	for _, w := range tree.Workouts {
		exs := exercises[w.ID]
		if exs == nil {
			exs = []WorkoutExerciseResponse{}
		}
		workouts[w.WeekID] = append(workouts[w.WeekID], ProgramWorkoutResponse{ProgramWorkout: w, Exercises: exs})
	}

	resp := ProgramResponse{Program: tree.Program, Weeks: make([]ProgramWeekResponse, 0, len(tree.Weeks))}
	for _, wk := range tree.Weeks {
		ws := workouts[wk.ID]
		if ws == nil {
			ws = []ProgramWorkoutResponse{}
		}
		resp.Weeks = append(resp.Weeks, ProgramWeekResponse{ProgramWeek: wk, Workouts: ws})
	}
	return resp
}

func MapAssignmentToResponse(a *domain.ProgramAssignment, schedule []domain.WeekSchedule) AssignmentResponse {
	resp := AssignmentResponse{
		ID:        a.ID,
		ProgramID: a.ProgramID,
		ClientID:  a.ClientID,
		TrainerID: a.TrainerID,
		StartDate: a.StartDate.Format(domain.DateLayout),
		EndDate:   a.EndDate.Format(domain.DateLayout),
		IsActive:  a.IsActive,
	}
	for _, w := range schedule {
		resp.Schedule = append(resp.Schedule, WeekScheduleResponse{
			WeekNumber: w.WeekNumber,
			StartDate:  w.StartDate.Format(domain.DateLayout),
			EndDate:    w.EndDate.Format(domain.DateLayout),
			IsDeload:   w.IsDeload,
		})
	}
	return resp
}

func (r CreateProgramRequest) toInput() service.CreateProgramInput {
	in := service.CreateProgramInput{
		Name:          r.Name,
		Description:   r.Description,
		DurationWeeks: r.DurationWeeks,
	}
	for _, wk := range r.Weeks {
		week := service.ProgramWeekInput{WeekNumber: wk.WeekNumber, Name: wk.Name, IsDeload: wk.IsDeload}
		for _, w := range wk.Workouts {
			workout := service.ProgramWorkoutInput{DayNumber: w.DayNumber, Name: w.Name, IsRestDay: w.IsRestDay}
			for _, ex := range w.Exercises {
				exercise := service.WorkoutExerciseInput{
					ExerciseID:    ex.ExerciseID,
					SupersetGroup: ex.SupersetGroup,
					Notes:         ex.Notes,
				}
				for _, s := range ex.Sets {
					exercise.Sets = append(exercise.Sets, service.SetConfigurationInput{
						Reps:            s.Reps,
						WeightKg:        s.WeightKg,
						RPE:             s.RPE,
						RestSeconds:     s.RestSeconds,
						DurationSeconds: s.DurationSeconds,
					})
				}
				workout.Exercises = append(workout.Exercises, exercise)
			}
			week.Workouts = append(week.Workouts, workout)
		}
		in.Weeks = append(in.Weeks, week)
	}
	return in
}

// --- Handler Methods for Programs ---

// CreateProgram godoc
// @Summary Create a program template
// @Description Stores the program with its weeks, workouts, exercises and set configurations.
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param program body CreateProgramRequest true "Program template"
// @Success 201 {object} ProgramResponse
// @Failure 400 {object} envelope "Invalid template or unknown exercise"
// @Failure 403 {object} envelope "Forbidden (not a trainer)"
// @Router /programs [post]
func (h *ProgramHandler) CreateProgram(c *gin.Context) {
	var req CreateProgramRequest
	if !bindJSON(c, &req) {
		return
	}
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}

	tree, err := h.programs.CreateProgram(c.Request.Context(), trainerID, req.toInput())
	if err != nil {
		respondError(c, h.log, "CreateProgram", err)
		return
	}
	respond(c, http.StatusCreated, MapProgramTreeToResponse(tree))
}

// ListPrograms godoc
// @Summary List the trainer's programs
// @Tags Programs
// @Security BearerAuth
// @Success 200 {array} domain.Program
// @Router /programs [get]
func (h *ProgramHandler) ListPrograms(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	programs, err := h.programs.ListPrograms(c.Request.Context(), trainerID)
	if err != nil {
		respondError(c, h.log, "ListPrograms", err)
		return
	}
	if programs == nil {
		programs = []domain.Program{}
	}
	respond(c, http.StatusOK, programs)
}

func (h *ProgramHandler) GetProgram(c *gin.Context) {
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	tree, err := h.programs.GetProgram(c.Request.Context(), trainerID, c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetProgram", err)
		return
	}
	respond(c, http.StatusOK, MapProgramTreeToResponse(tree))
}

// AssignProgram godoc
// @Summary Assign a program to a client
// @Description endDate = startDate + durationWeeks*7 - 1 days. The response carries the weekly calendar.
// @Tags Programs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Program ID"
// @Param assignment body AssignProgramRequest true "Client and start date"
// @Success 201 {object} AssignmentResponse
// @Failure 403 {object} envelope "Client not managed by trainer"
// @Failure 404 {object} envelope "Program not found"
// @Router /programs/{id}/assign [post]
func (h *ProgramHandler) AssignProgram(c *gin.Context) {
	var req AssignProgramRequest
	if !bindJSON(c, &req) {
		return
	}
	trainerID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify trainer from token.")
		return
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}

	res, err := h.programs.AssignProgram(c.Request.Context(), trainerID, c.Param("id"), service.AssignProgramInput{
		ClientID:  req.ClientID,
		StartDate: start,
	})
	if err != nil {
		respondError(c, h.log, "AssignProgram", err)
		return
	}
	respond(c, http.StatusCreated, MapAssignmentToResponse(res.Assignment, res.Schedule))
}

// ListAssignments returns the trainer's assignments, or the client's own.
func (h *ProgramHandler) ListAssignments(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	assignments, err := h.programs.ListAssignments(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.log, "ListAssignments", err)
		return
	}
	out := make([]AssignmentResponse, len(assignments))
	for i := range assignments {
		out[i] = MapAssignmentToResponse(&assignments[i], nil)
	}
	respond(c, http.StatusOK, out)
}
