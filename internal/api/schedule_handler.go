package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
)

// ScheduleHandler serves appointments, conflict checks and availability.
type ScheduleHandler struct {
	scheduling service.SchedulingService
	log        *logger.Logger
}

func NewScheduleHandler(scheduling service.SchedulingService, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduling: scheduling, log: log}
}

// --- DTOs ---

type CreateAppointmentRequest struct {
	ClientID        string                 `json:"clientId" binding:"required"`
	Title           string                 `json:"title" binding:"required"`
	Description     string                 `json:"description"`
	AppointmentType domain.AppointmentType `json:"appointmentType"`
	StartDatetime   time.Time              `json:"startDatetime"`
	EndDatetime     time.Time              `json:"endDatetime"`
	Location        string                 `json:"location"`
	IsOnline        bool                   `json:"isOnline"`
	MeetingLink     string                 `json:"meetingLink" binding:"omitempty,url"`
	Notes           string                 `json:"notes"`
}

type UpdateAppointmentRequest struct {
	Title           *string                   `json:"title"`
	Description     *string                   `json:"description"`
	AppointmentType *domain.AppointmentType   `json:"appointmentType"`
	StartDatetime   *time.Time                `json:"startDatetime"`
	EndDatetime     *time.Time                `json:"endDatetime"`
	Status          *domain.AppointmentStatus `json:"status"`
	Location        *string                   `json:"location"`
	IsOnline        *bool                     `json:"isOnline"`
	MeetingLink     *string                   `json:"meetingLink" binding:"omitempty,url"`
	Notes           *string                   `json:"notes"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type AvailabilityRequest struct {
	DayOfWeek   *int   `json:"dayOfWeek" binding:"required,min=0,max=6"`
	StartTime   string `json:"startTime" binding:"required,hhmm"`
	EndTime     string `json:"endTime" binding:"required,hhmm"`
	IsAvailable *bool  `json:"isAvailable"`
	Location    string `json:"location"`
}

type ConflictResponse struct {
	Conflict    bool                `json:"conflict"`
	Appointment *domain.Appointment `json:"appointment,omitempty"`
}

// --- Handler Methods ---

// CreateAppointment godoc
// @Summary Book an appointment
// @Tags Schedule
// @Security BearerAuth
// @Param appointment body CreateAppointmentRequest true "Appointment"
// @Success 201 {object} domain.Appointment
// @Failure 400,403 {object} envelope
// @Failure 409 {object} envelope "Time slot conflicts with an existing appointment"
// @Router /schedule/appointments [post]
func (h *ScheduleHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}

	appt, err := h.scheduling.CreateAppointment(c.Request.Context(), caller.UserID, service.AppointmentInput{
		ClientID:        req.ClientID,
		Title:           req.Title,
		Description:     req.Description,
		AppointmentType: req.AppointmentType,
		Start:           req.StartDatetime,
		End:             req.EndDatetime,
		Location:        req.Location,
		IsOnline:        req.IsOnline,
		MeetingLink:     req.MeetingLink,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, h.log, "CreateAppointment", err)
		return
	}
	respond(c, http.StatusCreated, appt)
}

// ListAppointments godoc
// @Summary List appointments visible to the caller
// @Tags Schedule
// @Security BearerAuth
// @Param status query string false "scheduled|completed|cancelled|no_show"
// @Param startDate query string false "from (YYYY-MM-DD or RFC 3339)"
// @Param endDate query string false "to (YYYY-MM-DD inclusive, or RFC 3339)"
// @Param clientId query string false "trainer only"
// @Router /schedule/appointments [get]
func (h *ScheduleHandler) ListAppointments(c *gin.Context) {
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

	appts, total, err := h.scheduling.ListAppointments(c.Request.Context(), caller, service.AppointmentQuery{
		ClientID: c.Query("clientId"),
		Status:   domain.AppointmentStatus(c.Query("status")),
		From:     from,
		To:       to,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(c, h.log, "ListAppointments", err)
		return
	}
	respondList(c, appts, total, limit, offset)
}

func (h *ScheduleHandler) GetAppointment(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	appt, err := h.scheduling.GetAppointment(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, h.log, "GetAppointment", err)
		return
	}
	respond(c, http.StatusOK, appt)
}

// UpdateAppointment godoc
// @Summary Update or reschedule an appointment
// @Tags Schedule
// @Security BearerAuth
// @Param id path string true "Appointment ID"
// @Param changes body UpdateAppointmentRequest true "Fields to change"
// @Failure 409 {object} envelope "Conflict or cancelled"
// @Router /schedule/appointments/{id} [put]
func (h *ScheduleHandler) UpdateAppointment(c *gin.Context) {
	var req UpdateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}

	appt, err := h.scheduling.UpdateAppointment(c.Request.Context(), caller.UserID, c.Param("id"), service.AppointmentUpdate{
		Title:           req.Title,
		Description:     req.Description,
		AppointmentType: req.AppointmentType,
		Start:           req.StartDatetime,
		End:             req.EndDatetime,
		Status:          req.Status,
		Location:        req.Location,
		IsOnline:        req.IsOnline,
		MeetingLink:     req.MeetingLink,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, h.log, "UpdateAppointment", err)
		return
	}
	respond(c, http.StatusOK, appt)
}

// CancelAppointment godoc
// @Summary Cancel an appointment
// @Description The reason may come as a JSON body or the reason query parameter.
// @Tags Schedule
// @Security BearerAuth
// @Router /schedule/appointments/{id} [delete]
func (h *ScheduleHandler) CancelAppointment(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	var req CancelAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = c.Query("reason")
	}

	appt, err := h.scheduling.CancelAppointment(c.Request.Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, h.log, "CancelAppointment", err)
		return
	}
	respond(c, http.StatusOK, appt)
}

// CheckConflict godoc
// @Summary Find an appointment overlapping [start, end)
// @Tags Schedule
// @Security BearerAuth
// @Param start query string true "RFC 3339"
// @Param end query string true "RFC 3339"
// @Param excludeId query string false "Appointment to ignore"
// @Success 200 {object} ConflictResponse
// @Router /schedule/conflicts [get]
func (h *ScheduleHandler) CheckConflict(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'start' must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'end' must be RFC 3339")
		return
	}

	clash, err := h.scheduling.CheckConflict(c.Request.Context(), caller.UserID, start, end, c.Query("excludeId"))
	if err != nil {
		respondError(c, h.log, "CheckConflict", err)
		return
	}
	respond(c, http.StatusOK, ConflictResponse{Conflict: clash != nil, Appointment: clash})
}

func (h *ScheduleHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}

	slot, err := h.scheduling.SetAvailability(c.Request.Context(), caller.UserID, service.AvailabilityInput{
		DayOfWeek:   *req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
		Location:    req.Location,
	})
	if err != nil {
		respondError(c, h.log, "SetAvailability", err)
		return
	}
	respond(c, http.StatusOK, slot)
}

func (h *ScheduleHandler) ListAvailability(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	slots, err := h.scheduling.ListAvailability(c.Request.Context(), caller.UserID)
	if err != nil {
		respondError(c, h.log, "ListAvailability", err)
		return
	}
	respond(c, http.StatusOK, slots)
}

func (h *ScheduleHandler) DeleteAvailability(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	if err := h.scheduling.DeleteAvailability(c.Request.Context(), caller.UserID, c.Param("slotId")); err != nil {
		respondError(c, h.log, "DeleteAvailability", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}
