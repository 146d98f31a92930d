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

type AnalyticsHandler struct {
	analytics service.AnalyticsService
	log       *logger.Logger
}

func NewAnalyticsHandler(analytics service.AnalyticsService, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, log: log}
}

// --- DTOs for Analytics ---

type RecordMetricRequest struct {
	UserID     string            `json:"userId"`
	ExerciseID string            `json:"exerciseId"`
	MetricType domain.MetricType `json:"metricType" binding:"required"`
	Value      *float64          `json:"value" binding:"required"`
	Unit       string            `json:"unit"`
	RecordedAt *time.Time        `json:"recordedAt"`
	Notes      string            `json:"notes"`
}

type RecordMetricResponse struct {
	*domain.PerformanceMetric
	PersonalBest bool `json:"personalBest"`
}

// PersonalBestResponse is one row of the personal-best table.
type PersonalBestResponse struct {
	ExerciseID string            `json:"exerciseId"`
	Exercise   string            `json:"exercise"`
	Metric     domain.MetricType `json:"metric"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit"`
	Date       time.Time         `json:"date"`
}

type ExportReportRequest struct {
	UserID string `json:"userId"`
}

func MapPersonalBestsToResponse(bests []domain.PersonalBest) []PersonalBestResponse {
	out := make([]PersonalBestResponse, len(bests))
	for i, pb := range bests {
		out[i] = PersonalBestResponse{
			ExerciseID: pb.ExerciseID,
			Exercise:   pb.Exercise,
			Metric:     pb.MetricType,
			Value:      pb.Value,
			Unit:       pb.Unit,
			Date:       pb.RecordedAt,
		}
	}
	return out
}

// --- Handler Methods for Analytics ---

// RecordMetric godoc
// @Summary Record a performance metric
// @Description userId defaults to the caller. Trainers may record for managed clients.
// @Tags Analytics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param metric body RecordMetricRequest true "Metric"
// @Success 201 {object} RecordMetricResponse
// @Failure 400 {object} envelope "Invalid metric type or value"
// @Failure 403 {object} envelope "Not allowed to record for this user"
// @Router /analytics/performance [post]
func (h *AnalyticsHandler) RecordMetric(c *gin.Context) {
	var req RecordMetricRequest
	if !bindJSON(c, &req) {
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}

	in := service.RecordMetricInput{
		UserID:     req.UserID,
		ExerciseID: req.ExerciseID,
		MetricType: req.MetricType,
		Value:      *req.Value,
		Unit:       req.Unit,
		Notes:      req.Notes,
	}
	if req.RecordedAt != nil {
		in.RecordedAt = *req.RecordedAt
	}
	res, err := h.analytics.RecordMetric(c.Request.Context(), caller, in)
	if err != nil {
		respondError(c, h.log, "RecordMetric", err)
		return
	}
	respond(c, http.StatusCreated, RecordMetricResponse{PerformanceMetric: res.Metric, PersonalBest: res.PersonalBest})
}

// ListMetrics godoc
// @Summary List performance metrics
// @Tags Analytics
// @Security BearerAuth
// @Param userId query string false "defaults to the caller"
// @Param exerciseId query string false "exercise filter"
// @Param metricType query string false "one_rm|volume|endurance|speed|power"
// @Param startDate query string false "from"
// @Param endDate query string false "to"
// @Router /analytics/performance [get]
func (h *AnalyticsHandler) ListMetrics(c *gin.Context) {
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

	metrics, total, err := h.analytics.ListMetrics(c.Request.Context(), caller, service.MetricQuery{
		UserID:     c.Query("userId"),
		ExerciseID: c.Query("exerciseId"),
		MetricType: domain.MetricType(c.Query("metricType")),
		From:       from,
		To:         to,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondError(c, h.log, "ListMetrics", err)
		return
	}
	if metrics == nil {
		metrics = []domain.PerformanceMetric{}
	}
	respondList(c, metrics, total, limit, offset)
}

// GetPersonalBests godoc
// @Summary Best value per exercise and metric type
// @Tags Analytics
// @Security BearerAuth
// @Param userId path string true "user id or me"
// @Success 200 {array} PersonalBestResponse
// @Router /analytics/performance/{userId}/personal-bests [get]
func (h *AnalyticsHandler) GetPersonalBests(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	bests, err := h.analytics.GetPersonalBests(c.Request.Context(), caller, c.Param("userId"))
	if err != nil {
		respondError(c, h.log, "GetPersonalBests", err)
		return
	}
	respond(c, http.StatusOK, MapPersonalBestsToResponse(bests))
}

// GetTrainingLoad godoc
// @Summary Weekly training load
// @Description One row per stored week. Without startDate the range ends at the current week.
// @Tags Analytics
// @Security BearerAuth
// @Param userId path string true "user id or me"
// @Param weeks query int false "1-52, default 4"
// @Param startDate query string false "YYYY-MM-DD"
// @Success 200 {array} domain.TrainingLoad
// @Router /analytics/training-load/{userId} [get]
func (h *AnalyticsHandler) GetTrainingLoad(c *gin.Context) {
	caller, ok := principal(c)
	if !ok {
		return
	}
	weeks, ok := queryInt(c, "weeks")
	if !ok {
		return
	}
	var from time.Time
	if raw := c.Query("startDate"); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Query parameter 'startDate' must be YYYY-MM-DD")
			return
		}
		from = d
	}

	loads, err := h.analytics.GetTrainingLoad(c.Request.Context(), caller, c.Param("userId"), from, weeks)
	if err != nil {
		respondError(c, h.log, "GetTrainingLoad", err)
		return
	}
	if loads == nil {
		loads = []domain.TrainingLoad{}
	}
	respond(c, http.StatusOK, loads)
}

// ExportReport godoc
// @Summary Export personal bests and training load to object storage
// @Tags Analytics
// @Security BearerAuth
// @Param request body ExportReportRequest false "userId defaults to the caller"
// @Success 201 {object} domain.Report
// @Failure 404 {object} envelope "Report export not configured"
// @Router /analytics/reports [post]
func (h *AnalyticsHandler) ExportReport(c *gin.Context) {
	var req ExportReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	caller, ok := principal(c)
	if !ok {
		return
	}
	report, err := h.analytics.ExportReport(c.Request.Context(), caller, req.UserID)
	if err != nil {
		respondError(c, h.log, "ExportReport", err)
		return
	}
	respond(c, http.StatusCreated, report)
}
