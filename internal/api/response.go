package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/service"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *listMeta   `json:"meta,omitempty"`
}

type listMeta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondList(c *gin.Context, data interface{}, total int64, limit, offset int) {
	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Meta:    &listMeta{Total: total, Limit: limit, Offset: offset},
	})
}

// abortWithError writes the error envelope and stops the handler chain.
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, envelope{Success: false, Error: message})
}

// respondError maps service errors onto status codes. Anything that is not a
// service error is logged with the operation and answered with a generic 500.
func respondError(c *gin.Context, log *logger.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "op", op, "path", c.FullPath(), "error", err)
		abortWithError(c, status, "Internal server error")
		return
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		abortWithError(c, status, svcErr.Message())
		return
	}
	abortWithError(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// --- Query helpers ---

// queryInt reads an optional non-negative integer parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		abortWithError(c, http.StatusBadRequest, "Query parameter '"+name+"' must be a non-negative integer")
		return 0, false
	}
	return v, true
}

// queryTime reads YYYY-MM-DD or RFC 3339. A bare date used as an upper bound
// covers that whole day.
func queryTime(c *gin.Context, name string, upper bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	if d, err := domain.ParseDate(raw); err == nil {
		if upper {
			d = d.AddDate(0, 0, 1)
		}
		return &d, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Query parameter '"+name+"' must be YYYY-MM-DD or RFC 3339")
		return nil, false
	}
	return &t, true
}

func pageQuery(c *gin.Context) (limit, offset int, ok bool) {
	if limit, ok = queryInt(c, "limit"); !ok {
		return 0, 0, false
	}
	if offset, ok = queryInt(c, "offset"); !ok {
		return 0, 0, false
	}
	if limit == 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return limit, offset, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}
