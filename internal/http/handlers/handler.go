package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"ton_miner/internal/domain"
	"ton_miner/internal/logger"
	"ton_miner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type Handler struct {
	Services *service.Services
}

func NewHandler(svc *service.Services) *Handler {
	return &Handler{Services: svc}
}

// errorCode and status for every error category
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrSequenceViolation):
		return http.StatusBadRequest, "sequence_violation"
	case errors.Is(err, domain.ErrUnknownFloor):
		return http.StatusBadRequest, "unknown_floor"
	case errors.Is(err, domain.ErrFloorLocked):
		return http.StatusBadRequest, "floor_locked"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, "insufficient_funds"
	case errors.Is(err, domain.ErrSelfSteal):
		return http.StatusBadRequest, "self_steal"
	case errors.Is(err, domain.ErrUnknownTask):
		return http.StatusBadRequest, "unknown_task"
	case errors.Is(err, domain.ErrTaskCompleted):
		return http.StatusBadRequest, "task_completed"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate_request"
	case errors.Is(err, domain.ErrTransient), errors.Is(err, domain.ErrConflict):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": code, "message": domain.Message(err)})
}

// userParam читает :userId из пути
func userParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, domain.ErrInvalidInput)
		return 0, false
	}
	return id, true
}

// bindBody reads the JSON body. The body is cached in the context so the
// action rate limiter and the handler can both read it.
func bindBody(c *gin.Context, req any) bool {
	if err := c.ShouldBindBodyWith(req, binding.JSON); err != nil {
		respondError(c, domain.ErrInvalidInput)
		return false
	}
	return true
}
