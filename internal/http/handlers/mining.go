package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type collectRequest struct {
	UserID         int64  `json:"userId" binding:"required"`
	FloorID        int    `json:"floorId" binding:"required"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type unlockRequest struct {
	UserID  int64 `json:"userId" binding:"required"`
	FloorID int   `json:"floorId" binding:"required"`
}

// idempotencyKey prefers the body field and falls back to the header.
func idempotencyKey(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader("Idempotency-Key")
}

// Collect забирает накопленное с этажа
func (h *Handler) Collect(c *gin.Context) {
	var req collectRequest
	if !bindBody(c, &req) {
		return
	}
	res, err := h.Services.Collect.Collect(c.Request.Context(), req.UserID, req.FloorID, idempotencyKey(c, req.IdempotencyKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UnlockFloor открывает следующий этаж за алмазы
func (h *Handler) UnlockFloor(c *gin.Context) {
	var req unlockRequest
	if !bindBody(c, &req) {
		return
	}
	res, err := h.Services.Unlock.Unlock(c.Request.Context(), req.UserID, req.FloorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
