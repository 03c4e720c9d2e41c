package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type stealRequest struct {
	UserID         int64  `json:"userId" binding:"required"`
	TargetUserID   int64  `json:"targetUserId" binding:"required"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Steal flips the coin against another player.
func (h *Handler) Steal(c *gin.Context) {
	var req stealRequest
	if !bindBody(c, &req) {
		return
	}
	out, err := h.Services.Steal.Steal(c.Request.Context(), req.UserID, req.TargetUserID, idempotencyKey(c, req.IdempotencyKey))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
