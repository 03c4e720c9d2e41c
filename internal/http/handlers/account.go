package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserData returns the projection the mini app renders on every poll.
func (h *Handler) UserData(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	view, err := h.Services.Accounts.View(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// TheftRecords - последние кражи пользователя, новые первыми
func (h *Handler) TheftRecords(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	records, err := h.Services.Accounts.TheftRecords(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// InvitationRecords - последние приглашения пользователя
func (h *Handler) InvitationRecords(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	records, err := h.Services.Accounts.InvitationRecords(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
