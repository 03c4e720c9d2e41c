package handlers

import (
	"net/http"

	"ton_miner/internal/domain"

	"github.com/gin-gonic/gin"
)

// Ranking returns the top 20 by level, diamonds or invitations.
func (h *Handler) Ranking(c *gin.Context) {
	kind := domain.ParseRankingKind(c.Param("type"))
	entries, err := h.Services.Accounts.Ranking(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": kind, "ranking": entries})
}

// Friends lists invited friends, or candidate steal targets with ?type=steal.
func (h *Handler) Friends(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	steal := c.Query("type") == "steal"
	entries, err := h.Services.Accounts.Friends(c.Request.Context(), userID, steal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": entries})
}
