package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type luckbagRequest struct {
	UserID int64           `json:"userId" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

type withdrawRequest struct {
	UserID int64           `json:"userId" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
	Fee    int64           `json:"fee"`
}

func (h *Handler) CreateLuckbag(c *gin.Context) {
	var req luckbagRequest
	if !bindBody(c, &req) {
		return
	}
	if err := h.Services.Wallet.CreateLuckbag(c.Request.Context(), req.UserID, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	view, err := h.Services.Accounts.View(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ton_balance": view.Balance})
}

// Withdraw списывает сумму и комиссию и ставит заявку в очередь админам
func (h *Handler) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if !bindBody(c, &req) {
		return
	}
	w, err := h.Services.Wallet.Withdraw(c.Request.Context(), req.UserID, req.Amount, req.Fee)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "withdrawal": w})
}

func (h *Handler) Withdrawals(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	list, err := h.Services.Wallet.Withdrawals(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}
