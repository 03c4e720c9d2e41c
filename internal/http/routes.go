package http

import (
	"context"
	"time"

	"ton_miner/internal/config"
	"ton_miner/internal/http/handlers"
	"ton_miner/internal/http/middleware"
	"ton_miner/internal/service"
	"ton_miner/internal/ws"

	"github.com/gin-gonic/gin"
)

// Store is what the routes need from the account store beyond the services.
type Store interface {
	handlers.Pinger
}

func RegisterRoutes(r *gin.Engine, svc *service.Services, store Store, hub *ws.Hub, cfg *config.Config, version string) {
	h := handlers.NewHandler(svc)
	healthHandler := handlers.NewHealthHandler(store, version)

	apiRateWindow := time.Duration(cfg.APIRateWindow) * time.Second
	actionRateWindow := time.Duration(cfg.ActionRateWindow) * time.Second

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// один лимитер на аккаунт для обеих групп
	actionRL := middleware.ActionRateLimit(cfg.ActionRateLimit, actionRateWindow)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.APIRateLimit, apiRateWindow))
	registerAPIRoutes(v1, h, actionRL)

	// Legacy /api routes, same handlers as v1
	api := r.Group("/api")
	api.Use(middleware.RateLimit(cfg.APIRateLimit, apiRateWindow))
	api.GET("/health", healthHandler.Health)
	registerAPIRoutes(api, h, actionRL)

	// Live notifications for the mini app
	r.GET("/ws", ws.HandleWS(hub, func(ctx context.Context, userID int64) error {
		_, err := svc.Accounts.View(ctx, userID)
		return err
	}))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, actionRL gin.HandlerFunc) {
	// Account views
	api.GET("/user-data/:userId", h.UserData)
	api.GET("/theft-records/:userId", h.TheftRecords)
	api.GET("/invitation-records/:userId", h.InvitationRecords)
	api.GET("/friends/:userId", h.Friends)
	api.GET("/ranking/:type", h.Ranking)

	// Mining
	api.POST("/collect", actionRL, h.Collect)
	api.POST("/unlock-floor", actionRL, h.UnlockFloor)
	api.POST("/steal", actionRL, h.Steal)

	// Tasks
	api.GET("/tasks/:userId", h.Tasks)
	api.POST("/complete-task", h.CompleteTask)

	// Wallet
	api.POST("/create-luckbag", h.CreateLuckbag)
	api.POST("/withdraw", h.Withdraw)
	api.GET("/withdrawals/:userId", h.Withdrawals)
}
