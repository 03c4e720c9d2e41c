package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ton_miner/internal/bot"
	"ton_miner/internal/config"
	"ton_miner/internal/db"
	"ton_miner/internal/economy"
	httpServer "ton_miner/internal/http"
	"ton_miner/internal/http/middleware"
	"ton_miner/internal/logger"
	"ton_miner/internal/notify"
	"ton_miner/internal/repository"
	"ton_miner/internal/service"
	"ton_miner/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	econ := economy.Default()
	if cfg.EconomyConfigPath != "" {
		loaded, err := economy.Load(cfg.EconomyConfigPath)
		if err != nil {
			logger.Fatal("failed to load economy config", "path", cfg.EconomyConfigPath, "error", err)
		}
		econ = loaded
	}

	ctx := context.Background()

	var (
		store service.AccountStore
		audit service.AuditStore
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, state is lost on restart")
		store = repository.NewMemoryStore()
		audit = repository.NewMemoryAuditRepository()
	default:
		pool := db.Connect(ctx, cfg.DatabaseURL)
		defer pool.Close()
		store = repository.NewAccountRepository(pool)
		audit = repository.NewAuditRepository(pool)
	}

	hub := ws.NewHub()
	sinks := []service.Notifier{hub}

	var (
		tgSender *notify.Telegram
		botAPI   bot.API
	)
	if cfg.BotToken != "" {
		api, err := bot.NewBotAPI(cfg.BotToken)
		if err != nil {
			logger.Error("telegram bot disabled", "error", err)
		} else {
			botAPI = api
			tgSender = notify.NewTelegram(api, 256)
			sinks = append(sinks, tgSender)
		}
	}

	svc := service.New(service.Deps{
		Store:    store,
		Economy:  econ,
		Audit:    service.NewAuditService(audit),
		Notifier: notify.NewFanout(sinks...),
	}, service.AccountOptions{
		StartingDiamonds: cfg.StartingDiamonds,
		ReferralBonus:    cfg.ReferralBonus,
	})

	var tgBot *bot.Bot
	if botAPI != nil {
		tgBot = bot.New(botAPI, svc, cfg.AdminTelegramIDs, cfg.WebAppURL)
		svc.Wallet.SetAdminNotifier(tgBot)
		go tgBot.Start()
	}

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	r := gin.Default()
	r.Use(middleware.RequestID(), middleware.Metrics())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Idempotency-Key, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpServer.RegisterRoutes(r, svc, store, hub, cfg, version)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.Store, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if tgBot != nil {
		tgBot.Stop()
	}
	if tgSender != nil {
		tgSender.Close()
	}
	middleware.CloseRedis()

	logger.Info("server exited")
}
