package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"ton_miner/internal/db"
	"ton_miner/internal/logger"
	"ton_miner/internal/repository"
	"ton_miner/internal/service"
)

func main() {
	tgID := flag.Int64("id", 1234567890, "telegram id of the test account")
	username := flag.String("username", "testuser", "display name")
	flag.Parse()

	// expects DATABASE_URL env var
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	store := repository.NewAccountRepository(pool)
	svc := service.New(service.Deps{Store: store}, service.AccountOptions{StartingDiamonds: 10, ReferralBonus: 2})

	_, created, err := svc.Accounts.Register(ctx, *tgID, *username, nil)
	if err != nil {
		logger.Fatal("register failed", "error", err)
	}
	logger.Info("test account ready", "id", *tgID, "created", created)

	view, err := svc.Accounts.View(ctx, *tgID)
	if err != nil {
		logger.Fatal("view failed", "error", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(view)
}
