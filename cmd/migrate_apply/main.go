package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ton_miner/internal/db"
	"ton_miner/internal/logger"
	"ton_miner/internal/migrations"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations")
	flag.Parse()

	if !*apply {
		for _, name := range migrations.Names() {
			fmt.Println(name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	err := migrations.Apply(ctx, pool, func(name string) {
		logger.Info("applied migration", "file", name)
	})
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}
}
