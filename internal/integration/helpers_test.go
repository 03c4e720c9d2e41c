package integration

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"ton_miner/internal/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// connect skips the test unless DATABASE_URL points at a disposable database.
func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if err := migrations.Apply(context.Background(), db, nil); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

var idSeq = time.Now().UnixNano() % 1_000_000_000 * 100

// nextID hands out account ids that do not collide with earlier runs.
func nextID() int64 {
	return atomic.AddInt64(&idSeq, 1)
}
