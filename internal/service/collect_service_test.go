package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ton_miner/internal/domain"
)

func TestCollectCappedEarnings(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.clock.Advance(7200 * time.Second)

	view, err := f.svc.Accounts.View(context.Background(), 1)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got := view.Floors[0].Timer; got != "00:00:00" {
		t.Fatalf("timer = %q, want 00:00:00", got)
	}

	res, err := f.svc.Collect.Collect(context.Background(), 1, 1, "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !res.Earnings.Equal(dec("0.018")) {
		t.Fatalf("earnings = %s, want 0.018", res.Earnings)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("0.018")) {
		t.Fatalf("balance = %s", got)
	}
}

func TestCollectTwiceIsNoop(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.clock.Advance(100 * time.Second)

	if _, err := f.svc.Collect.Collect(context.Background(), 1, 1, ""); err != nil {
		t.Fatalf("first collect: %v", err)
	}
	before := f.get(t, 1)

	res, err := f.svc.Collect.Collect(context.Background(), 1, 1, "")
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if !res.Earnings.IsZero() {
		t.Fatalf("second earnings = %s, want 0", res.Earnings)
	}
	after := f.get(t, 1)
	if !after.Balance.Equal(before.Balance) || !after.FloorCollectedAt[1].Equal(before.FloorCollectedAt[1]) {
		t.Fatal("no-op collect mutated the account")
	}
}

func TestCollectRejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)

	tests := []struct {
		name    string
		account int64
		floor   int
		want    error
	}{
		{"missing account", 99, 1, domain.ErrNotFound},
		{"locked floor", 1, 2, domain.ErrFloorLocked},
		{"unknown floor", 1, 42, domain.ErrUnknownFloor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Collect.Collect(context.Background(), tt.account, tt.floor, "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConcurrentCollectCreditsOnce(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.clock.Advance(1000 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Collect.Collect(context.Background(), 1, 1, ""); err != nil {
				t.Errorf("collect: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := f.get(t, 1).Balance; !got.Equal(dec("0.005")) {
		t.Fatalf("balance = %s, want 0.005", got)
	}
}

func TestCollectLosesRaceToConcurrentCollect(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.clock.Advance(60 * time.Second)

	// A competing collect lands between our read and our write.
	raced := false
	f.store.BeforeApply = func(muts []domain.AccountMutation) error {
		if raced {
			return nil
		}
		raced = true
		return f.store.Apply(context.Background(), domain.AccountMutation{
			AccountID: 1,
			Mutation: domain.Mutation{
				Balance:          dec("0.0003"),
				FloorCollectedAt: map[int]time.Time{1: f.clock.Now()},
			},
		})
	}

	res, err := f.svc.Collect.Collect(context.Background(), 1, 1, "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !res.Earnings.IsZero() {
		t.Fatalf("earnings = %s, want 0 after losing the race", res.Earnings)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("0.0003")) {
		t.Fatalf("balance = %s, want 0.0003", got)
	}
}

func TestCollectIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.clock.Advance(10 * time.Second)

	if _, err := f.svc.Collect.Collect(context.Background(), 1, 1, "req-1"); err != nil {
		t.Fatalf("collect: %v", err)
	}
	f.clock.Advance(10 * time.Second)
	_, err := f.svc.Collect.Collect(context.Background(), 1, 1, "req-1")
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("replay err = %v, want ErrDuplicateRequest", err)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("0.00005")) {
		t.Fatalf("balance = %s, want 0.00005", got)
	}
}

func TestCollectRetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.clock.Advance(10 * time.Second)

	failures := 2
	f.store.BeforeApply = func([]domain.AccountMutation) error {
		if failures > 0 {
			failures--
			return domain.ErrTransient
		}
		return nil
	}

	res, err := f.svc.Collect.Collect(context.Background(), 1, 1, "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !res.Earnings.Equal(dec("0.00005")) {
		t.Fatalf("earnings = %s", res.Earnings)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("0.00005")) {
		t.Fatalf("balance = %s, want a single credit", got)
	}
}

func TestCollectGivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.clock.Advance(10 * time.Second)
	f.store.BeforeApply = func([]domain.AccountMutation) error { return domain.ErrTransient }

	_, err := f.svc.Collect.Collect(context.Background(), 1, 1, "")
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	if got := f.get(t, 1).Balance; !got.IsZero() {
		t.Fatalf("balance = %s, want untouched", got)
	}
}
