package service

import (
	"context"
	"errors"
	"time"

	"ton_miner/internal/domain"
)

// RetryPolicy bounds the optimistic retry loop around guarded store writes.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var DefaultRetry = RetryPolicy{Attempts: 5, BaseDelay: 75 * time.Millisecond, MaxDelay: time.Second}

func retryable(err error) bool {
	return errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrTransient)
}

// withRetry re-runs fn while it fails with a conflict or transient error.
// fn must re-read state on every attempt: guards make a replay safe, not a stale read.
func withRetry(ctx context.Context, p RetryPolicy, op string, fn func() error) error {
	delay := p.BaseDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !retryable(err) || attempt >= p.Attempts {
			return err
		}
		storeRetries.WithLabelValues(op).Inc()
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
