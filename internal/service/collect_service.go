package service

import (
	"context"
	"errors"
	"time"

	"ton_miner/internal/domain"
	"ton_miner/internal/logger"

	"github.com/shopspring/decimal"
)

// CollectResult is the outcome of a collection. Earnings is zero for a no-op.
type CollectResult struct {
	FloorID          int             `json:"floorId"`
	Earnings         decimal.Decimal `json:"earnings"`
	Balance          decimal.Decimal `json:"ton_balance"`
	RemainingSeconds int64           `json:"remaining_seconds"`
}

// CollectService credits floor earnings to the balance.
type CollectService struct {
	deps Deps
}

func NewCollectService(d Deps) *CollectService {
	return &CollectService{deps: d.withDefaults()}
}

// Collect credits what floorID has accrued and restarts its clock. The write is
// guarded by the clock value the earnings were computed from, so two concurrent
// collects of one window credit it once: the loser re-reads and finds nothing.
// A non-empty idempotencyKey makes a replay of the same request fail with
// ErrDuplicateRequest instead of running again.
func (s *CollectService) Collect(ctx context.Context, accountID int64, floorID int, idempotencyKey string) (*CollectResult, error) {
	var res *CollectResult
	err := withRetry(ctx, s.deps.Retry, "collect", func() error {
		var err error
		res, err = s.tryCollect(ctx, accountID, floorID, idempotencyKey)
		return err
	})
	if err != nil {
		if !isValidationError(err) {
			logger.WithContext(ctx).Error("collect failed", "account_id", accountID, "floor_id", floorID, "error", err)
		}
		return nil, err
	}

	if res.Earnings.IsPositive() {
		collectTotal.Inc()
		collectedAmount.Add(res.Earnings.InexactFloat64())
		logger.WithContext(ctx).Info("earnings collected", "account_id", accountID, "floor_id", floorID, "earnings", res.Earnings.String())
		s.deps.audit(ctx, accountID, domain.AuditActionCollect, domain.AuditCategoryEconomy, map[string]interface{}{
			"floor_id": floorID,
			"earnings": res.Earnings.String(),
		})
	}
	return res, nil
}

func (s *CollectService) tryCollect(ctx context.Context, accountID int64, floorID int, idempotencyKey string) (*CollectResult, error) {
	acc, err := s.deps.Store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	floor, ok := s.deps.Economy.Floor(floorID)
	if !ok {
		return nil, domain.ErrUnknownFloor
	}
	if !acc.IsUnlocked(floorID) {
		return nil, domain.ErrFloorLocked
	}
	last, ok := acc.FloorCollectedAt[floorID]
	if !ok {
		return nil, errors.New("unlocked floor has no accrual state")
	}

	now := s.deps.now()
	accrual := floor.Accrue(last, now)
	if !accrual.Earnings.IsPositive() {
		return &CollectResult{
			FloorID:          floorID,
			Earnings:         decimal.Zero,
			Balance:          acc.Balance,
			RemainingSeconds: accrual.RemainingSeconds,
		}, nil
	}

	err = s.deps.Store.Apply(ctx, domain.AccountMutation{
		AccountID: accountID,
		Mutation: domain.Mutation{
			Balance:          accrual.Earnings,
			FloorCollectedAt: map[int]time.Time{floorID: now},
			IdempotencyKey:   idempotencyKey,
			Action:           domain.AuditActionCollect,
			Guard: domain.Guard{
				FloorCollectedAt: map[int]time.Time{floorID: last},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &CollectResult{
		FloorID:          floorID,
		Earnings:         accrual.Earnings,
		Balance:          acc.Balance.Add(accrual.Earnings),
		RemainingSeconds: floor.CapacitySeconds,
	}, nil
}
