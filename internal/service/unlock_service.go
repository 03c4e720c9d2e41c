package service

import (
	"context"
	"strconv"
	"time"

	"ton_miner/internal/domain"
	"ton_miner/internal/logger"

	"github.com/shopspring/decimal"
)

// UnlockResult is returned by a successful unlock.
type UnlockResult struct {
	FloorID        int             `json:"floorId"`
	Cost           int64           `json:"cost"`
	Diamonds       int64           `json:"diamonds"`
	UnlockedFloors int             `json:"unlocked_floors"`
	ProductionRate decimal.Decimal `json:"total_mining_rate"`
}

// UnlockService enforces sequential, paid floor unlocks.
type UnlockService struct {
	deps Deps
}

func NewUnlockService(d Deps) *UnlockService {
	return &UnlockService{deps: d.withDefaults()}
}

// Unlock checks, in order: account exists, floorID is exactly the next floor,
// floorID is configured, diamonds cover the cost. The debit, the new floor count,
// the rate increment and the new floor clock are written as one guarded mutation.
func (s *UnlockService) Unlock(ctx context.Context, accountID int64, floorID int) (*UnlockResult, error) {
	var res *UnlockResult
	err := withRetry(ctx, s.deps.Retry, "unlock", func() error {
		var err error
		res, err = s.tryUnlock(ctx, accountID, floorID)
		return err
	})
	if err != nil {
		if !isValidationError(err) {
			logger.WithContext(ctx).Error("unlock failed", "account_id", accountID, "floor_id", floorID, "error", err)
		}
		return nil, err
	}

	unlockTotal.WithLabelValues(strconv.Itoa(floorID)).Inc()
	logger.WithContext(ctx).Info("floor unlocked", "account_id", accountID, "floor_id", floorID, "cost", res.Cost)
	s.deps.audit(ctx, accountID, domain.AuditActionUnlock, domain.AuditCategoryEconomy, map[string]interface{}{
		"floor_id": floorID,
		"cost":     res.Cost,
	})
	return res, nil
}

func (s *UnlockService) tryUnlock(ctx context.Context, accountID int64, floorID int) (*UnlockResult, error) {
	acc, err := s.deps.Store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if floorID != acc.UnlockedFloors+1 {
		return nil, domain.ErrSequenceViolation
	}
	floor, ok := s.deps.Economy.Floor(floorID)
	if !ok {
		return nil, domain.ErrUnknownFloor
	}
	if acc.Diamonds < floor.UnlockCost {
		return nil, domain.ErrInsufficientFunds
	}

	expected := acc.UnlockedFloors
	now := s.deps.now()
	err = s.deps.Store.Apply(ctx, domain.AccountMutation{
		AccountID: accountID,
		Mutation: domain.Mutation{
			Diamonds:         -floor.UnlockCost,
			UnlockedFloors:   floorID,
			ProductionRate:   floor.Rate,
			FloorCollectedAt: map[int]time.Time{floorID: now},
			Action:           domain.AuditActionUnlock,
			Guard: domain.Guard{
				UnlockedFloors: &expected,
				MinDiamonds:    floor.UnlockCost,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &UnlockResult{
		FloorID:        floorID,
		Cost:           floor.UnlockCost,
		Diamonds:       acc.Diamonds - floor.UnlockCost,
		UnlockedFloors: floorID,
		ProductionRate: acc.ProductionRate.Add(floor.Rate),
	}, nil
}
