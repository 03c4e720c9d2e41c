package service

import (
	"context"
	"errors"
	"fmt"

	"ton_miner/internal/domain"
	"ton_miner/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StealOutcome reports the coin flip and what was actually moved. Success can be
// true with a zero Amount when the target had nothing worth taking.
type StealOutcome struct {
	StealID        uuid.UUID       `json:"stealId"`
	Success        bool            `json:"success"`
	Amount         decimal.Decimal `json:"amount"`
	TargetUserID   int64           `json:"targetUserId"`
	TargetUsername string          `json:"targetUsername"`
	Balance        decimal.Decimal `json:"ton_balance"`
}

// Transferred reports whether balance actually moved.
func (o *StealOutcome) Transferred() bool {
	return o.Amount.IsPositive()
}

// StealService runs the probabilistic transfer between two players.
type StealService struct {
	deps Deps
}

func NewStealService(d Deps) *StealService {
	return &StealService{deps: d.withDefaults()}
}

// Steal flips the coin once per request; retries after a conflict reuse the
// same draw and only recompute the amount from the fresh target balance.
// Every attempt claims an idempotency key on the attacker, the caller's or one
// derived from the steal id, so a commit whose acknowledgement was lost is
// never applied twice.
func (s *StealService) Steal(ctx context.Context, attackerID, targetID int64, idempotencyKey string) (*StealOutcome, error) {
	if attackerID <= 0 || targetID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if attackerID == targetID {
		return nil, domain.ErrSelfSteal
	}

	cfg := s.deps.Economy
	success := s.deps.Rand.Float64() < cfg.StealChance
	fraction := s.stealFraction(s.deps.Rand.Float64())
	stealID := uuid.New()
	key := idempotencyKey
	if key == "" {
		key = "steal:" + stealID.String()
	}

	var out *StealOutcome
	// a transient error from Apply may hide a commit
	uncertain := false
	err := withRetry(ctx, s.deps.Retry, "steal", func() error {
		if uncertain {
			applied, err := s.recoverOutcome(ctx, attackerID, targetID, stealID, success)
			if err != nil {
				return err
			}
			if applied != nil {
				out = applied
				return nil
			}
		}
		var err error
		out, err = s.trySteal(ctx, attackerID, targetID, key, stealID, success, fraction)
		if errors.Is(err, domain.ErrTransient) {
			uncertain = true
		}
		return err
	})
	if err != nil {
		if !isValidationError(err) {
			logger.WithContext(ctx).Error("steal failed", "attacker_id", attackerID, "target_id", targetID, "error", err)
		}
		return nil, err
	}

	action := domain.AuditActionStealFail
	switch {
	case out.Transferred():
		action = domain.AuditActionStealSuccess
		stealTotal.WithLabelValues("success").Inc()
		s.deps.notify(ctx, targetID, fmt.Sprintf("🕵️ Someone stole %s TON from you!", out.Amount.String()))
	case out.Success:
		stealTotal.WithLabelValues("empty").Inc()
	default:
		stealTotal.WithLabelValues("fail").Inc()
	}

	logger.WithContext(ctx).Info("steal attempt",
		"attacker_id", attackerID,
		"target_id", targetID,
		"steal_id", out.StealID,
		"success", out.Success,
		"amount", out.Amount.String(),
	)
	s.deps.audit(ctx, attackerID, action, domain.AuditCategorySocial, map[string]interface{}{
		"steal_id":  out.StealID.String(),
		"target_id": targetID,
		"amount":    out.Amount.String(),
	})
	return out, nil
}

// stealFraction maps a uniform draw in [0,1) onto [min, max) without going
// through float arithmetic for the bounds.
func (s *StealService) stealFraction(r float64) decimal.Decimal {
	cfg := s.deps.Economy
	width := cfg.StealMaxFraction.Sub(cfg.StealMinFraction)
	return cfg.StealMinFraction.Add(decimal.NewFromFloat(r).Mul(width))
}

// stealAmount floors balance*fraction to the configured precision and never
// exceeds the balance.
func (s *StealService) stealAmount(balance, fraction decimal.Decimal) decimal.Decimal {
	if !balance.IsPositive() {
		return decimal.Zero
	}
	amount := balance.Mul(fraction).RoundFloor(s.deps.Economy.StealPrecision)
	if amount.GreaterThan(balance) {
		amount = balance
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// recoverOutcome rebuilds the outcome of an attempt that committed without
// reporting it. nil means the attempt did not land.
func (s *StealService) recoverOutcome(ctx context.Context, attackerID, targetID int64, stealID uuid.UUID, success bool) (*StealOutcome, error) {
	recs, err := s.deps.Store.TheftRecords(ctx, attackerID, domain.HistoryDisplayLimit)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.StealID != stealID {
			continue
		}
		attacker, err := s.deps.Store.Get(ctx, attackerID)
		if err != nil {
			return nil, err
		}
		return &StealOutcome{
			StealID:        stealID,
			Success:        success,
			Amount:         r.Amount,
			TargetUserID:   targetID,
			TargetUsername: r.Username,
			Balance:        attacker.Balance,
		}, nil
	}
	return nil, nil
}

func (s *StealService) trySteal(ctx context.Context, attackerID, targetID int64, idempotencyKey string, stealID uuid.UUID, success bool, fraction decimal.Decimal) (*StealOutcome, error) {
	attacker, err := s.deps.Store.Get(ctx, attackerID)
	if err != nil {
		return nil, err
	}
	target, err := s.deps.Store.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}

	now := s.deps.now()
	amount := decimal.Zero
	if success {
		amount = s.stealAmount(target.Balance, fraction)
	}

	out := &StealOutcome{
		StealID:        stealID,
		Success:        success,
		Amount:         amount,
		TargetUserID:   targetID,
		TargetUsername: target.Username,
		Balance:        attacker.Balance.Add(amount),
	}

	if !amount.IsPositive() {
		err := s.deps.Store.Apply(ctx, domain.AccountMutation{
			AccountID: attackerID,
			Mutation: domain.Mutation{
				Theft: &domain.TheftRecord{
					StealID:        stealID,
					CounterpartyID: targetID,
					Username:       target.Username,
					Amount:         decimal.Zero,
					Success:        false,
					Attacker:       true,
					Timestamp:      now,
				},
				IdempotencyKey: idempotencyKey,
				Action:         domain.AuditActionStealFail,
			},
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	err = s.deps.Store.Apply(ctx,
		domain.AccountMutation{
			AccountID: attackerID,
			Mutation: domain.Mutation{
				Balance: amount,
				Theft: &domain.TheftRecord{
					StealID:        stealID,
					CounterpartyID: targetID,
					Username:       target.Username,
					Amount:         amount,
					Success:        true,
					Attacker:       true,
					Timestamp:      now,
				},
				IdempotencyKey: idempotencyKey,
				Action:         domain.AuditActionStealSuccess,
			},
		},
		domain.AccountMutation{
			AccountID: targetID,
			Mutation: domain.Mutation{
				Balance: amount.Neg(),
				Theft: &domain.TheftRecord{
					StealID:        stealID,
					CounterpartyID: attackerID,
					Username:       attacker.Username,
					Amount:         amount.Neg(),
					Success:        true,
					Attacker:       false,
					Timestamp:      now,
				},
				Guard: domain.Guard{MinBalance: amount},
			},
		},
	)
	// the target was drained between read and write: recompute from the new balance
	if errors.Is(err, domain.ErrInsufficientBalance) {
		return nil, domain.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
