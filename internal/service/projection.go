package service

import (
	"fmt"
	"time"

	"ton_miner/internal/domain"
	"ton_miner/internal/economy"

	"github.com/shopspring/decimal"
)

var levelStep = decimal.NewFromInt(1000)

// FloorView is one floor as the mini app renders it. Earnings and the timer are
// set for unlocked floors, UnlockCost for locked ones.
type FloorView struct {
	ID               int              `json:"id"`
	Name             string           `json:"name"`
	Rate             decimal.Decimal  `json:"rate"`
	Unlocked         bool             `json:"unlocked"`
	Earnings         *decimal.Decimal `json:"earnings,omitempty"`
	RemainingSeconds *int64           `json:"remaining_seconds,omitempty"`
	Timer            string           `json:"timer,omitempty"`
	UnlockCost       *int64           `json:"unlock_cost,omitempty"`
}

// AccountView is the read model of an account.
type AccountView struct {
	AccountID     int64           `json:"userId"`
	Username      string          `json:"username"`
	Level         int64           `json:"level"`
	Balance       decimal.Decimal `json:"ton_balance"`
	Diamonds      int64           `json:"diamonds"`
	AggregateRate decimal.Decimal `json:"total_mining_rate"`
	Floors        []FloorView     `json:"floors"`
}

// Level is one plus every full thousand of balance.
func Level(balance decimal.Decimal) int64 {
	return balance.Div(levelStep).Floor().IntPart() + 1
}

// Project builds the read model from the account, the economy table and now alone.
func Project(acc *domain.Account, cfg *economy.Config, now time.Time) AccountView {
	view := AccountView{
		AccountID:     acc.ID,
		Username:      acc.Username,
		Level:         Level(acc.Balance),
		Balance:       acc.Balance,
		Diamonds:      acc.Diamonds,
		AggregateRate: acc.ProductionRate,
		Floors:        make([]FloorView, 0, len(cfg.Floors)),
	}

	for _, f := range cfg.Floors {
		fv := FloorView{
			ID:       f.ID,
			Name:     fmt.Sprintf("Floor %d", f.ID),
			Rate:     f.Rate,
			Unlocked: acc.IsUnlocked(f.ID),
		}
		if fv.Unlocked {
			last, ok := acc.FloorCollectedAt[f.ID]
			if !ok {
				last = now
			}
			a := f.Accrue(last, now)
			fv.Earnings = &a.Earnings
			fv.RemainingSeconds = &a.RemainingSeconds
			fv.Timer = economy.FormatTimer(a.RemainingSeconds)
		} else {
			cost := f.UnlockCost
			fv.UnlockCost = &cost
		}
		view.Floors = append(view.Floors, fv)
	}
	return view
}
