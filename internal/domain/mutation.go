package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Guard holds preconditions that a store must evaluate atomically with the writes
// of the same Mutation. Zero values disable a check.
type Guard struct {
	UnlockedFloors   *int
	MinDiamonds      int64
	MinBalance       decimal.Decimal
	FloorCollectedAt map[int]time.Time
	TaskNotCompleted string
}

// Check returns nil when the account satisfies every enabled precondition.
func (g Guard) Check(a *Account) error {
	if g.UnlockedFloors != nil && a.UnlockedFloors != *g.UnlockedFloors {
		return ErrConflict
	}
	for floorID, want := range g.FloorCollectedAt {
		got, ok := a.FloorCollectedAt[floorID]
		if !ok || !got.Equal(want) {
			return ErrConflict
		}
	}
	if g.TaskNotCompleted != "" && a.CompletedTasks[g.TaskNotCompleted] {
		return ErrTaskCompleted
	}
	if g.MinBalance.IsPositive() && a.Balance.LessThan(g.MinBalance) {
		return ErrInsufficientBalance
	}
	if g.MinDiamonds > 0 && a.Diamonds < g.MinDiamonds {
		return ErrInsufficientFunds
	}
	return nil
}

// Mutation is a partial update of one account. Numeric fields are increments,
// UnlockedFloors and FloorCollectedAt are sets, Theft and Invitation are appends.
type Mutation struct {
	Balance          decimal.Decimal
	Diamonds         int64
	Referrals        int64
	ProductionRate   decimal.Decimal
	UnlockedFloors   int
	FloorCollectedAt map[int]time.Time
	CompleteTask     string
	Theft            *TheftRecord
	Invitation       *InvitationRecord
	Withdrawal       *Withdrawal
	WithdrawalUpdate *WithdrawalUpdate

	// IdempotencyKey, when set, is claimed for (account, key) in the same unit.
	IdempotencyKey string
	Action         string

	Guard Guard
}

// AccountMutation binds a Mutation to an account.
type AccountMutation struct {
	AccountID int64
	Mutation
}

// ApplyTo mutates a in place. History appends are left to the store.
func (m *Mutation) ApplyTo(a *Account) {
	a.Balance = a.Balance.Add(m.Balance)
	a.Diamonds += m.Diamonds
	a.Referrals += m.Referrals
	a.ProductionRate = a.ProductionRate.Add(m.ProductionRate)
	if m.UnlockedFloors > 0 {
		a.UnlockedFloors = m.UnlockedFloors
	}
	if len(m.FloorCollectedAt) > 0 && a.FloorCollectedAt == nil {
		a.FloorCollectedAt = make(map[int]time.Time, len(m.FloorCollectedAt))
	}
	for floorID, ts := range m.FloorCollectedAt {
		a.FloorCollectedAt[floorID] = ts
	}
	if m.CompleteTask != "" {
		if a.CompletedTasks == nil {
			a.CompletedTasks = map[string]bool{}
		}
		a.CompletedTasks[m.CompleteTask] = true
	}
}

// WithdrawalUpdate moves a withdrawal of the same account from one status to another.
// The store fails with ErrConflict when the current status is not From.
type WithdrawalUpdate struct {
	ID    uuid.UUID
	From  WithdrawalStatus
	To    WithdrawalStatus
	Notes string
	At    time.Time
}
