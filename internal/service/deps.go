package service

import (
	"context"
	"math/rand/v2"
	"time"

	"ton_miner/internal/domain"
	"ton_miner/internal/economy"

	"github.com/google/uuid"
)

// AccountStore is the persistence boundary of the economy. Both
// repository.AccountRepository and repository.MemoryStore satisfy it.
type AccountStore interface {
	Get(ctx context.Context, id int64) (*domain.Account, error)
	Create(ctx context.Context, acc *domain.Account, also ...domain.AccountMutation) (bool, error)
	Apply(ctx context.Context, muts ...domain.AccountMutation) error

	TheftRecords(ctx context.Context, id int64, limit int) ([]domain.TheftRecord, error)
	InvitationRecords(ctx context.Context, id int64, limit int) ([]domain.InvitationRecord, error)
	Ranking(ctx context.Context, kind domain.RankingKind, limit int) ([]domain.RankingEntry, error)
	Friends(ctx context.Context, referrerID int64) ([]domain.RankingEntry, error)
	StealTargets(ctx context.Context, excludeID int64, limit int) ([]domain.RankingEntry, error)
	Stats(ctx context.Context) (domain.Stats, error)

	GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	Withdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)
	PendingWithdrawals(ctx context.Context, limit int) ([]domain.Withdrawal, error)

	Ping(ctx context.Context) error
}

// Notifier delivers a short message to a player. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, accountID int64, message string)
}

// Rand is the randomness source of the steal mechanic.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Deps is shared by every controller. Economy is read-only after construction.
type Deps struct {
	Store    AccountStore
	Economy  *economy.Config
	Audit    *AuditService
	Notifier Notifier
	Clock    func() time.Time
	Rand     Rand
	Retry    RetryPolicy
}

func (d Deps) withDefaults() Deps {
	if d.Economy == nil {
		d.Economy = economy.Default()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Rand == nil {
		d.Rand = globalRand{}
	}
	if d.Retry.Attempts == 0 {
		d.Retry = DefaultRetry
	}
	return d
}

// now is truncated to the precision Postgres keeps, so a timestamp read back
// from the store compares equal to the one written.
func (d Deps) now() time.Time {
	return d.Clock().UTC().Truncate(time.Microsecond)
}

func (d Deps) notify(ctx context.Context, accountID int64, message string) {
	if d.Notifier != nil {
		d.Notifier.Notify(ctx, accountID, message)
	}
}

func (d Deps) audit(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	if d.Audit != nil {
		d.Audit.Log(ctx, userID, action, category, details)
	}
}

// Services bundles every controller built from one Deps.
type Services struct {
	Accounts *AccountService
	Unlock   *UnlockService
	Collect  *CollectService
	Steal    *StealService
	Tasks    *TaskService
	Wallet   *WalletService
}

func New(d Deps, opts AccountOptions) *Services {
	d = d.withDefaults()
	return &Services{
		Accounts: NewAccountService(d, opts),
		Unlock:   NewUnlockService(d),
		Collect:  NewCollectService(d),
		Steal:    NewStealService(d),
		Tasks:    NewTaskService(d),
		Wallet:   NewWalletService(d),
	}
}
