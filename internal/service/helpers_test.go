package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ton_miner/internal/domain"
	"ton_miner/internal/economy"
	"ton_miner/internal/repository"

	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// seqRand replays vals in a loop.
type seqRand struct {
	mu   sync.Mutex
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func (n *recordingNotifier) Notify(_ context.Context, accountID int64, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[int64][]string{}
	}
	n.sent[accountID] = append(n.sent[accountID], message)
}

func (n *recordingNotifier) count(accountID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent[accountID])
}

type fixture struct {
	store    *repository.MemoryStore
	audit    *repository.MemoryAuditRepository
	clock    *fakeClock
	rand     *seqRand
	notifier *recordingNotifier
	svc      *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		audit:    repository.NewMemoryAuditRepository(),
		clock:    newFakeClock(),
		rand:     &seqRand{vals: []float64{0.9}},
		notifier: &recordingNotifier{},
	}
	f.svc = New(Deps{
		Store:    f.store,
		Economy:  economy.Default(),
		Audit:    NewAuditService(f.audit),
		Notifier: f.notifier,
		Clock:    f.clock.Now,
		Rand:     f.rand,
		Retry:    RetryPolicy{Attempts: 50},
	}, AccountOptions{StartingDiamonds: 10, ReferralBonus: 2})
	return f
}

func (f *fixture) register(t *testing.T, id int64) *domain.Account {
	t.Helper()
	acc, created, err := f.svc.Accounts.Register(context.Background(), id, DisplayName(id, "", ""), nil)
	if err != nil || !created {
		t.Fatalf("register %d: created=%v err=%v", id, created, err)
	}
	return acc
}

func (f *fixture) get(t *testing.T, id int64) *domain.Account {
	t.Helper()
	acc, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get %d: %v", id, err)
	}
	return acc
}

func (f *fixture) setFunds(t *testing.T, id int64, balance string, diamonds int64) {
	t.Helper()
	acc := f.get(t, id)
	err := f.store.Apply(context.Background(), domain.AccountMutation{
		AccountID: id,
		Mutation: domain.Mutation{
			Balance:  decimal.RequireFromString(balance).Sub(acc.Balance),
			Diamonds: diamonds - acc.Diamonds,
		},
	})
	if err != nil {
		t.Fatalf("set funds %d: %v", id, err)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
