package service

import (
	"context"
	"errors"
	"testing"

	"ton_miner/internal/domain"
	"ton_miner/internal/repository"
)

func TestStealTransfersAmount(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.register(t, 2)
	f.setFunds(t, 2, "1000", 0)
	// success, fraction = 0.01 + 0.5*0.05
	f.rand.vals = []float64{0.1, 0.5}

	out, err := f.svc.Steal.Steal(context.Background(), 1, 2, "")
	if err != nil {
		t.Fatalf("steal: %v", err)
	}
	if !out.Success || !out.Amount.Equal(dec("35")) {
		t.Fatalf("outcome = %+v", out)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("35")) {
		t.Fatalf("attacker balance = %s", got)
	}
	if got := f.get(t, 2).Balance; !got.Equal(dec("965")) {
		t.Fatalf("target balance = %s", got)
	}

	atk, _ := f.store.TheftRecords(context.Background(), 1, 20)
	vic, _ := f.store.TheftRecords(context.Background(), 2, 20)
	if len(atk) != 1 || len(vic) != 1 {
		t.Fatalf("records: attacker=%d target=%d", len(atk), len(vic))
	}
	if atk[0].StealID != vic[0].StealID || atk[0].StealID != out.StealID {
		t.Fatal("records do not share the steal id")
	}
	if !atk[0].Amount.Equal(dec("35")) || !vic[0].Amount.Equal(dec("-35")) {
		t.Fatalf("amounts attacker=%s target=%s", atk[0].Amount, vic[0].Amount)
	}
	if atk[0].CounterpartyID != 2 || vic[0].CounterpartyID != 1 || !atk[0].Attacker || vic[0].Attacker {
		t.Fatalf("cross references wrong: %+v / %+v", atk[0], vic[0])
	}
	if f.notifier.count(2) != 1 {
		t.Fatal("target was not notified")
	}
}

func TestStealFailureRecordsAttackerOnly(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.register(t, 2)
	f.setFunds(t, 2, "1000", 0)
	f.rand.vals = []float64{0.9, 0.5}

	out, err := f.svc.Steal.Steal(context.Background(), 1, 2, "")
	if err != nil {
		t.Fatalf("steal: %v", err)
	}
	if out.Success || !out.Amount.IsZero() {
		t.Fatalf("outcome = %+v", out)
	}
	if got := f.get(t, 2).Balance; !got.Equal(dec("1000")) {
		t.Fatalf("target balance = %s", got)
	}
	atk, _ := f.store.TheftRecords(context.Background(), 1, 20)
	vic, _ := f.store.TheftRecords(context.Background(), 2, 20)
	if len(atk) != 1 || atk[0].Success || !atk[0].Amount.IsZero() || len(vic) != 0 {
		t.Fatalf("records: attacker=%+v target=%+v", atk, vic)
	}
}

func TestStealFromEmptyTarget(t *testing.T) {
	for _, flip := range []float64{0.1, 0.9} {
		f := newFixture(t)
		f.register(t, 1)
		f.register(t, 2)
		f.rand.vals = []float64{flip, 0.99}

		out, err := f.svc.Steal.Steal(context.Background(), 1, 2, "")
		if err != nil {
			t.Fatalf("flip %v: %v", flip, err)
		}
		if out.Success != (flip < 0.5) {
			t.Fatalf("flip %v: success = %v", flip, out.Success)
		}
		if !out.Amount.IsZero() {
			t.Fatalf("flip %v: amount = %s", flip, out.Amount)
		}
		if !f.get(t, 1).Balance.IsZero() || !f.get(t, 2).Balance.IsZero() {
			t.Fatalf("flip %v: balances moved", flip)
		}
		atk, _ := f.store.TheftRecords(context.Background(), 1, 20)
		if len(atk) != 1 || atk[0].Success {
			t.Fatalf("flip %v: attacker records = %+v", flip, atk)
		}
	}
}

func TestStealSmallBalanceFloorsToZero(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.register(t, 2)
	f.setFunds(t, 2, "10", 0)
	f.rand.vals = []float64{0.1, 0.99}

	out, err := f.svc.Steal.Steal(context.Background(), 1, 2, "")
	if err != nil {
		t.Fatalf("steal: %v", err)
	}
	if !out.Amount.IsZero() {
		t.Fatalf("amount = %s, want 0 (floor of 0.595)", out.Amount)
	}
	if got := f.get(t, 2).Balance; !got.Equal(dec("10")) {
		t.Fatalf("target balance = %s", got)
	}
}

func TestStealAmountNeverExceedsBalance(t *testing.T) {
	f := newFixture(t)
	for _, bal := range []string{"0", "0.5", "1", "17", "100", "123456.789"} {
		for _, fraction := range []string{"0.01", "0.035", "0.0599999"} {
			amount := f.svc.Steal.stealAmount(dec(bal), dec(fraction))
			if amount.IsNegative() || amount.GreaterThan(dec(bal)) {
				t.Fatalf("balance %s fraction %v: amount %s", bal, fraction, amount)
			}
			if !amount.Equal(amount.Floor()) {
				t.Fatalf("balance %s fraction %v: amount %s is not whole", bal, fraction, amount)
			}
		}
	}
}

func TestStealRejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)

	tests := []struct {
		name             string
		attacker, target int64
		want             error
	}{
		{"self", 1, 1, domain.ErrSelfSteal},
		{"missing target", 1, 2, domain.ErrNotFound},
		{"missing attacker", 3, 1, domain.ErrNotFound},
		{"bad id", 0, 1, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Steal.Steal(context.Background(), tt.attacker, tt.target, "")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if recs, _ := f.store.TheftRecords(context.Background(), 1, 20); len(recs) != 0 {
		t.Fatalf("rejected steals left records: %+v", recs)
	}
}

func TestStealRecomputesWhenTargetDrained(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.register(t, 2)
	f.setFunds(t, 2, "1000", 0)
	f.rand.vals = []float64{0.1, 0.5}

	// The target spends almost everything between our read and our write.
	drained := false
	f.store.BeforeApply = func([]domain.AccountMutation) error {
		if drained {
			return nil
		}
		drained = true
		return f.store.Apply(context.Background(), domain.AccountMutation{
			AccountID: 2,
			Mutation:  domain.Mutation{Balance: dec("-980")},
		})
	}

	out, err := f.svc.Steal.Steal(context.Background(), 1, 2, "")
	if err != nil {
		t.Fatalf("steal: %v", err)
	}
	// floor(20 * 0.035) = 0
	if !out.Amount.IsZero() {
		t.Fatalf("amount = %s, want 0 after recompute", out.Amount)
	}
	if got := f.get(t, 2).Balance; !got.Equal(dec("20")) {
		t.Fatalf("target balance = %s", got)
	}
}

func TestStealIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.register(t, 2)
	f.setFunds(t, 2, "1000", 0)
	f.rand.vals = []float64{0.1, 0.5}

	if _, err := f.svc.Steal.Steal(context.Background(), 1, 2, "s-1"); err != nil {
		t.Fatalf("steal: %v", err)
	}
	_, err := f.svc.Steal.Steal(context.Background(), 1, 2, "s-1")
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("replay err = %v", err)
	}
	if got := f.get(t, 2).Balance; !got.Equal(dec("965")) {
		t.Fatalf("target balance = %s, want one transfer", got)
	}
}

func TestStealAmountExactProducts(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		draw    float64
		balance string
		want    string
	}{
		{0, "1000", "10"},
		{0.5, "1000", "35"},
		{0.8, "1000", "50"},
		{0.5, "200", "7"},
		{0.25, "400", "9"},
	}
	for _, tt := range tests {
		got := f.svc.Steal.stealAmount(dec(tt.balance), f.svc.Steal.stealFraction(tt.draw))
		if !got.Equal(dec(tt.want)) {
			t.Errorf("draw %v balance %s: amount = %s, want %s", tt.draw, tt.balance, got, tt.want)
		}
	}
}

// ackLostStore commits the next transfers and then reports a transient error,
// as a commit whose acknowledgement times out would.
type ackLostStore struct {
	*repository.MemoryStore
	lose int
}

func (s *ackLostStore) Apply(ctx context.Context, muts ...domain.AccountMutation) error {
	if err := s.MemoryStore.Apply(ctx, muts...); err != nil {
		return err
	}
	if s.lose > 0 {
		s.lose--
		return domain.ErrTransient
	}
	return nil
}

func TestStealAppliedOnceWhenCommitIsNotAcknowledged(t *testing.T) {
	for _, key := range []string{"", "client-key"} {
		f := newFixture(t)
		f.register(t, 1)
		f.register(t, 2)
		f.setFunds(t, 2, "1000", 0)
		f.rand.vals = []float64{0.1, 0.5}

		svc := NewStealService(Deps{
			Store:    &ackLostStore{MemoryStore: f.store, lose: 1},
			Economy:  f.svc.Steal.deps.Economy,
			Notifier: f.notifier,
			Clock:    f.clock.Now,
			Rand:     f.rand,
			Retry:    RetryPolicy{Attempts: 5},
		})
		out, err := svc.Steal(context.Background(), 1, 2, key)
		if err != nil {
			t.Fatalf("key %q: steal: %v", key, err)
		}
		if !out.Success || !out.Amount.Equal(dec("35")) {
			t.Fatalf("key %q: outcome = %+v", key, out)
		}
		if got := f.get(t, 1).Balance; !got.Equal(dec("35")) {
			t.Fatalf("key %q: attacker balance = %s", key, got)
		}
		if got := f.get(t, 2).Balance; !got.Equal(dec("965")) {
			t.Fatalf("key %q: target balance = %s, want one transfer", key, got)
		}
		if !out.Balance.Equal(dec("35")) {
			t.Fatalf("key %q: reported balance = %s", key, out.Balance)
		}
		vic, _ := f.store.TheftRecords(context.Background(), 2, 20)
		if len(vic) != 1 {
			t.Fatalf("key %q: target records = %d", key, len(vic))
		}
	}
}

func TestStealFailureAppliedOnceWhenCommitIsNotAcknowledged(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.register(t, 2)
	f.rand.vals = []float64{0.9, 0.5}

	svc := NewStealService(Deps{
		Store:   &ackLostStore{MemoryStore: f.store, lose: 1},
		Economy: f.svc.Steal.deps.Economy,
		Clock:   f.clock.Now,
		Rand:    f.rand,
		Retry:   RetryPolicy{Attempts: 5},
	})
	out, err := svc.Steal(context.Background(), 1, 2, "")
	if err != nil {
		t.Fatalf("steal: %v", err)
	}
	if out.Success {
		t.Fatalf("outcome = %+v", out)
	}
	if atk, _ := f.store.TheftRecords(context.Background(), 1, 20); len(atk) != 1 {
		t.Fatalf("attacker records = %d, want 1", len(atk))
	}
}
