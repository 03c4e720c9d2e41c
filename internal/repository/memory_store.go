package repository

import (
	"context"
	"sort"
	"sync"

	"ton_miner/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type idemKey struct {
	userID int64
	key    string
}

// MemoryStore is an in-process user store with the same atomicity as the
// Postgres one: each Apply runs under a single mutex and commits all or nothing.
// It backs STORE=memory and the service tests.
type MemoryStore struct {
	mu          sync.Mutex
	accounts    map[int64]*domain.Account
	thefts      map[int64][]domain.TheftRecord
	invitations map[int64][]domain.InvitationRecord
	withdrawals map[uuid.UUID]*domain.Withdrawal
	idem        map[idemKey]string

	// BeforeApply runs outside the lock before every Apply; tests use it to
	// interleave other writes or inject failures.
	BeforeApply func(muts []domain.AccountMutation) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:    make(map[int64]*domain.Account),
		thefts:      make(map[int64][]domain.TheftRecord),
		invitations: make(map[int64][]domain.InvitationRecord),
		withdrawals: make(map[uuid.UUID]*domain.Withdrawal),
		idem:        make(map[idemKey]string),
	}
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return acc.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, acc *domain.Account, also ...domain.AccountMutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; ok {
		return false, nil
	}
	s.accounts[acc.ID] = acc.Clone()
	if err := s.applyLocked(also); err != nil {
		delete(s.accounts, acc.ID)
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Apply(_ context.Context, muts ...domain.AccountMutation) error {
	if s.BeforeApply != nil {
		if err := s.BeforeApply(muts); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(muts)
}

func (s *MemoryStore) applyLocked(muts []domain.AccountMutation) error {
	working := make(map[int64]*domain.Account, len(muts))
	for _, m := range muts {
		if _, ok := working[m.AccountID]; ok {
			continue
		}
		acc, ok := s.accounts[m.AccountID]
		if !ok {
			return domain.ErrNotFound
		}
		working[m.AccountID] = acc.Clone()
	}

	claimed := make(map[idemKey]string)
	wdUpdates := make(map[uuid.UUID]domain.Withdrawal)
	for i := range muts {
		m := &muts[i]
		acc := working[m.AccountID]
		if err := m.Guard.Check(acc); err != nil {
			return err
		}
		m.ApplyTo(acc)
		if acc.Balance.IsNegative() || acc.Diamonds < 0 {
			return domain.ErrConflict
		}

		if m.IdempotencyKey != "" {
			k := idemKey{m.AccountID, m.IdempotencyKey}
			if _, dup := s.idem[k]; dup {
				return domain.ErrDuplicateRequest
			}
			if _, dup := claimed[k]; dup {
				return domain.ErrDuplicateRequest
			}
			claimed[k] = m.Action
		}

		if u := m.WithdrawalUpdate; u != nil {
			w, ok := wdUpdates[u.ID]
			if !ok {
				cur, exists := s.withdrawals[u.ID]
				if !exists || cur.UserID != m.AccountID {
					return domain.ErrNotFound
				}
				w = *cur
			}
			if w.Status != u.From {
				return domain.ErrConflict
			}
			at := u.At
			w.Status, w.AdminNotes, w.ProcessedAt = u.To, u.Notes, &at
			wdUpdates[u.ID] = w
		}
	}

	// commit
	for id, acc := range working {
		s.accounts[id] = acc
	}
	for k, action := range claimed {
		s.idem[k] = action
	}
	for id, w := range wdUpdates {
		w := w
		s.withdrawals[id] = &w
	}
	for i := range muts {
		m := &muts[i]
		if m.Theft != nil {
			s.thefts[m.AccountID] = append(s.thefts[m.AccountID], *m.Theft)
		}
		if m.Invitation != nil {
			s.invitations[m.AccountID] = append(s.invitations[m.AccountID], *m.Invitation)
		}
		if m.Withdrawal != nil {
			w := *m.Withdrawal
			s.withdrawals[w.ID] = &w
		}
	}
	return nil
}

// clampLimit treats a negative limit as zero rows.
func clampLimit(limit int) int {
	return max(limit, 0)
}

func (s *MemoryStore) TheftRecords(_ context.Context, id int64, limit int) ([]domain.TheftRecord, error) {
	limit = clampLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.thefts[id]
	out := make([]domain.TheftRecord, 0, min(limit, len(recs)))
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (s *MemoryStore) InvitationRecords(_ context.Context, id int64, limit int) ([]domain.InvitationRecord, error) {
	limit = clampLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.invitations[id]
	out := make([]domain.InvitationRecord, 0, min(limit, len(recs)))
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func rankingValue(acc *domain.Account, kind domain.RankingKind) decimal.Decimal {
	switch kind {
	case domain.RankingDiamond:
		return decimal.NewFromInt(acc.Diamonds)
	case domain.RankingInvitation:
		return decimal.NewFromInt(acc.Referrals)
	default:
		return acc.Balance
	}
}

func (s *MemoryStore) sorted(kind domain.RankingKind, keep func(*domain.Account) bool) []domain.RankingEntry {
	entries := []domain.RankingEntry{}
	for _, acc := range s.accounts {
		if keep != nil && !keep(acc) {
			continue
		}
		entries = append(entries, domain.RankingEntry{UserID: acc.ID, Username: acc.Username, Value: rankingValue(acc, kind)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Value.Cmp(entries[j].Value); c != 0 {
			return c > 0
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries
}

func (s *MemoryStore) Ranking(_ context.Context, kind domain.RankingKind, limit int) ([]domain.RankingEntry, error) {
	limit = clampLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.sorted(kind, nil)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) Friends(_ context.Context, referrerID int64) ([]domain.RankingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var friends []*domain.Account
	for _, acc := range s.accounts {
		if acc.ReferrerID != nil && *acc.ReferrerID == referrerID {
			friends = append(friends, acc)
		}
	}
	sort.Slice(friends, func(i, j int) bool {
		if !friends[i].JoinedAt.Equal(friends[j].JoinedAt) {
			return friends[i].JoinedAt.Before(friends[j].JoinedAt)
		}
		return friends[i].ID < friends[j].ID
	})
	entries := make([]domain.RankingEntry, 0, len(friends))
	for _, f := range friends {
		entries = append(entries, domain.RankingEntry{UserID: f.ID, Username: f.Username, Value: f.Balance})
	}
	return entries, nil
}

func (s *MemoryStore) StealTargets(_ context.Context, excludeID int64, limit int) ([]domain.RankingEntry, error) {
	limit = clampLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.sorted(domain.RankingToken, func(a *domain.Account) bool { return a.ID != excludeID })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.Stats{TotalBalance: decimal.Zero}
	for _, acc := range s.accounts {
		st.Accounts++
		st.TotalBalance = st.TotalBalance.Add(acc.Balance)
		st.TotalDiamonds += acc.Diamonds
	}
	for _, w := range s.withdrawals {
		if w.Status == domain.WithdrawalStatusPending {
			st.PendingWithdrawals++
		}
	}
	return st, nil
}

func (s *MemoryStore) GetWithdrawal(_ context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *MemoryStore) Withdrawals(_ context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	return s.listWithdrawals(limit, true, func(w *domain.Withdrawal) bool { return w.UserID == userID }), nil
}

func (s *MemoryStore) PendingWithdrawals(_ context.Context, limit int) ([]domain.Withdrawal, error) {
	return s.listWithdrawals(limit, false, func(w *domain.Withdrawal) bool { return w.Status == domain.WithdrawalStatusPending }), nil
}

func (s *MemoryStore) listWithdrawals(limit int, newestFirst bool, keep func(*domain.Withdrawal) bool) []domain.Withdrawal {
	limit = clampLimit(limit)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Withdrawal
	for _, w := range s.withdrawals {
		if keep(w) {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
