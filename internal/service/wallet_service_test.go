package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ton_miner/internal/domain"
)

type recordingAdmins struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingAdmins) NotifyAdmins(_ context.Context, message string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, message)
	r.mu.Unlock()
}

func TestWithdrawDebitsAndFilesRequest(t *testing.T) {
	f := newFixture(t)
	admins := &recordingAdmins{}
	f.svc.Wallet.SetAdminNotifier(admins)
	f.register(t, 1)
	f.setFunds(t, 1, "10", 5)

	w, err := f.svc.Wallet.Withdraw(context.Background(), 1, dec("4.5"), 2)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if w.Status != domain.WithdrawalStatusPending {
		t.Fatalf("status = %s", w.Status)
	}
	acc := f.get(t, 1)
	if !acc.Balance.Equal(dec("5.5")) || acc.Diamonds != 3 {
		t.Fatalf("balance=%s diamonds=%d", acc.Balance, acc.Diamonds)
	}
	pending, _ := f.svc.Wallet.PendingWithdrawals(context.Background(), 10)
	if len(pending) != 1 || pending[0].ID != w.ID {
		t.Fatalf("pending = %+v", pending)
	}
	if len(admins.msgs) != 1 {
		t.Fatalf("admin alerts = %d", len(admins.msgs))
	}
}

func TestWithdrawRejections(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.setFunds(t, 1, "10", 1)

	tests := []struct {
		name    string
		account int64
		amount  string
		fee     int64
		want    error
		message string
	}{
		{"balance", 1, "11", 0, domain.ErrInsufficientBalance, "Not enough TON balance!"},
		{"balance before fee", 1, "11", 5, domain.ErrInsufficientBalance, "Not enough TON balance!"},
		{"fee", 1, "1", 2, domain.ErrInsufficientFee, "Not enough diamonds for withdrawal fee!"},
		{"zero amount", 1, "0", 0, domain.ErrInvalidInput, "Invalid request."},
		{"negative fee", 1, "1", -1, domain.ErrInvalidInput, "Invalid request."},
		{"missing", 2, "1", 0, domain.ErrNotFound, "User not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Wallet.Withdraw(context.Background(), tt.account, dec(tt.amount), tt.fee)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if got := domain.Message(err); got != tt.message {
				t.Fatalf("message = %q, want %q", got, tt.message)
			}
		})
	}
	acc := f.get(t, 1)
	if !acc.Balance.Equal(dec("10")) || acc.Diamonds != 1 {
		t.Fatalf("rejected withdrawals changed funds: %s/%d", acc.Balance, acc.Diamonds)
	}
}

func TestRejectWithdrawalRefunds(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.setFunds(t, 1, "10", 5)
	w, err := f.svc.Wallet.Withdraw(context.Background(), 1, dec("4"), 2)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	got, err := f.svc.Wallet.RejectWithdrawal(context.Background(), 99, w.ID, "bad address")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != domain.WithdrawalStatusRejected || got.ProcessedAt == nil {
		t.Fatalf("withdrawal = %+v", got)
	}
	acc := f.get(t, 1)
	if !acc.Balance.Equal(dec("10")) || acc.Diamonds != 5 {
		t.Fatalf("refund: balance=%s diamonds=%d", acc.Balance, acc.Diamonds)
	}

	if _, err := f.svc.Wallet.ApproveWithdrawal(context.Background(), 99, w.ID); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("approve after reject err = %v", err)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("10")) {
		t.Fatalf("balance after second decision = %s", got)
	}
}

func TestApproveWithdrawalKeepsDebit(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.setFunds(t, 1, "10", 0)
	w, err := f.svc.Wallet.Withdraw(context.Background(), 1, dec("3"), 0)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := f.svc.Wallet.ApproveWithdrawal(context.Background(), 99, w.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	stored, _ := f.store.GetWithdrawal(context.Background(), w.ID)
	if stored.Status != domain.WithdrawalStatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("7")) {
		t.Fatalf("balance = %s", got)
	}
	if f.notifier.count(1) != 1 {
		t.Fatal("player was not notified")
	}
}

func TestCreateLuckbag(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	f.setFunds(t, 1, "2", 0)

	if err := f.svc.Wallet.CreateLuckbag(context.Background(), 1, dec("3")); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v", err)
	}
	if err := f.svc.Wallet.CreateLuckbag(context.Background(), 1, dec("1.5")); err != nil {
		t.Fatalf("luckbag: %v", err)
	}
	if got := f.get(t, 1).Balance; !got.Equal(dec("0.5")) {
		t.Fatalf("balance = %s", got)
	}
}

func TestGrantDiamonds(t *testing.T) {
	f := newFixture(t)
	f.register(t, 1)
	if err := f.svc.Wallet.GrantDiamonds(context.Background(), 99, 1, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if err := f.svc.Wallet.GrantDiamonds(context.Background(), 99, 1, 15); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if got := f.get(t, 1).Diamonds; got != 25 {
		t.Fatalf("diamonds = %d", got)
	}
	logs, _ := f.audit.GetByUserID(context.Background(), 1, 10)
	if len(logs) == 0 || logs[0].Action != domain.AuditActionAdminGrant {
		t.Fatalf("audit = %+v", logs)
	}
}
