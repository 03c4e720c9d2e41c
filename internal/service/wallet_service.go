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

// AdminNotifier reaches the operators. The bot implements it.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, message string)
}

// WalletService handles balance debits that leave the game: withdrawals and luckbags.
type WalletService struct {
	deps   Deps
	admins AdminNotifier
}

func NewWalletService(d Deps) *WalletService {
	return &WalletService{deps: d.withDefaults()}
}

// SetAdminNotifier wires admin alerts after the bot is started.
func (s *WalletService) SetAdminNotifier(n AdminNotifier) {
	s.admins = n
}

// Withdraw debits amount and the diamond fee together and files a pending
// request for an admin. Balance is checked before the fee, as players see it.
func (s *WalletService) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, fee int64) (*domain.Withdrawal, error) {
	if !amount.IsPositive() || fee < 0 {
		return nil, domain.ErrInvalidInput
	}

	w := &domain.Withdrawal{
		ID:          uuid.New(),
		UserID:      accountID,
		Amount:      amount,
		FeeDiamonds: fee,
		Status:      domain.WithdrawalStatusPending,
		CreatedAt:   s.deps.now(),
	}

	err := withRetry(ctx, s.deps.Retry, "withdraw", func() error {
		return s.deps.Store.Apply(ctx, domain.AccountMutation{
			AccountID: accountID,
			Mutation: domain.Mutation{
				Balance:    amount.Neg(),
				Diamonds:   -fee,
				Withdrawal: w,
				Action:     domain.AuditActionWithdrawRequest,
				Guard: domain.Guard{
					MinBalance:  amount,
					MinDiamonds: fee,
				},
			},
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) && !errors.Is(err, domain.ErrInsufficientBalance) {
			err = domain.ErrInsufficientFee
		}
		if !isValidationError(err) {
			logger.WithContext(ctx).Error("withdraw failed", "account_id", accountID, "error", err)
		}
		return nil, err
	}

	logger.WithContext(ctx).Info("withdrawal requested", "account_id", accountID, "withdrawal_id", w.ID, "amount", amount.String(), "fee", fee)
	if s.deps.Audit != nil {
		s.deps.Audit.LogWithdrawRequest(ctx, accountID, w.ID, amount, fee)
	}
	if s.admins != nil {
		s.admins.NotifyAdmins(ctx, fmt.Sprintf("💸 New withdrawal %s\nUser: %d\nAmount: %s TON\nFee: %d 💎", w.ID, accountID, amount.String(), fee))
	}
	return w, nil
}

// CreateLuckbag debits amount from the balance.
func (s *WalletService) CreateLuckbag(ctx context.Context, accountID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidInput
	}
	err := withRetry(ctx, s.deps.Retry, "luckbag", func() error {
		return s.deps.Store.Apply(ctx, domain.AccountMutation{
			AccountID: accountID,
			Mutation: domain.Mutation{
				Balance: amount.Neg(),
				Action:  domain.AuditActionLuckbag,
				Guard:   domain.Guard{MinBalance: amount},
			},
		})
	})
	if err != nil {
		if !isValidationError(err) {
			logger.WithContext(ctx).Error("luckbag failed", "account_id", accountID, "error", err)
		}
		return err
	}

	logger.WithContext(ctx).Info("luckbag created", "account_id", accountID, "amount", amount.String())
	s.deps.audit(ctx, accountID, domain.AuditActionLuckbag, domain.AuditCategoryEconomy, map[string]interface{}{
		"amount": amount.String(),
	})
	return nil
}

// Withdrawals lists an account's requests, newest first.
func (s *WalletService) Withdrawals(ctx context.Context, accountID int64) ([]domain.Withdrawal, error) {
	return s.deps.Store.Withdrawals(ctx, accountID, domain.HistoryDisplayLimit)
}

// PendingWithdrawals lists requests awaiting a decision, oldest first.
func (s *WalletService) PendingWithdrawals(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	return s.deps.Store.PendingWithdrawals(ctx, limit)
}

// ApproveWithdrawal marks a pending request completed. Funds were already debited.
func (s *WalletService) ApproveWithdrawal(ctx context.Context, adminID int64, id uuid.UUID) (*domain.Withdrawal, error) {
	return s.decide(ctx, adminID, id, domain.WithdrawalStatusCompleted, "")
}

// RejectWithdrawal marks a pending request rejected and refunds amount and fee
// in the same write.
func (s *WalletService) RejectWithdrawal(ctx context.Context, adminID int64, id uuid.UUID, reason string) (*domain.Withdrawal, error) {
	return s.decide(ctx, adminID, id, domain.WithdrawalStatusRejected, reason)
}

func (s *WalletService) decide(ctx context.Context, adminID int64, id uuid.UUID, to domain.WithdrawalStatus, notes string) (*domain.Withdrawal, error) {
	w, err := s.deps.Store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != domain.WithdrawalStatusPending {
		return nil, fmt.Errorf("withdrawal is %s: %w", w.Status, domain.ErrInvalidInput)
	}

	now := s.deps.now()
	m := domain.Mutation{
		WithdrawalUpdate: &domain.WithdrawalUpdate{
			ID:    id,
			From:  domain.WithdrawalStatusPending,
			To:    to,
			Notes: notes,
			At:    now,
		},
	}
	action := domain.AuditActionWithdrawApprove
	if to == domain.WithdrawalStatusRejected {
		m.Balance = w.Amount
		m.Diamonds = w.FeeDiamonds
		action = domain.AuditActionWithdrawReject
	}
	m.Action = action

	// no retry: a conflict here means another admin already decided
	if err := s.deps.Store.Apply(ctx, domain.AccountMutation{AccountID: w.UserID, Mutation: m}); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("withdrawal already processed: %w", domain.ErrInvalidInput)
		}
		logger.WithContext(ctx).Error("withdrawal decision failed", "withdrawal_id", id, "error", err)
		return nil, err
	}

	w.Status, w.AdminNotes, w.ProcessedAt = to, notes, &now
	logger.WithContext(ctx).Info("withdrawal processed", "withdrawal_id", id, "status", to, "admin_id", adminID)
	if s.deps.Audit != nil {
		s.deps.Audit.LogAdminAction(ctx, adminID, action, w.UserID, map[string]interface{}{
			"withdrawal_id": id.String(),
			"notes":         notes,
		})
	}
	msg := fmt.Sprintf("✅ Your withdrawal of %s TON was sent.", w.Amount.String())
	if to == domain.WithdrawalStatusRejected {
		msg = fmt.Sprintf("❌ Your withdrawal of %s TON was rejected and refunded.", w.Amount.String())
	}
	s.deps.notify(ctx, w.UserID, msg)
	return w, nil
}

// GrantDiamonds credits diamonds on behalf of an admin.
func (s *WalletService) GrantDiamonds(ctx context.Context, adminID, accountID, diamonds int64) error {
	if diamonds <= 0 {
		return domain.ErrInvalidInput
	}
	err := withRetry(ctx, s.deps.Retry, "grant", func() error {
		return s.deps.Store.Apply(ctx, domain.AccountMutation{
			AccountID: accountID,
			Mutation: domain.Mutation{
				Diamonds: diamonds,
				Action:   domain.AuditActionAdminGrant,
			},
		})
	})
	if err != nil {
		return err
	}
	logger.WithContext(ctx).Info("diamonds granted", "account_id", accountID, "diamonds", diamonds, "admin_id", adminID)
	if s.deps.Audit != nil {
		s.deps.Audit.LogAdminAction(ctx, adminID, domain.AuditActionAdminGrant, accountID, map[string]interface{}{
			"diamonds": diamonds,
		})
	}
	s.deps.notify(ctx, accountID, fmt.Sprintf("🎁 You received %d diamonds!", diamonds))
	return nil
}
