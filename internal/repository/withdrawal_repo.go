package repository

import (
	"context"

	"ton_miner/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const withdrawalColumns = `id, user_id, amount::text, fee_diamonds, status, COALESCE(admin_notes, ''), created_at, processed_at`

// GetWithdrawal retrieves withdrawal by ID
func (r *AccountRepository) GetWithdrawal(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	row := r.db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	w, err := scanWithdrawal(row)
	return w, classify(err)
}

// Withdrawals retrieves the latest withdrawals of a user
func (r *AccountRepository) Withdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, clampLimit(limit))
	if err != nil {
		return nil, classify(err)
	}
	return scanWithdrawals(rows)
}

// PendingWithdrawals retrieves the oldest withdrawals awaiting an admin decision
func (r *AccountRepository) PendingWithdrawals(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, classify(err)
	}
	return scanWithdrawals(rows)
}

func insertWithdrawalTx(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO withdrawals (id, user_id, amount, fee_diamonds, status, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)`,
		w.ID, w.UserID, w.Amount.String(), w.FeeDiamonds, string(w.Status), w.CreatedAt,
	)
	return err
}

func updateWithdrawalStatusTx(ctx context.Context, tx pgx.Tx, userID int64, u *domain.WithdrawalUpdate) error {
	tag, err := tx.Exec(ctx, `
		UPDATE withdrawals
		SET status = $3, admin_notes = $4, processed_at = $5
		WHERE id = $1 AND user_id = $2 AND status = $6`,
		u.ID, userID, string(u.To), u.Notes, u.At, string(u.From),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM withdrawals WHERE id = $1 AND user_id = $2)`, u.ID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var (
		w      domain.Withdrawal
		amount string
		status string
	)
	if err := row.Scan(&w.ID, &w.UserID, &amount, &w.FeeDiamonds, &status, &w.AdminNotes, &w.CreatedAt, &w.ProcessedAt); err != nil {
		return nil, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	w.Amount = a
	w.Status = domain.WithdrawalStatus(status)
	return &w, nil
}

func scanWithdrawals(rows pgx.Rows) ([]domain.Withdrawal, error) {
	defer rows.Close()

	var result []domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, classify(rows.Err())
}
