package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ton_miner/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepository is the Postgres user store. Every write goes through one
// transaction that locks the touched account rows in id order, so concurrent
// requests for the same account are serialized and cross-account writes cannot
// deadlock.
type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `tg_id, COALESCE(username, ''), ton_balance::text, diamonds, unlocked_floors,
	total_mining_rate::text, referrals, referrer_id, joined_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a             domain.Account
		balance, rate string
	)
	if err := row.Scan(
		&a.ID,
		&a.Username,
		&balance,
		&a.Diamonds,
		&a.UnlockedFloors,
		&rate,
		&a.Referrals,
		&a.ReferrerID,
		&a.JoinedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("account %d balance: %w", a.ID, err)
	}
	if a.ProductionRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("account %d rate: %w", a.ID, err)
	}
	return &a, nil
}

func loadAccount(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tg_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	acc, err := scanAccount(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT floor_id, last_collected_at FROM floor_states WHERE user_id = $1`, id)
	if err != nil {
		return nil, err
	}
	acc.FloorCollectedAt = make(map[int]time.Time)
	for rows.Next() {
		var (
			floorID int
			ts      time.Time
		)
		if err := rows.Scan(&floorID, &ts); err != nil {
			rows.Close()
			return nil, err
		}
		acc.FloorCollectedAt[floorID] = ts
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.Query(ctx, `SELECT task_id FROM completed_tasks WHERE user_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	acc.CompletedTasks = make(map[string]bool)
	for rows.Next() {
		var taskID string
		if err := rows.Scan(&taskID); err != nil {
			return nil, err
		}
		acc.CompletedTasks[taskID] = true
	}
	return acc, rows.Err()
}

// Get returns the account with its floor clocks and completed tasks.
func (r *AccountRepository) Get(ctx context.Context, id int64) (*domain.Account, error) {
	acc, err := loadAccount(ctx, r.db, id, false)
	return acc, classify(err)
}

// Create inserts acc and applies also in the same transaction. It reports false
// without writing anything when the account already exists.
func (r *AccountRepository) Create(ctx context.Context, acc *domain.Account, also ...domain.AccountMutation) (bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO accounts (tg_id, username, ton_balance, diamonds, unlocked_floors, total_mining_rate, referrals, referrer_id, joined_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6::numeric, $7, $8, $9)
		ON CONFLICT (tg_id) DO NOTHING`,
		acc.ID, acc.Username, acc.Balance.String(), acc.Diamonds, acc.UnlockedFloors,
		acc.ProductionRate.String(), acc.Referrals, acc.ReferrerID, acc.JoinedAt,
	)
	if err != nil {
		return false, classify(err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for floorID, ts := range acc.FloorCollectedAt {
		if err := upsertFloorState(ctx, tx, acc.ID, floorID, ts); err != nil {
			return false, classify(err)
		}
	}

	if err := applyTx(ctx, tx, also); err != nil {
		return false, classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, classify(err)
	}
	return true, nil
}

// Apply runs every mutation in one transaction: all guards hold and all writes
// land, or nothing changes.
func (r *AccountRepository) Apply(ctx context.Context, muts ...domain.AccountMutation) error {
	if len(muts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := applyTx(ctx, tx, muts); err != nil {
		return classify(err)
	}
	return classify(tx.Commit(ctx))
}

func applyTx(ctx context.Context, tx pgx.Tx, muts []domain.AccountMutation) error {
	if len(muts) == 0 {
		return nil
	}

	// Lock in ascending id order to prevent deadlocks between two-account writes.
	ids := make([]int64, 0, len(muts))
	seen := make(map[int64]bool, len(muts))
	for _, m := range muts {
		if !seen[m.AccountID] {
			seen[m.AccountID] = true
			ids = append(ids, m.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	locked := make(map[int64]*domain.Account, len(ids))
	for _, id := range ids {
		acc, err := loadAccount(ctx, tx, id, true)
		if err != nil {
			return err
		}
		locked[id] = acc
	}

	for i := range muts {
		acc := locked[muts[i].AccountID]
		if err := muts[i].Guard.Check(acc); err != nil {
			return err
		}
		muts[i].ApplyTo(acc)
	}

	for i := range muts {
		if err := writeMutation(ctx, tx, &muts[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeMutation(ctx context.Context, tx pgx.Tx, m *domain.AccountMutation) error {
	if m.IdempotencyKey != "" {
		if err := claimIdempotency(ctx, tx, m.AccountID, m.IdempotencyKey, m.Action); err != nil {
			return err
		}
	}

	if !m.Balance.IsZero() || m.Diamonds != 0 || m.Referrals != 0 || !m.ProductionRate.IsZero() || m.UnlockedFloors > 0 {
		_, err := tx.Exec(ctx, `
			UPDATE accounts
			SET ton_balance = ton_balance + $2::numeric,
			    diamonds = diamonds + $3,
			    referrals = referrals + $4,
			    total_mining_rate = total_mining_rate + $5::numeric,
			    unlocked_floors = CASE WHEN $6::int > 0 THEN $6::int ELSE unlocked_floors END
			WHERE tg_id = $1`,
			m.AccountID, m.Balance.String(), m.Diamonds, m.Referrals, m.ProductionRate.String(), m.UnlockedFloors,
		)
		if err != nil {
			return err
		}
	}

	for floorID, ts := range m.FloorCollectedAt {
		if err := upsertFloorState(ctx, tx, m.AccountID, floorID, ts); err != nil {
			return err
		}
	}

	if m.CompleteTask != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO completed_tasks (user_id, task_id) VALUES ($1, $2)
			ON CONFLICT (user_id, task_id) DO NOTHING`,
			m.AccountID, m.CompleteTask,
		); err != nil {
			return err
		}
	}

	if t := m.Theft; t != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO theft_records (user_id, steal_id, counterparty_id, counterparty_username, amount, success, is_attacker, created_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
			m.AccountID, t.StealID, t.CounterpartyID, t.Username, t.Amount.String(), t.Success, t.Attacker, t.Timestamp,
		); err != nil {
			return err
		}
	}

	if inv := m.Invitation; inv != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO invitation_records (user_id, invited_id, username, created_at)
			VALUES ($1, $2, $3, $4)`,
			m.AccountID, inv.UserID, inv.Username, inv.Timestamp,
		); err != nil {
			return err
		}
	}

	if m.Withdrawal != nil {
		if err := insertWithdrawalTx(ctx, tx, m.Withdrawal); err != nil {
			return err
		}
	}
	if m.WithdrawalUpdate != nil {
		if err := updateWithdrawalStatusTx(ctx, tx, m.AccountID, m.WithdrawalUpdate); err != nil {
			return err
		}
	}
	return nil
}

func upsertFloorState(ctx context.Context, q querier, userID int64, floorID int, ts time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO floor_states (user_id, floor_id, last_collected_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, floor_id) DO UPDATE SET last_collected_at = EXCLUDED.last_collected_at`,
		userID, floorID, ts,
	)
	return err
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID int64, key, action string) error {
	tag, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING`,
		userID, key, action,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateRequest
	}
	return nil
}

// TheftRecords returns the most recent theft records first.
func (r *AccountRepository) TheftRecords(ctx context.Context, id int64, limit int) ([]domain.TheftRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT steal_id, counterparty_id, counterparty_username, amount::text, success, is_attacker, created_at
		FROM theft_records
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, id, clampLimit(limit))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	records := []domain.TheftRecord{}
	for rows.Next() {
		var (
			rec    domain.TheftRecord
			amount string
		)
		if err := rows.Scan(&rec.StealID, &rec.CounterpartyID, &rec.Username, &amount, &rec.Success, &rec.Attacker, &rec.Timestamp); err != nil {
			return nil, err
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, classify(rows.Err())
}

// InvitationRecords returns the most recent invitations first.
func (r *AccountRepository) InvitationRecords(ctx context.Context, id int64, limit int) ([]domain.InvitationRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT invited_id, username, created_at
		FROM invitation_records
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, id, clampLimit(limit))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	records := []domain.InvitationRecord{}
	for rows.Next() {
		var rec domain.InvitationRecord
		if err := rows.Scan(&rec.UserID, &rec.Username, &rec.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, classify(rows.Err())
}

func rankingColumn(kind domain.RankingKind) string {
	switch kind {
	case domain.RankingDiamond:
		return "diamonds"
	case domain.RankingInvitation:
		return "referrals"
	default:
		return "ton_balance"
	}
}

// Ranking returns the top accounts by the column behind kind.
func (r *AccountRepository) Ranking(ctx context.Context, kind domain.RankingKind, limit int) ([]domain.RankingEntry, error) {
	col := rankingColumn(kind)
	rows, err := r.db.Query(ctx, `
		SELECT tg_id, COALESCE(username, ''), `+col+`::text
		FROM accounts
		ORDER BY `+col+` DESC, tg_id
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, classify(err)
	}
	return scanEntries(rows)
}

// Friends lists the accounts invited by referrerID.
func (r *AccountRepository) Friends(ctx context.Context, referrerID int64) ([]domain.RankingEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tg_id, COALESCE(username, ''), ton_balance::text
		FROM accounts
		WHERE referrer_id = $1
		ORDER BY joined_at, tg_id`, referrerID)
	if err != nil {
		return nil, classify(err)
	}
	return scanEntries(rows)
}

// StealTargets lists the richest accounts other than excludeID.
func (r *AccountRepository) StealTargets(ctx context.Context, excludeID int64, limit int) ([]domain.RankingEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tg_id, COALESCE(username, ''), ton_balance::text
		FROM accounts
		WHERE tg_id <> $1
		ORDER BY ton_balance DESC, tg_id
		LIMIT $2`, excludeID, clampLimit(limit))
	if err != nil {
		return nil, classify(err)
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]domain.RankingEntry, error) {
	defer rows.Close()

	entries := []domain.RankingEntry{}
	for rows.Next() {
		var (
			e     domain.RankingEntry
			value string
		)
		if err := rows.Scan(&e.UserID, &e.Username, &value); err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, err
		}
		e.Value = v
		entries = append(entries, e)
	}
	return entries, classify(rows.Err())
}

// Stats aggregates the economy for the admin bot.
func (r *AccountRepository) Stats(ctx context.Context) (domain.Stats, error) {
	var (
		s       domain.Stats
		balance string
	)
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(ton_balance), 0)::text, COALESCE(SUM(diamonds), 0),
		       (SELECT COUNT(*) FROM withdrawals WHERE status = 'pending')
		FROM accounts`,
	).Scan(&s.Accounts, &balance, &s.TotalDiamonds, &s.PendingWithdrawals)
	if err != nil {
		return s, classify(err)
	}
	s.TotalBalance, err = decimal.NewFromString(balance)
	return s, err
}

// Ping checks the database connection.
func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
