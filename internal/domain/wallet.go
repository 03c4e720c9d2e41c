package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal represents an outgoing TON withdrawal request. Balance and fee
// are debited when the request is created; a rejection refunds both.
type Withdrawal struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	UserID      int64            `db:"user_id" json:"user_id"`
	Amount      decimal.Decimal  `db:"amount" json:"amount"`
	FeeDiamonds int64            `db:"fee_diamonds" json:"fee_diamonds"`
	Status      WithdrawalStatus `db:"status" json:"status"`
	AdminNotes  string           `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
}

// WithdrawalStatus represents withdrawal processing status
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)
