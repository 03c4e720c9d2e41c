package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TheftRecord - запись истории краж. У атакующего сумма положительная,
// у жертвы отрицательная; StealID общий для обеих записей.
type TheftRecord struct {
	StealID        uuid.UUID       `db:"steal_id" json:"stealId"`
	CounterpartyID int64           `db:"counterparty_id" json:"counterpartyUserId"`
	Username       string          `db:"counterparty_username" json:"username"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Success        bool            `db:"success" json:"success"`
	Attacker       bool            `db:"is_attacker" json:"isAttacker"`
	Timestamp      time.Time       `db:"created_at" json:"timestamp"`
}

// InvitationRecord - запись о приглашённом друге
type InvitationRecord struct {
	UserID    int64     `db:"invited_id" json:"userId"`
	Username  string    `db:"username" json:"username"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// HistoryDisplayLimit caps history reads; storage itself is unbounded.
const HistoryDisplayLimit = 20
