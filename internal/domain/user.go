package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account - игровой аккаунт, ключ - Telegram ID
type Account struct {
	ID             int64           `db:"tg_id" json:"userId"`
	Username       string          `db:"username" json:"username"`
	Balance        decimal.Decimal `db:"ton_balance" json:"ton_balance"`
	Diamonds       int64           `db:"diamonds" json:"diamonds"`
	UnlockedFloors int             `db:"unlocked_floors" json:"unlocked_floors"`
	ProductionRate decimal.Decimal `db:"total_mining_rate" json:"total_mining_rate"`
	Referrals      int64           `db:"referrals" json:"referrals"`
	ReferrerID     *int64          `db:"referrer_id" json:"referrer,omitempty"`
	JoinedAt       time.Time       `db:"joined_at" json:"joined"`

	// floor id -> last_collected
	FloorCollectedAt map[int]time.Time `json:"floor_data"`
	CompletedTasks   map[string]bool   `json:"completed_tasks"`
}

// NewAccount returns an account with floor 1 unlocked and its clock started at now.
func NewAccount(id int64, username string, referrerID *int64, diamonds int64, floorOneRate decimal.Decimal, now time.Time) *Account {
	return &Account{
		ID:               id,
		Username:         username,
		Balance:          decimal.Zero,
		Diamonds:         diamonds,
		UnlockedFloors:   1,
		ProductionRate:   floorOneRate,
		ReferrerID:       referrerID,
		JoinedAt:         now,
		FloorCollectedAt: map[int]time.Time{1: now},
		CompletedTasks:   map[string]bool{},
	}
}

// IsUnlocked reports whether floorID has been unlocked.
func (a *Account) IsUnlocked(floorID int) bool {
	return floorID >= 1 && floorID <= a.UnlockedFloors
}

// Clone returns a deep copy so stores can hand out accounts without sharing maps.
func (a *Account) Clone() *Account {
	c := *a
	if a.ReferrerID != nil {
		ref := *a.ReferrerID
		c.ReferrerID = &ref
	}
	c.FloorCollectedAt = make(map[int]time.Time, len(a.FloorCollectedAt))
	for k, v := range a.FloorCollectedAt {
		c.FloorCollectedAt[k] = v
	}
	c.CompletedTasks = make(map[string]bool, len(a.CompletedTasks))
	for k, v := range a.CompletedTasks {
		c.CompletedTasks[k] = v
	}
	return &c
}

// RankingEntry - строка рейтинга или списка друзей
type RankingEntry struct {
	UserID   int64           `json:"userId"`
	Username string          `json:"username"`
	Value    decimal.Decimal `json:"value"`
}

// RankingKind - по какому полю строится рейтинг
type RankingKind string

const (
	RankingLevel      RankingKind = "level"
	RankingDiamond    RankingKind = "diamond"
	RankingInvitation RankingKind = "invitation"
	RankingToken      RankingKind = "token"
)

// ParseRankingKind falls back to balance ordering for unknown kinds.
func ParseRankingKind(s string) RankingKind {
	switch RankingKind(s) {
	case RankingDiamond, RankingInvitation, RankingToken:
		return RankingKind(s)
	default:
		return RankingLevel
	}
}

// Stats - сводка по экономике для админов
type Stats struct {
	Accounts           int64           `json:"accounts"`
	TotalBalance       decimal.Decimal `json:"total_balance"`
	TotalDiamonds      int64           `json:"total_diamonds"`
	PendingWithdrawals int64           `json:"pending_withdrawals"`
}
