package domain

import "time"

// AuditLog represents an audit log entry for economy actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryEconomy    = "economy"
	AuditCategorySocial     = "social"
	AuditCategoryWithdrawal = "withdrawal"
	AuditCategoryAdmin      = "admin"
)

// Audit actions
const (
	AuditActionRegister = "register"
	AuditActionCollect  = "collect"
	AuditActionUnlock   = "unlock_floor"
	AuditActionTask     = "complete_task"
	AuditActionLuckbag  = "create_luckbag"

	AuditActionStealSuccess = "steal_success"
	AuditActionStealFail    = "steal_fail"
	AuditActionReferral     = "referral"

	AuditActionWithdrawRequest = "withdraw_request"
	AuditActionWithdrawApprove = "withdraw_approve"
	AuditActionWithdrawReject  = "withdraw_reject"

	AuditActionAdminGrant = "admin_grant"
)
