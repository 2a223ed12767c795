package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"

	AuditActionPlacementRequest  = "PLACEMENT_REQUEST"
	AuditActionPlacementApprove  = "PLACEMENT_APPROVE"
	AuditActionPlacementReject   = "PLACEMENT_REJECT"
	AuditActionPlacementActivate = "PLACEMENT_ACTIVATE"
	AuditActionPlacementArchive  = "PLACEMENT_ARCHIVE"

	AuditActionWeekSubmit   = "TIMESHEET_WEEK_SUBMIT"
	AuditActionEntryApprove = "TIMESHEET_ENTRY_APPROVE"
	AuditActionEntryReject  = "TIMESHEET_ENTRY_REJECT"

	AuditActionSupervisorResolve = "SUPERVISOR_RESOLVE"
	AuditActionContractSend      = "CONTRACT_SEND"
	AuditActionContractSubmit    = "CONTRACT_SUBMIT"
	AuditActionContractReview    = "CONTRACT_REVIEW"
	AuditActionSiteApprove       = "SITE_APPROVE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
