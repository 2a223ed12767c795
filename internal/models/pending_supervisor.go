package models

import "time"

// PendingSupervisorStatus tracks the faculty review of a provisional supervisor.
type PendingSupervisorStatus string

const (
	PendingSupervisorStatusPending  PendingSupervisorStatus = "PENDING"
	PendingSupervisorStatusApproved PendingSupervisorStatus = "APPROVED"
	PendingSupervisorStatusRejected PendingSupervisorStatus = "REJECTED"
)

// PendingSupervisor is a provisional supervisor named on a placement request
// before the person exists as an approved user. A PENDING record cannot
// approve timesheet entries.
type PendingSupervisor struct {
	ID              string                  `db:"id" json:"id"`
	SiteID          string                  `db:"site_id" json:"site_id"`
	PlacementID     string                  `db:"placement_id" json:"placement_id"`
	FullName        string                  `db:"full_name" json:"full_name"`
	Email           string                  `db:"email" json:"email"`
	Credentials     string                  `db:"credentials" json:"credentials"`
	Status          PendingSupervisorStatus `db:"status" json:"status"`
	RejectionReason *string                 `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ResolvedBy      *string                 `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time              `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
}

// SupervisorDecision is the faculty verdict on a pending supervisor.
type SupervisorDecision string

const (
	SupervisorDecisionApprove SupervisorDecision = "APPROVE"
	SupervisorDecisionReject  SupervisorDecision = "REJECT"
)
