package models

import "time"

// PlacementStatus captures the lifecycle states of a field placement.
type PlacementStatus string

const (
	PlacementStatusPending           PlacementStatus = "PENDING"
	PlacementStatusApprovedChecklist PlacementStatus = "APPROVED_PENDING_CHECKLIST"
	PlacementStatusActive            PlacementStatus = "ACTIVE"
	PlacementStatusRejected          PlacementStatus = "REJECTED"
	PlacementStatusArchived          PlacementStatus = "ARCHIVED"

	// PlacementStatusComplete is a derived reporting label for ACTIVE
	// placements whose term has elapsed. It is never stored.
	PlacementStatusComplete PlacementStatus = "COMPLETE"
)

// NonTerminalPlacementStatuses are the states that count against the
// one-open-placement-per-student rule.
var NonTerminalPlacementStatuses = []PlacementStatus{
	PlacementStatusPending,
	PlacementStatusApprovedChecklist,
	PlacementStatusActive,
}

// Placement assigns one student to one site for one class term.
type Placement struct {
	ID              string          `db:"id" json:"id"`
	StudentID       string          `db:"student_id" json:"student_id"`
	SiteID          string          `db:"site_id" json:"site_id"`
	SupervisorID    *string         `db:"supervisor_id" json:"supervisor_id,omitempty"`
	ClassID         string          `db:"class_id" json:"class_id"`
	FacultyID       string          `db:"faculty_id" json:"faculty_id"`
	StartDate       time.Time       `db:"start_date" json:"start_date"`
	EndDate         time.Time       `db:"end_date" json:"end_date"`
	RequiredHours   float64         `db:"required_hours" json:"required_hours"`
	Status          PlacementStatus `db:"status" json:"status"`
	ApprovalNotes   *string         `db:"approval_notes" json:"approval_notes,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`

	// Onboarding artifact flags gating activation.
	HasCellPolicy       bool `db:"has_cell_policy" json:"has_cell_policy"`
	HasLearningContract bool `db:"has_learning_contract" json:"has_learning_contract"`
	HasChecklist        bool `db:"has_checklist" json:"has_checklist"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	RejectedAt  *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
	ActivatedAt *time.Time `db:"activated_at" json:"activated_at,omitempty"`
	ArchivedAt  *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus reports COMPLETE for active placements past their end date.
// The stored status never changes without an explicit faculty/student action.
func (p *Placement) EffectiveStatus(now time.Time) PlacementStatus {
	if p.Status == PlacementStatusActive && !now.Before(p.EndDate) {
		return PlacementStatusComplete
	}
	return p.Status
}

// IsTerminal reports whether the stored status admits no further transitions.
func (s PlacementStatus) IsTerminal() bool {
	return s == PlacementStatusRejected || s == PlacementStatusArchived
}

// ReadyForActivation reports whether every onboarding artifact is present.
func (p *Placement) ReadyForActivation() bool {
	return p.HasCellPolicy && p.HasLearningContract && p.HasChecklist
}

// PlacementFilter constrains placement listing queries.
type PlacementFilter struct {
	StudentID string
	SiteID    string
	FacultyID string
	Status    []PlacementStatus
	ClassID   string
	Limit     int
	Offset    int
}

// ActivationReadiness surfaces the artifact gate to faculty without
// triggering any transition.
type ActivationReadiness struct {
	PlacementID         string `json:"placement_id"`
	HasCellPolicy       bool   `json:"has_cell_policy"`
	HasLearningContract bool   `json:"has_learning_contract"`
	HasChecklist        bool   `json:"has_checklist"`
	Ready               bool   `json:"ready"`
}

// ArchiveResult reports an archive outcome plus whether the student still has
// another active placement, used by clients for post-archive navigation.
type ArchiveResult struct {
	Placement             *Placement `json:"placement"`
	StudentHasOtherActive bool       `json:"student_has_other_active"`
}
