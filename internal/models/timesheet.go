package models

import "time"

// TimesheetStatus captures the two-stage approval chain for logged hours.
type TimesheetStatus string

const (
	TimesheetStatusDraft             TimesheetStatus = "DRAFT"
	TimesheetStatusSubmitted         TimesheetStatus = "SUBMITTED"
	TimesheetStatusPendingSupervisor TimesheetStatus = "PENDING_SUPERVISOR"
	TimesheetStatusPendingFaculty    TimesheetStatus = "PENDING_FACULTY"
	TimesheetStatusApproved          TimesheetStatus = "APPROVED"
	TimesheetStatusRejected          TimesheetStatus = "REJECTED"
)

// HourCategory classifies logged field hours.
type HourCategory string

const (
	HourCategoryDirect   HourCategory = "DIRECT"
	HourCategoryIndirect HourCategory = "INDIRECT"
	HourCategoryTraining HourCategory = "TRAINING"
	HourCategoryAdmin    HourCategory = "ADMIN"
)

// ValidHourCategory reports whether the category is one of the closed set.
func ValidHourCategory(c HourCategory) bool {
	switch c {
	case HourCategoryDirect, HourCategoryIndirect, HourCategoryTraining, HourCategoryAdmin:
		return true
	}
	return false
}

// TimesheetEntry is one day's logged hours in one category against a placement.
// Multiple entries may share a date as long as categories differ; totals are
// always summed over rows, never denormalised.
type TimesheetEntry struct {
	ID          string          `db:"id" json:"id"`
	PlacementID string          `db:"placement_id" json:"placement_id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	EntryDate   time.Time       `db:"entry_date" json:"entry_date"`
	Hours       float64         `db:"hours" json:"hours"`
	Category    HourCategory    `db:"category" json:"category"`
	Notes       string          `db:"notes" json:"notes"`
	Status      TimesheetStatus `db:"status" json:"status"`
	Locked      bool            `db:"locked" json:"locked"`

	SubmittedAt          *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	SupervisorApprovedAt *time.Time `db:"supervisor_approved_at" json:"supervisor_approved_at,omitempty"`
	SupervisorApprovedBy *string    `db:"supervisor_approved_by" json:"supervisor_approved_by,omitempty"`
	FacultyApprovedAt    *time.Time `db:"faculty_approved_at" json:"faculty_approved_at,omitempty"`
	FacultyApprovedBy    *string    `db:"faculty_approved_by" json:"faculty_approved_by,omitempty"`
	RejectionReason      *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Editable reports whether the student may still modify the entry.
func (e *TimesheetEntry) Editable() bool {
	return !e.Locked && (e.Status == TimesheetStatusDraft || e.Status == TimesheetStatusRejected)
}

// TimesheetFilter constrains entry listing queries.
type TimesheetFilter struct {
	PlacementID string
	StudentID   string
	Status      []TimesheetStatus
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// HoursSummary is the aggregate view over a placement's entries.
type HoursSummary struct {
	PlacementID   string  `json:"placement_id"`
	RequiredHours float64 `json:"required_hours"`
	Approved      float64 `json:"approved"`
	Pending       float64 `json:"pending"`
	Remaining     float64 `json:"remaining"`
}
