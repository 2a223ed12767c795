package dto

import (
	"time"

	"github.com/fieldtrack/practicum-api/internal/models"
)

// SupervisorSpec names either an existing approved supervisor or the details
// needed to provision a new one. Exactly one of the two forms must be set.
type SupervisorSpec struct {
	SupervisorID string `json:"supervisor_id,omitempty"`

	NewName        string `json:"new_name,omitempty"`
	NewEmail       string `json:"new_email,omitempty" validate:"omitempty,email"`
	NewCredentials string `json:"new_credentials,omitempty"`
}

// IsNew reports whether the spec describes a not-yet-approved supervisor.
func (s SupervisorSpec) IsNew() bool {
	return s.SupervisorID == "" && s.NewName != "" && s.NewEmail != ""
}

// RequestPlacementRequest is the student-side placement request payload.
type RequestPlacementRequest struct {
	SiteID        string         `json:"site_id" validate:"required"`
	ClassID       string         `json:"class_id" validate:"required"`
	Supervisor    SupervisorSpec `json:"supervisor"`
	StartDate     time.Time      `json:"start_date" validate:"required"`
	EndDate       time.Time      `json:"end_date" validate:"required"`
	RequiredHours *float64       `json:"required_hours,omitempty" validate:"omitempty,gt=0"`
}

// ApprovePlacementRequest carries faculty approval notes.
type ApprovePlacementRequest struct {
	Notes string `json:"notes"`
}

// RejectPlacementRequest carries the mandatory rejection reason.
type RejectPlacementRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ArtifactFlagsRequest updates the onboarding artifact completion flags.
type ArtifactFlagsRequest struct {
	CellPolicy       *bool `json:"cell_policy,omitempty"`
	LearningContract *bool `json:"learning_contract,omitempty"`
	Checklist        *bool `json:"checklist,omitempty"`
}

// PlacementQuery filters placement listings.
type PlacementQuery struct {
	StudentID string
	SiteID    string
	Status    []models.PlacementStatus
	ClassID   string
	Limit     int
	Offset    int
}
