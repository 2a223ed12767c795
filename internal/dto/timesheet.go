package dto

import (
	"time"

	"github.com/fieldtrack/practicum-api/internal/models"
)

// LogHoursRequest creates a draft timesheet entry.
type LogHoursRequest struct {
	PlacementID string              `json:"placement_id" validate:"required"`
	EntryDate   time.Time           `json:"entry_date" validate:"required"`
	Hours       float64             `json:"hours" validate:"required,gt=0,lte=24"`
	Category    models.HourCategory `json:"category" validate:"required"`
	Notes       string              `json:"notes"`
}

// UpdateEntryRequest edits a draft or rejected entry. Editing a rejected
// entry returns it to DRAFT so the next week submission picks it up.
type UpdateEntryRequest struct {
	EntryDate *time.Time           `json:"entry_date,omitempty"`
	Hours     *float64             `json:"hours,omitempty" validate:"omitempty,gt=0,lte=24"`
	Category  *models.HourCategory `json:"category,omitempty"`
	Notes     *string              `json:"notes,omitempty"`
}

// SubmitWeekRequest batches every draft entry inside the window.
type SubmitWeekRequest struct {
	PlacementID string    `json:"placement_id" validate:"required"`
	WeekStart   time.Time `json:"week_start" validate:"required"`
	WeekEnd     time.Time `json:"week_end" validate:"required"`
}

// RejectEntryRequest carries the mandatory rejection reason.
type RejectEntryRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// TimesheetQuery filters entry listings.
type TimesheetQuery struct {
	PlacementID string
	StudentID   string
	Status      string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}
