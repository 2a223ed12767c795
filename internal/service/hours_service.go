package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type hoursPlacementStore interface {
	GetByID(ctx context.Context, id string) (*models.Placement, error)
}

type hoursEntryStore interface {
	SumHoursByStatus(ctx context.Context, placementID string) (map[models.TimesheetStatus]float64, error)
}

// HoursService derives hour totals from timesheet rows. Every call recomputes
// from the current rows: the archive guard depends on this value being exact
// at decision time, so there is deliberately no cache in front of it.
type HoursService struct {
	placements hoursPlacementStore
	entries    hoursEntryStore
}

// NewHoursService constructs the service.
func NewHoursService(placements hoursPlacementStore, entries hoursEntryStore) *HoursService {
	return &HoursService{placements: placements, entries: entries}
}

// ComputeSummary returns approved, pending and remaining hour totals for one
// placement.
func (s *HoursService) ComputeSummary(ctx context.Context, placementID string) (*models.HoursSummary, error) {
	placement, err := s.placements.GetByID(ctx, placementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "placement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placement")
	}

	totals, err := s.entries.SumHoursByStatus(ctx, placementID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum hours")
	}

	summary := &models.HoursSummary{
		PlacementID:   placementID,
		RequiredHours: placement.RequiredHours,
		Approved:      roundTenth(totals[models.TimesheetStatusApproved]),
	}
	var pending float64
	for _, status := range PendingTimesheetStatuses {
		pending += totals[status]
	}
	summary.Pending = roundTenth(pending)
	summary.Remaining = roundTenth(math.Max(0, placement.RequiredHours-summary.Approved))
	return summary, nil
}

// roundTenth keeps totals at the one-decimal precision entries are stored
// with, absorbing float accumulation noise.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
