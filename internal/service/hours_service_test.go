package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type hoursEntryStoreStub struct {
	totals map[models.TimesheetStatus]float64
}

func (s hoursEntryStoreStub) SumHoursByStatus(ctx context.Context, placementID string) (map[models.TimesheetStatus]float64, error) {
	return s.totals, nil
}

func TestComputeSummary(t *testing.T) {
	placements := &placementStoreStub{placement: &models.Placement{ID: "pl-1", RequiredHours: 120}}
	svc := NewHoursService(placements, hoursEntryStoreStub{totals: map[models.TimesheetStatus]float64{
		models.TimesheetStatusApproved:          80.5,
		models.TimesheetStatusPendingSupervisor: 6,
		models.TimesheetStatusPendingFaculty:    4.5,
		models.TimesheetStatusDraft:             3,
		models.TimesheetStatusRejected:          2,
	}})

	summary, err := svc.ComputeSummary(context.Background(), "pl-1")
	require.NoError(t, err)
	assert.Equal(t, 80.5, summary.Approved)
	assert.Equal(t, 10.5, summary.Pending)
	assert.Equal(t, 39.5, summary.Remaining)
	assert.Equal(t, 120.0, summary.RequiredHours)
}

func TestComputeSummaryRemainingNeverNegative(t *testing.T) {
	placements := &placementStoreStub{placement: &models.Placement{ID: "pl-1", RequiredHours: 100}}
	svc := NewHoursService(placements, hoursEntryStoreStub{totals: map[models.TimesheetStatus]float64{
		models.TimesheetStatusApproved: 112.4,
	}})

	summary, err := svc.ComputeSummary(context.Background(), "pl-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.Remaining)
}

func TestComputeSummaryAbsorbsFloatNoise(t *testing.T) {
	placements := &placementStoreStub{placement: &models.Placement{ID: "pl-1", RequiredHours: 10}}
	svc := NewHoursService(placements, hoursEntryStoreStub{totals: map[models.TimesheetStatus]float64{
		models.TimesheetStatusApproved: 0.1 + 0.2 + 0.3,
	}})

	summary, err := svc.ComputeSummary(context.Background(), "pl-1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, summary.Approved)
}

func TestComputeSummaryPlacementNotFound(t *testing.T) {
	svc := NewHoursService(&placementStoreStub{}, hoursEntryStoreStub{})

	_, err := svc.ComputeSummary(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
