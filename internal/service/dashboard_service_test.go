package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type dashboardPlacementStub struct {
	counts     map[models.PlacementStatus]int
	placements []models.Placement
	lastFilter models.PlacementFilter
}

func (s *dashboardPlacementStub) CountByStatus(ctx context.Context) (map[models.PlacementStatus]int, error) {
	return s.counts, nil
}

func (s *dashboardPlacementStub) List(ctx context.Context, filter models.PlacementFilter) ([]models.Placement, error) {
	s.lastFilter = filter
	return s.placements, nil
}

type dashboardTimesheetStub struct {
	counts        map[models.TimesheetStatus]int
	approvedHours float64
}

func (s dashboardTimesheetStub) CountByStatus(ctx context.Context) (map[models.TimesheetStatus]int, error) {
	return s.counts, nil
}

func (s dashboardTimesheetStub) SumApprovedHours(ctx context.Context) (float64, error) {
	return s.approvedHours, nil
}

type dashboardSiteStub struct {
	active   int
	inactive int
}

func (s dashboardSiteStub) CountByActive(ctx context.Context) (int, int, error) {
	return s.active, s.inactive, nil
}

type dashboardContractStub struct {
	counts map[models.ContractStatus]int
}

func (s dashboardContractStub) CountByStatus(ctx context.Context) (map[models.ContractStatus]int, error) {
	return s.counts, nil
}

// fakeCache is an in-memory DashboardCache that serializes values the same
// way the Redis-backed cache does.
type fakeCache struct {
	values  map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	c.values = map[string][]byte{}
	return nil
}

func newDashboardFixture(cache DashboardCache) (*DashboardService, *dashboardPlacementStub) {
	placements := &dashboardPlacementStub{
		counts: map[models.PlacementStatus]int{
			models.PlacementStatusPending:           3,
			models.PlacementStatusApprovedChecklist: 2,
			models.PlacementStatusActive:            7,
			models.PlacementStatusArchived:          12,
		},
	}
	svc := NewDashboardService(
		placements,
		dashboardTimesheetStub{
			counts: map[models.TimesheetStatus]int{
				models.TimesheetStatusPendingSupervisor: 4,
				models.TimesheetStatusPendingFaculty:    6,
			},
			approvedHours: 412.5,
		},
		dashboardSiteStub{active: 9, inactive: 2},
		dashboardContractStub{
			counts: map[models.ContractStatus]int{
				models.ContractStatusSent:      1,
				models.ContractStatusSubmitted: 5,
			},
		},
		hoursProviderStub{summary: &models.HoursSummary{Approved: 40, Pending: 8}},
		cache,
		time.Minute,
		nil,
	)
	return svc, placements
}

func TestProgramDashboardAggregates(t *testing.T) {
	svc, _ := newDashboardFixture(nil)

	resp, cached, err := svc.ProgramDashboard(context.Background(), facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, 3, resp.Placements.Pending)
	assert.Equal(t, 2, resp.Placements.PendingChecklist)
	assert.Equal(t, 7, resp.Placements.Active)
	assert.Equal(t, 12, resp.Placements.Archived)
	assert.Equal(t, 4, resp.Timesheets.AwaitingSupervisor)
	assert.Equal(t, 6, resp.Timesheets.AwaitingFaculty)
	assert.Equal(t, 412.5, resp.Timesheets.ApprovedHours)
	assert.Equal(t, 9, resp.Sites.Active)
	assert.Equal(t, 1, resp.Sites.AwaitingContract)
	assert.Equal(t, 5, resp.Sites.ContractsToReview)
}

func TestProgramDashboardServedFromCache(t *testing.T) {
	cache := newFakeCache()
	svc, placements := newDashboardFixture(cache)

	first, cached, err := svc.ProgramDashboard(context.Background(), facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.False(t, cached)

	// Counts change underneath; the cached payload must win until invalidated.
	placements.counts[models.PlacementStatusPending] = 99

	second, cached, err := svc.ProgramDashboard(context.Background(), facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.Placements.Pending, second.Placements.Pending)

	svc.Invalidate(context.Background())
	assert.Contains(t, cache.deleted, "dashboard:*")

	third, cached, err := svc.ProgramDashboard(context.Background(), facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 99, third.Placements.Pending)
}

func TestProgramDashboardRequiresReviewer(t *testing.T) {
	svc, _ := newDashboardFixture(nil)

	_, _, err := svc.ProgramDashboard(context.Background(), studentClaims("stu-1"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestStudentProgressScopedToFaculty(t *testing.T) {
	svc, placements := newDashboardFixture(nil)
	placements.placements = []models.Placement{
		{
			ID:            "pl-1",
			StudentID:     "stu-1",
			SiteID:        "site-1",
			Status:        models.PlacementStatusActive,
			RequiredHours: 120,
			StartDate:     time.Now().Add(-24 * time.Hour),
			EndDate:       time.Now().Add(24 * time.Hour),
		},
	}

	items, cached, err := svc.StudentProgress(context.Background(), facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "fac-1", placements.lastFilter.FacultyID)

	require.Len(t, items, 1)
	assert.Equal(t, "pl-1", items[0].PlacementID)
	assert.Equal(t, "stu-1", items[0].StudentID)
	assert.Equal(t, float64(120), items[0].RequiredHours)
	assert.Equal(t, float64(40), items[0].ApprovedHours)
	assert.Equal(t, float64(8), items[0].PendingHours)
}

func TestStudentProgressAdminSeesAll(t *testing.T) {
	svc, placements := newDashboardFixture(nil)

	_, _, err := svc.StudentProgress(context.Background(), &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, placements.lastFilter.FacultyID)
}

func TestStudentProgressCachedPerActor(t *testing.T) {
	cache := newFakeCache()
	svc, placements := newDashboardFixture(cache)
	placements.placements = []models.Placement{{
		ID:            "pl-1",
		StudentID:     "stu-1",
		SiteID:        "site-1",
		Status:        models.PlacementStatusActive,
		RequiredHours: 120,
		StartDate:     time.Now().Add(-24 * time.Hour),
		EndDate:       time.Now().Add(24 * time.Hour),
	}}

	_, cached, err := svc.StudentProgress(context.Background(), facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.False(t, cached)

	_, cached, err = svc.StudentProgress(context.Background(), facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.True(t, cached)

	// A different reviewer has their own cache slot.
	_, cached, err = svc.StudentProgress(context.Background(), facultyClaims("fac-2"))
	require.NoError(t, err)
	assert.False(t, cached)
}
