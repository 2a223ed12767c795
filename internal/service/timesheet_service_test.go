package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	"github.com/fieldtrack/practicum-api/internal/repository"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

type timesheetStoreStub struct {
	entry        *models.TimesheetEntry
	created      *models.TimesheetEntry
	submitted    []models.TimesheetEntry
	updateParams *repository.UpdateTimesheetStatusParams
	updateErr    error
	draftErr     error
}

func (s *timesheetStoreStub) Create(ctx context.Context, entry *models.TimesheetEntry) error {
	entry.ID = "ts-1"
	s.created = entry
	return nil
}

func (s *timesheetStoreStub) GetByID(ctx context.Context, id string) (*models.TimesheetEntry, error) {
	if s.entry == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.entry
	return &copied, nil
}

func (s *timesheetStoreStub) List(ctx context.Context, filter models.TimesheetFilter) ([]models.TimesheetEntry, error) {
	if s.entry == nil {
		return nil, nil
	}
	return []models.TimesheetEntry{*s.entry}, nil
}

func (s *timesheetStoreStub) UpdateDraft(ctx context.Context, entry *models.TimesheetEntry) error {
	return s.draftErr
}

func (s *timesheetStoreStub) SubmitWeek(ctx context.Context, placementID string, weekStart, weekEnd time.Time, submittedAt time.Time) ([]models.TimesheetEntry, error) {
	return s.submitted, nil
}

func (s *timesheetStoreStub) UpdateStatus(ctx context.Context, params repository.UpdateTimesheetStatusParams) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updateParams = &params
	return nil
}

func activePlacementFixture() *models.Placement {
	supID := "sup-1"
	now := time.Now().UTC()
	return &models.Placement{
		ID:           "pl-1",
		StudentID:    "stu-1",
		FacultyID:    "fac-1",
		SupervisorID: &supID,
		Status:       models.PlacementStatusActive,
		StartDate:    now.AddDate(0, -1, 0),
		EndDate:      now.AddDate(0, 3, 0),
	}
}

func approvedProfile() profileStoreStub {
	return profileStoreStub{profile: &models.SupervisorProfile{ID: "sup-1", UserID: "sup-user-1", SiteID: "site-1", Approved: true}}
}

func newTimesheetService(repo *timesheetStoreStub, placement *models.Placement, profiles profileStoreStub) *TimesheetService {
	return NewTimesheetService(repo, &placementStoreStub{placement: placement}, profiles, nil, nil, nil, nil)
}

func logHoursFixture() dto.LogHoursRequest {
	return dto.LogHoursRequest{
		PlacementID: "pl-1",
		EntryDate:   time.Now().UTC(),
		Hours:       7.5,
		Category:    models.HourCategoryDirect,
		Notes:       "intake sessions",
	}
}

func TestLogHoursCreatesDraft(t *testing.T) {
	repo := &timesheetStoreStub{}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	entry, err := svc.LogHours(context.Background(), logHoursFixture(), studentClaims("stu-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusDraft, entry.Status)
	assert.Equal(t, "stu-1", entry.StudentID)
	assert.False(t, entry.Locked)
	assert.Equal(t, "intake sessions", repo.created.Notes)
}

func TestLogHoursRejectsBadValues(t *testing.T) {
	svc := newTimesheetService(&timesheetStoreStub{}, activePlacementFixture(), approvedProfile())

	cases := []struct {
		name  string
		hours float64
	}{
		{"zero", 0},
		{"negative", -2},
		{"over 24", 24.5},
		{"two decimals", 3.25},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := logHoursFixture()
			req.Hours = tc.hours
			_, err := svc.LogHours(context.Background(), req, studentClaims("stu-1"))
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestLogHoursNeedsApprovedSupervisor(t *testing.T) {
	t.Run("no supervisor on file", func(t *testing.T) {
		placement := activePlacementFixture()
		placement.SupervisorID = nil
		svc := newTimesheetService(&timesheetStoreStub{}, placement, approvedProfile())

		_, err := svc.LogHours(context.Background(), logHoursFixture(), studentClaims("stu-1"))
		require.ErrorIs(t, err, appErrors.ErrSupervisorNotAssigned)
	})

	t.Run("supervisor still pending", func(t *testing.T) {
		profiles := profileStoreStub{profile: &models.SupervisorProfile{ID: "sup-1", Approved: false}}
		svc := newTimesheetService(&timesheetStoreStub{}, activePlacementFixture(), profiles)

		_, err := svc.LogHours(context.Background(), logHoursFixture(), studentClaims("stu-1"))
		require.ErrorIs(t, err, appErrors.ErrSupervisorNotAssigned)
	})
}

func TestLogHoursPendingPlacementReportsMissingSupervisor(t *testing.T) {
	placement := activePlacementFixture()
	placement.Status = models.PlacementStatusPending
	profiles := profileStoreStub{profile: &models.SupervisorProfile{ID: "sup-1", Approved: false}}
	svc := newTimesheetService(&timesheetStoreStub{}, placement, profiles)

	_, err := svc.LogHours(context.Background(), logHoursFixture(), studentClaims("stu-1"))
	require.ErrorIs(t, err, appErrors.ErrSupervisorNotAssigned)
}

func TestLogHoursInactivePlacement(t *testing.T) {
	placement := activePlacementFixture()
	placement.Status = models.PlacementStatusApprovedChecklist
	svc := newTimesheetService(&timesheetStoreStub{}, placement, approvedProfile())

	_, err := svc.LogHours(context.Background(), logHoursFixture(), studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestLogHoursDateOutsidePlacement(t *testing.T) {
	placement := activePlacementFixture()
	svc := newTimesheetService(&timesheetStoreStub{}, placement, approvedProfile())

	req := logHoursFixture()
	req.EntryDate = placement.EndDate.AddDate(0, 0, 1)
	_, err := svc.LogHours(context.Background(), req, studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateEntryLockedIsImmutable(t *testing.T) {
	repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
		ID: "ts-1", StudentID: "stu-1", Status: models.TimesheetStatusApproved, Locked: true,
	}}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	hours := 5.0
	_, err := svc.UpdateEntry(context.Background(), "ts-1", dto.UpdateEntryRequest{Hours: &hours}, studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestUpdateEntryRejectedReturnsToDraft(t *testing.T) {
	reason := "wrong category"
	repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
		ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
		Status: models.TimesheetStatusRejected, RejectionReason: &reason,
	}}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	hours := 4.5
	entry, err := svc.UpdateEntry(context.Background(), "ts-1", dto.UpdateEntryRequest{Hours: &hours}, studentClaims("stu-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusDraft, entry.Status)
	assert.Nil(t, entry.RejectionReason)
	assert.Equal(t, 4.5, entry.Hours)
}

func TestSubmitWeekWindowTooWide(t *testing.T) {
	svc := newTimesheetService(&timesheetStoreStub{}, activePlacementFixture(), approvedProfile())

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.SubmitWeek(context.Background(), dto.SubmitWeekRequest{
		PlacementID: "pl-1",
		WeekStart:   start,
		WeekEnd:     start.AddDate(0, 0, 8),
	}, studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitWeekRejectsWindowPastSeventhDay(t *testing.T) {
	svc := newTimesheetService(&timesheetStoreStub{}, activePlacementFixture(), approvedProfile())

	// Monday through the following Monday covers eight calendar dates with
	// inclusive bounds and must not pass as a week.
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.SubmitWeek(context.Background(), dto.SubmitWeekRequest{
		PlacementID: "pl-1",
		WeekStart:   start,
		WeekEnd:     start.Add(7 * 24 * time.Hour),
	}, studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitWeekEmptyWindowIsNoop(t *testing.T) {
	repo := &timesheetStoreStub{}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	entries, err := svc.SubmitWeek(context.Background(), dto.SubmitWeekRequest{
		PlacementID: "pl-1",
		WeekStart:   start,
		WeekEnd:     start.AddDate(0, 0, 6),
	}, studentClaims("stu-1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApproveEntrySupervisorStage(t *testing.T) {
	repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
		ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
		Status: models.TimesheetStatusPendingSupervisor,
	}}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	entry, err := svc.ApproveEntry(context.Background(), "ts-1", &models.JWTClaims{UserID: "sup-user-1", Role: models.RoleSupervisor})
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusPendingFaculty, entry.Status)
	assert.False(t, entry.Locked)
	require.NotNil(t, repo.updateParams)
	assert.True(t, repo.updateParams.SupervisorStage)
}

func TestApproveEntryFacultyStageLocks(t *testing.T) {
	repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
		ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
		Status: models.TimesheetStatusPendingFaculty,
	}}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	entry, err := svc.ApproveEntry(context.Background(), "ts-1", facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusApproved, entry.Status)
	assert.True(t, entry.Locked)
	require.NotNil(t, repo.updateParams)
	assert.True(t, repo.updateParams.Locked)
}

func TestApproveEntryFacultyCannotSkipSupervisorStage(t *testing.T) {
	repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
		ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
		Status: models.TimesheetStatusPendingSupervisor,
	}}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	_, err := svc.ApproveEntry(context.Background(), "ts-1", facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestApproveEntryWrongSupervisor(t *testing.T) {
	repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
		ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
		Status: models.TimesheetStatusPendingSupervisor,
	}}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	_, err := svc.ApproveEntry(context.Background(), "ts-1", &models.JWTClaims{UserID: "someone-else", Role: models.RoleSupervisor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApproveEntryAdminStandsInForStage(t *testing.T) {
	admin := &models.JWTClaims{UserID: "adm-1", Role: models.RoleAdmin}

	t.Run("supervisor stage", func(t *testing.T) {
		repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
			ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
			Status: models.TimesheetStatusPendingSupervisor,
		}}
		svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

		entry, err := svc.ApproveEntry(context.Background(), "ts-1", admin)
		require.NoError(t, err)
		assert.Equal(t, models.TimesheetStatusPendingFaculty, entry.Status)
		assert.True(t, repo.updateParams.SupervisorStage)
	})

	t.Run("faculty stage", func(t *testing.T) {
		repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
			ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
			Status: models.TimesheetStatusPendingFaculty,
		}}
		svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

		entry, err := svc.ApproveEntry(context.Background(), "ts-1", admin)
		require.NoError(t, err)
		assert.Equal(t, models.TimesheetStatusApproved, entry.Status)
		assert.True(t, entry.Locked)
	})

	t.Run("unresolved supervisor blocks the supervisor stage", func(t *testing.T) {
		repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
			ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
			Status: models.TimesheetStatusPendingSupervisor,
		}}
		placement := activePlacementFixture()
		placement.SupervisorID = nil
		svc := newTimesheetService(repo, placement, approvedProfile())

		_, err := svc.ApproveEntry(context.Background(), "ts-1", admin)
		require.ErrorIs(t, err, appErrors.ErrSupervisorNotAssigned)
	})
}

func TestRejectEntryRequiresReason(t *testing.T) {
	svc := newTimesheetService(&timesheetStoreStub{}, activePlacementFixture(), approvedProfile())

	_, err := svc.RejectEntry(context.Background(), "ts-1", dto.RejectEntryRequest{Reason: " "}, facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRejectEntryCarriesReason(t *testing.T) {
	repo := &timesheetStoreStub{entry: &models.TimesheetEntry{
		ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
		Status: models.TimesheetStatusPendingFaculty,
	}}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	entry, err := svc.RejectEntry(context.Background(), "ts-1", dto.RejectEntryRequest{Reason: "dates do not match the log"}, facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusRejected, entry.Status)
	require.NotNil(t, entry.RejectionReason)
	assert.Equal(t, "dates do not match the log", *entry.RejectionReason)
}

func TestApproveEntryLostRace(t *testing.T) {
	repo := &timesheetStoreStub{
		entry: &models.TimesheetEntry{
			ID: "ts-1", PlacementID: "pl-1", StudentID: "stu-1",
			Status: models.TimesheetStatusPendingFaculty,
		},
		updateErr: sql.ErrNoRows,
	}
	svc := newTimesheetService(repo, activePlacementFixture(), approvedProfile())

	_, err := svc.ApproveEntry(context.Background(), "ts-1", facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestValidateHoursOneDecimal(t *testing.T) {
	assert.NoError(t, validateHours(0.1))
	assert.NoError(t, validateHours(23.9))
	assert.NoError(t, validateHours(24))
	assert.Error(t, validateHours(24.1))
	assert.Error(t, validateHours(7.55))
	assert.Error(t, validateHours(0))
}
