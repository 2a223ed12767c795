package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrack/practicum-api/internal/models"
)

func timesheetRows(now time.Time, statuses ...models.TimesheetStatus) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "placement_id", "student_id", "entry_date", "hours", "category", "notes", "status", "locked",
		"submitted_at", "supervisor_approved_at", "supervisor_approved_by",
		"faculty_approved_at", "faculty_approved_by", "rejection_reason", "created_at", "updated_at",
	})
	for i, status := range statuses {
		rows.AddRow(
			"ts-"+string(rune('1'+i)), "pl-1", "stu-1", now, 4.0, string(models.HourCategoryDirect), "", string(status), false,
			nil, nil, nil, nil, nil, nil, now, now,
		)
	}
	return rows
}

func TestCreateEntryDefaultsToDraft(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	mock.ExpectExec("INSERT INTO timesheet_entries").WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.TimesheetEntry{
		PlacementID: "pl-1",
		StudentID:   "stu-1",
		EntryDate:   time.Now(),
		Hours:       4,
		Category:    models.HourCategoryDirect,
	}
	err := repo.Create(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.TimesheetStatusDraft, entry.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimesheetListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	from := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(6 * 24 * time.Hour)
	mock.ExpectQuery(`SELECT (.+) FROM timesheet_entries WHERE placement_id = \$1 AND status IN \(\$2\) AND entry_date >= \$3 AND entry_date <= \$4 ORDER BY entry_date ASC, created_at ASC LIMIT 200 OFFSET 0`).
		WithArgs("pl-1", models.TimesheetStatusDraft, from, to).
		WillReturnRows(timesheetRows(from, models.TimesheetStatusDraft))

	entries, err := repo.List(context.Background(), models.TimesheetFilter{
		PlacementID: "pl-1",
		Status:      []models.TimesheetStatus{models.TimesheetStatusDraft},
		From:        &from,
		To:          &to,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDraftResetsRejection(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	mock.ExpectExec("UPDATE timesheet_entries SET entry_date = (.+) WHERE id = (.+) AND locked = FALSE AND status IN").
		WillReturnResult(sqlmock.NewResult(0, 1))

	reason := "short day"
	entry := &models.TimesheetEntry{
		ID:              "ts-1",
		EntryDate:       time.Now(),
		Hours:           6,
		Category:        models.HourCategoryDirect,
		Status:          models.TimesheetStatusRejected,
		RejectionReason: &reason,
	}
	err := repo.UpdateDraft(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, models.TimesheetStatusDraft, entry.Status)
	assert.Nil(t, entry.RejectionReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDraftLockedRowReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	mock.ExpectExec("UPDATE timesheet_entries SET entry_date = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	entry := &models.TimesheetEntry{ID: "ts-1", EntryDate: time.Now(), Hours: 6, Category: models.HourCategoryDirect}
	err := repo.UpdateDraft(context.Background(), entry)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWeekReturnsAffectedEntries(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	weekStart := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.Add(6 * 24 * time.Hour)
	submittedAt := weekEnd.Add(12 * time.Hour)

	mock.ExpectQuery(`UPDATE timesheet_entries SET status = 'PENDING_SUPERVISOR', (.+) WHERE placement_id = \$1 AND status = 'DRAFT' AND entry_date >= \$2 AND entry_date <= \$3 RETURNING`).
		WithArgs("pl-1", weekStart, weekEnd, submittedAt.UTC()).
		WillReturnRows(timesheetRows(weekStart, models.TimesheetStatusPendingSupervisor, models.TimesheetStatusPendingSupervisor))

	entries, err := repo.SubmitWeek(context.Background(), "pl-1", weekStart, weekEnd, submittedAt)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitWeekNoDraftsIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	weekStart := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`UPDATE timesheet_entries SET status = 'PENDING_SUPERVISOR'`).
		WillReturnRows(timesheetRows(weekStart))

	entries, err := repo.SubmitWeek(context.Background(), "pl-1", weekStart, weekStart.Add(6*24*time.Hour), weekStart)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimesheetUpdateStatusStampsSupervisorStage(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	mock.ExpectExec("UPDATE timesheet_entries SET status = (.+), supervisor_approved_at = (.+), supervisor_approved_by = (.+) WHERE id = (.+) AND status = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), UpdateTimesheetStatusParams{
		ID:              "ts-1",
		ExpectedStatus:  models.TimesheetStatusPendingSupervisor,
		NewStatus:       models.TimesheetStatusPendingFaculty,
		ApproverID:      "sup-1",
		ApprovedAt:      time.Now(),
		SupervisorStage: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimesheetUpdateStatusRejectionWritesReason(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	mock.ExpectExec("UPDATE timesheet_entries SET status = (.+), rejection_reason = (.+) WHERE id = (.+) AND status = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	reason := "hours do not match the site log"
	err := repo.UpdateStatus(context.Background(), UpdateTimesheetStatusParams{
		ID:              "ts-1",
		ExpectedStatus:  models.TimesheetStatusPendingFaculty,
		NewStatus:       models.TimesheetStatusRejected,
		ApproverID:      "fac-1",
		ApprovedAt:      time.Now(),
		RejectionReason: &reason,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimesheetUpdateStatusStaleReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	mock.ExpectExec("UPDATE timesheet_entries SET status = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), UpdateTimesheetStatusParams{
		ID:             "ts-1",
		ExpectedStatus: models.TimesheetStatusPendingSupervisor,
		NewStatus:      models.TimesheetStatusPendingFaculty,
		ApprovedAt:     time.Now(),
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumHoursByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimesheetRepository(db)

	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow(string(models.TimesheetStatusApproved), 80.5).
		AddRow(string(models.TimesheetStatusPendingFaculty), 10.5)
	mock.ExpectQuery("SELECT status, COALESCE\\(SUM\\(hours\\), 0\\) AS total FROM timesheet_entries WHERE placement_id = \\$1 GROUP BY status").
		WithArgs("pl-1").
		WillReturnRows(rows)

	totals, err := repo.SumHoursByStatus(context.Background(), "pl-1")
	require.NoError(t, err)
	assert.Equal(t, 80.5, totals[models.TimesheetStatusApproved])
	assert.Equal(t, 10.5, totals[models.TimesheetStatusPendingFaculty])
	assert.NoError(t, mock.ExpectationsWereMet())
}
