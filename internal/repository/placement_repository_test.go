package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrack/practicum-api/internal/models"
)

func placementRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "site_id", "supervisor_id", "class_id", "faculty_id",
		"start_date", "end_date", "required_hours", "status", "approval_notes", "rejection_reason",
		"has_cell_policy", "has_learning_contract", "has_checklist",
		"created_at", "approved_at", "rejected_at", "activated_at", "archived_at", "updated_at",
	}).AddRow(
		"pl-1", "stu-1", "site-1", nil, "class-1", "fac-1",
		now, now.Add(90*24*time.Hour), 120.0, string(models.PlacementStatusPending), nil, nil,
		false, false, false,
		now, nil, nil, nil, nil, now,
	)
}

func TestCreateRequestOpensTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM placements WHERE student_id = $1 AND status IN")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO placements").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO pending_supervisors").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	placement := &models.Placement{
		StudentID:     "stu-1",
		SiteID:        "site-1",
		ClassID:       "class-1",
		FacultyID:     "fac-1",
		StartDate:     time.Now(),
		EndDate:       time.Now().Add(90 * 24 * time.Hour),
		RequiredHours: 120,
	}
	pending := &models.PendingSupervisor{
		SiteID:   "site-1",
		FullName: "New Supervisor",
		Email:    "sup@example.com",
	}

	err := repo.CreateRequest(context.Background(), placement, pending)
	require.NoError(t, err)
	assert.NotEmpty(t, placement.ID)
	assert.Equal(t, models.PlacementStatusPending, placement.Status)
	assert.Equal(t, placement.ID, pending.PlacementID)
	assert.Equal(t, models.PendingSupervisorStatusPending, pending.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestRejectsSecondOpenPlacement(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM placements WHERE student_id = $1 AND status IN")).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateRequest(context.Background(), &models.Placement{StudentID: "stu-1"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateOpenPlacement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM placements WHERE id = \\$1").
		WithArgs("pl-1").
		WillReturnRows(placementRow(time.Now()))

	placement, err := repo.GetByID(context.Background(), "pl-1")
	require.NoError(t, err)
	assert.Equal(t, "pl-1", placement.ID)
	assert.Equal(t, models.PlacementStatusPending, placement.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM placements WHERE student_id = \$1 AND status IN \(\$2,\$3\) ORDER BY created_at DESC LIMIT 50 OFFSET 0`).
		WithArgs("stu-1", models.PlacementStatusPending, models.PlacementStatusActive).
		WillReturnRows(placementRow(time.Now()))

	placements, err := repo.List(context.Background(), models.PlacementFilter{
		StudentID: "stu-1",
		Status:    []models.PlacementStatus{models.PlacementStatusPending, models.PlacementStatusActive},
	})
	require.NoError(t, err)
	assert.Len(t, placements, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementUpdateStatusGuardsExpected(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectExec("UPDATE placements SET status = (.+) WHERE id = (.+) AND status = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now()
	err := repo.UpdateStatus(context.Background(), UpdatePlacementStatusParams{
		ID:             "pl-1",
		ExpectedStatus: models.PlacementStatusPending,
		NewStatus:      models.PlacementStatusApprovedChecklist,
		ApprovedAt:     &now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementUpdateStatusStaleReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectExec("UPDATE placements SET status = (.+) WHERE id = (.+) AND status = (.+)").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), UpdatePlacementStatusParams{
		ID:             "pl-1",
		ExpectedStatus: models.PlacementStatusPending,
		NewStatus:      models.PlacementStatusRejected,
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActiveByStudentExcludesPlacement(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM placements WHERE student_id = $1 AND status = 'ACTIVE' AND id <> $2")).
		WithArgs("stu-1", "pl-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveByStudent(context.Background(), "stu-1", "pl-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPlacementRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(string(models.PlacementStatusPending), 3).
		AddRow(string(models.PlacementStatusActive), 5)
	mock.ExpectQuery("SELECT status, COUNT(.+) FROM placements GROUP BY status").WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.PlacementStatusPending])
	assert.Equal(t, 5, counts[models.PlacementStatusActive])
	assert.NoError(t, mock.ExpectationsWereMet())
}
