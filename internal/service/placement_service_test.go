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

type placementStoreStub struct {
	placement       *models.Placement
	getErr          error
	created         *models.Placement
	createdPending  *models.PendingSupervisor
	createErr       error
	updateParams    *repository.UpdatePlacementStatusParams
	updateErr       error
	activeByStudent int
}

func (s *placementStoreStub) CreateRequest(ctx context.Context, placement *models.Placement, pending *models.PendingSupervisor) error {
	if s.createErr != nil {
		return s.createErr
	}
	placement.ID = "pl-1"
	s.created = placement
	s.createdPending = pending
	return nil
}

func (s *placementStoreStub) GetByID(ctx context.Context, id string) (*models.Placement, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.placement == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.placement
	return &copied, nil
}

func (s *placementStoreStub) List(ctx context.Context, filter models.PlacementFilter) ([]models.Placement, error) {
	if s.placement == nil {
		return nil, nil
	}
	return []models.Placement{*s.placement}, nil
}

func (s *placementStoreStub) UpdateStatus(ctx context.Context, params repository.UpdatePlacementStatusParams) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updateParams = &params
	return nil
}

func (s *placementStoreStub) SetArtifactFlags(ctx context.Context, id string, cellPolicy, learningContract, checklist *bool) error {
	return nil
}

func (s *placementStoreStub) CountActiveByStudent(ctx context.Context, studentID, excludeID string) (int, error) {
	return s.activeByStudent, nil
}

type siteStoreStub struct {
	site *models.Site
	err  error
}

func (s siteStoreStub) GetByID(ctx context.Context, id string) (*models.Site, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.site == nil {
		return nil, sql.ErrNoRows
	}
	return s.site, nil
}

type classStoreStub struct {
	class *models.FieldClass
}

func (s classStoreStub) GetByID(ctx context.Context, id string) (*models.FieldClass, error) {
	if s.class == nil {
		return nil, sql.ErrNoRows
	}
	return s.class, nil
}

type profileStoreStub struct {
	profile *models.SupervisorProfile
}

func (s profileStoreStub) GetProfileByID(ctx context.Context, id string) (*models.SupervisorProfile, error) {
	if s.profile == nil {
		return nil, sql.ErrNoRows
	}
	return s.profile, nil
}

type hoursProviderStub struct {
	summary *models.HoursSummary
	err     error
}

func (s hoursProviderStub) ComputeSummary(ctx context.Context, placementID string) (*models.HoursSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

type auditSinkStub struct {
	logs []*models.AuditLog
}

func (s *auditSinkStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

func facultyClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleFaculty}
}

func placementRequestFixture() dto.RequestPlacementRequest {
	start := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	return dto.RequestPlacementRequest{
		SiteID:    "site-1",
		ClassID:   "class-1",
		StartDate: start,
		EndDate:   start.AddDate(0, 4, 0),
		Supervisor: dto.SupervisorSpec{
			NewName:  "Dana Ortiz",
			NewEmail: "dortiz@agency.org",
		},
	}
}

func newPlacementService(repo *placementStoreStub, sites siteStoreStub, classes classStoreStub, profiles profileStoreStub, hours hoursProviderStub, audit *auditSinkStub) *PlacementService {
	var sink auditLogger
	if audit != nil {
		sink = audit
	}
	return NewPlacementService(repo, sites, classes, profiles, hours, sink, nil, nil, nil)
}

func TestPlacementRequestProvisionsPendingSupervisor(t *testing.T) {
	repo := &placementStoreStub{}
	audit := &auditSinkStub{}
	svc := newPlacementService(repo,
		siteStoreStub{site: &models.Site{ID: "site-1", Active: true}},
		classStoreStub{class: &models.FieldClass{ID: "class-1", RequiredHours: 120, FacultyID: "fac-1"}},
		profileStoreStub{}, hoursProviderStub{}, audit)

	placement, err := svc.Request(context.Background(), placementRequestFixture(), studentClaims("stu-1"))
	require.NoError(t, err)
	assert.Equal(t, models.PlacementStatusPending, placement.Status)
	assert.Equal(t, "stu-1", placement.StudentID)
	assert.Equal(t, "fac-1", placement.FacultyID)
	assert.Equal(t, 120.0, placement.RequiredHours)
	assert.Nil(t, placement.SupervisorID)

	require.NotNil(t, repo.createdPending)
	assert.Equal(t, "dortiz@agency.org", repo.createdPending.Email)
	assert.Equal(t, models.PendingSupervisorStatusPending, repo.createdPending.Status)
	assert.Len(t, audit.logs, 1)
}

func TestPlacementRequestExistingSupervisorMustMatchSite(t *testing.T) {
	repo := &placementStoreStub{}
	svc := newPlacementService(repo,
		siteStoreStub{site: &models.Site{ID: "site-1", Active: true}},
		classStoreStub{class: &models.FieldClass{ID: "class-1", RequiredHours: 120, FacultyID: "fac-1"}},
		profileStoreStub{profile: &models.SupervisorProfile{ID: "sup-1", SiteID: "other-site", Approved: true}},
		hoursProviderStub{}, nil)

	req := placementRequestFixture()
	req.Supervisor = dto.SupervisorSpec{SupervisorID: "sup-1"}

	_, err := svc.Request(context.Background(), req, studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPlacementRequestInactiveSite(t *testing.T) {
	svc := newPlacementService(&placementStoreStub{},
		siteStoreStub{site: &models.Site{ID: "site-1", Active: false}},
		classStoreStub{class: &models.FieldClass{ID: "class-1", RequiredHours: 120}},
		profileStoreStub{}, hoursProviderStub{}, nil)

	_, err := svc.Request(context.Background(), placementRequestFixture(), studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestPlacementRequestDuplicateOpenPlacement(t *testing.T) {
	repo := &placementStoreStub{createErr: repository.ErrDuplicateOpenPlacement}
	svc := newPlacementService(repo,
		siteStoreStub{site: &models.Site{ID: "site-1", Active: true}},
		classStoreStub{class: &models.FieldClass{ID: "class-1", RequiredHours: 120}},
		profileStoreStub{}, hoursProviderStub{}, nil)

	_, err := svc.Request(context.Background(), placementRequestFixture(), studentClaims("stu-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPlacementRequestNonStudentForbidden(t *testing.T) {
	svc := newPlacementService(&placementStoreStub{}, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, nil)

	_, err := svc.Request(context.Background(), placementRequestFixture(), facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPlacementApproveByLinkedFaculty(t *testing.T) {
	repo := &placementStoreStub{placement: &models.Placement{ID: "pl-1", FacultyID: "fac-1", Status: models.PlacementStatusPending}}
	svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, &auditSinkStub{})

	placement, err := svc.Approve(context.Background(), "pl-1", dto.ApprovePlacementRequest{Notes: "looks good"}, facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.Equal(t, models.PlacementStatusApprovedChecklist, placement.Status)
	require.NotNil(t, repo.updateParams)
	assert.Equal(t, models.PlacementStatusPending, repo.updateParams.ExpectedStatus)
	assert.NotNil(t, placement.ApprovedAt)
}

type invalidatorStub struct {
	calls int
}

func (s *invalidatorStub) Invalidate(ctx context.Context) { s.calls++ }

func TestPlacementTransitionsDropDashboardCache(t *testing.T) {
	repo := &placementStoreStub{placement: &models.Placement{ID: "pl-1", FacultyID: "fac-1", Status: models.PlacementStatusPending}}
	dashboards := &invalidatorStub{}
	svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, nil).
		WithDashboards(dashboards)

	_, err := svc.Approve(context.Background(), "pl-1", dto.ApprovePlacementRequest{}, facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, dashboards.calls)

	// A lost race must not flush the cache: nothing changed.
	repo.updateErr = sql.ErrNoRows
	_, err = svc.Approve(context.Background(), "pl-1", dto.ApprovePlacementRequest{}, facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, 1, dashboards.calls)
}

func TestPlacementApproveWrongFaculty(t *testing.T) {
	repo := &placementStoreStub{placement: &models.Placement{ID: "pl-1", FacultyID: "fac-1", Status: models.PlacementStatusPending}}
	svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, nil)

	_, err := svc.Approve(context.Background(), "pl-1", dto.ApprovePlacementRequest{}, facultyClaims("fac-2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestPlacementApproveLostRace(t *testing.T) {
	repo := &placementStoreStub{
		placement: &models.Placement{ID: "pl-1", FacultyID: "fac-1", Status: models.PlacementStatusPending},
		updateErr: sql.ErrNoRows,
	}
	svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, nil)

	_, err := svc.Approve(context.Background(), "pl-1", dto.ApprovePlacementRequest{}, facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestPlacementRejectRequiresReason(t *testing.T) {
	svc := newPlacementService(&placementStoreStub{}, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, nil)

	_, err := svc.Reject(context.Background(), "pl-1", dto.RejectPlacementRequest{Reason: "  "}, facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPlacementActivateRequiresAllArtifacts(t *testing.T) {
	repo := &placementStoreStub{placement: &models.Placement{
		ID:            "pl-1",
		FacultyID:     "fac-1",
		Status:        models.PlacementStatusApprovedChecklist,
		HasCellPolicy: true,
		HasChecklist:  true,
	}}
	svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, nil)

	_, err := svc.Activate(context.Background(), "pl-1", facultyClaims("fac-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	repo.placement.HasLearningContract = true
	placement, err := svc.Activate(context.Background(), "pl-1", facultyClaims("fac-1"))
	require.NoError(t, err)
	assert.Equal(t, models.PlacementStatusActive, placement.Status)
}

func TestPlacementArchiveGuards(t *testing.T) {
	past := time.Now().UTC().AddDate(0, 0, -1)
	base := &models.Placement{
		ID:            "pl-1",
		StudentID:     "stu-1",
		FacultyID:     "fac-1",
		Status:        models.PlacementStatusActive,
		RequiredHours: 120,
		EndDate:       past,
	}

	t.Run("hours below requirement", func(t *testing.T) {
		repo := &placementStoreStub{placement: base}
		svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{},
			hoursProviderStub{summary: &models.HoursSummary{Approved: 80, RequiredHours: 120}}, nil)

		_, err := svc.Archive(context.Background(), "pl-1", studentClaims("stu-1"))
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
		assert.Contains(t, appErr.Message, "hours")
	})

	t.Run("end date not reached", func(t *testing.T) {
		future := *base
		future.EndDate = time.Now().UTC().AddDate(0, 0, 7)
		repo := &placementStoreStub{placement: &future}
		svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{},
			hoursProviderStub{summary: &models.HoursSummary{Approved: 120, RequiredHours: 120}}, nil)

		_, err := svc.Archive(context.Background(), "pl-1", studentClaims("stu-1"))
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
		assert.Contains(t, appErr.Message, "end date")
	})

	t.Run("both guards satisfied", func(t *testing.T) {
		repo := &placementStoreStub{placement: base, activeByStudent: 1}
		svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{},
			hoursProviderStub{summary: &models.HoursSummary{Approved: 120.5, RequiredHours: 120}}, &auditSinkStub{})

		result, err := svc.Archive(context.Background(), "pl-1", studentClaims("stu-1"))
		require.NoError(t, err)
		assert.Equal(t, models.PlacementStatusArchived, result.Placement.Status)
		assert.True(t, result.StudentHasOtherActive)
	})
}

func TestPlacementListScopedByRole(t *testing.T) {
	repo := &placementStoreStub{placement: &models.Placement{ID: "pl-1", StudentID: "stu-1", FacultyID: "fac-1", Status: models.PlacementStatusActive}}
	svc := newPlacementService(repo, siteStoreStub{}, classStoreStub{}, profileStoreStub{}, hoursProviderStub{}, nil)

	placements, err := svc.List(context.Background(), dto.PlacementQuery{}, studentClaims("stu-1"))
	require.NoError(t, err)
	assert.Len(t, placements, 1)

	_, err = svc.List(context.Background(), dto.PlacementQuery{}, &models.JWTClaims{UserID: "x", Role: "VISITOR"})
	require.Error(t, err)
}

func TestEffectiveStatusCompleteIsDerived(t *testing.T) {
	p := &models.Placement{Status: models.PlacementStatusActive, EndDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, models.PlacementStatusActive, p.EffectiveStatus(time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.PlacementStatusComplete, p.EffectiveStatus(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.PlacementStatusActive, p.Status)
}
