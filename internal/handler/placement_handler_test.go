package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/middleware"
	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
	"github.com/fieldtrack/practicum-api/pkg/response"
)

type placementServiceStub struct {
	placement *models.Placement
	archive   *models.ArchiveResult
	err       error

	lastQuery dto.PlacementQuery
	lastActor *models.JWTClaims
}

func (s *placementServiceStub) Request(ctx context.Context, req dto.RequestPlacementRequest, actor *models.JWTClaims) (*models.Placement, error) {
	s.lastActor = actor
	return s.placement, s.err
}

func (s *placementServiceStub) Approve(ctx context.Context, id string, req dto.ApprovePlacementRequest, actor *models.JWTClaims) (*models.Placement, error) {
	s.lastActor = actor
	return s.placement, s.err
}

func (s *placementServiceStub) Reject(ctx context.Context, id string, req dto.RejectPlacementRequest, actor *models.JWTClaims) (*models.Placement, error) {
	s.lastActor = actor
	return s.placement, s.err
}

func (s *placementServiceStub) Activate(ctx context.Context, id string, actor *models.JWTClaims) (*models.Placement, error) {
	return s.placement, s.err
}

func (s *placementServiceStub) Archive(ctx context.Context, id string, actor *models.JWTClaims) (*models.ArchiveResult, error) {
	return s.archive, s.err
}

func (s *placementServiceStub) SetArtifactFlags(ctx context.Context, id string, req dto.ArtifactFlagsRequest, actor *models.JWTClaims) (*models.ActivationReadiness, error) {
	return &models.ActivationReadiness{PlacementID: id}, s.err
}

func (s *placementServiceStub) Readiness(ctx context.Context, id string, actor *models.JWTClaims) (*models.ActivationReadiness, error) {
	return &models.ActivationReadiness{PlacementID: id}, s.err
}

func (s *placementServiceStub) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Placement, error) {
	return s.placement, s.err
}

func (s *placementServiceStub) List(ctx context.Context, query dto.PlacementQuery, actor *models.JWTClaims) ([]models.Placement, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	if s.placement == nil {
		return nil, nil
	}
	return []models.Placement{*s.placement}, nil
}

type hoursServiceStub struct {
	summary *models.HoursSummary
	err     error
}

func (s hoursServiceStub) ComputeSummary(ctx context.Context, placementID string) (*models.HoursSummary, error) {
	return s.summary, s.err
}

func newTestContext(t *testing.T, method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestPlacementCreateReturns201(t *testing.T) {
	svc := &placementServiceStub{placement: &models.Placement{ID: "pl-1", Status: models.PlacementStatusPending}}
	h := NewPlacementHandler(svc, hoursServiceStub{})

	body := map[string]interface{}{
		"site_id":    "site-1",
		"class_id":   "class-1",
		"start_date": "2026-02-02T00:00:00Z",
		"end_date":   "2026-05-15T00:00:00Z",
	}
	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	c, rec := newTestContext(t, http.MethodPost, "/api/v1/placements", body, claims)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Data)
	assert.Nil(t, envelope.Error)
	assert.Equal(t, "stu-1", svc.lastActor.UserID)
}

func TestPlacementCreateRejectsMalformedBody(t *testing.T) {
	h := NewPlacementHandler(&placementServiceStub{}, hoursServiceStub{})

	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	c, rec := newTestContext(t, http.MethodPost, "/api/v1/placements", nil, claims)
	c.Request.Body = http.NoBody

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestPlacementCreateRequiresAuth(t *testing.T) {
	h := NewPlacementHandler(&placementServiceStub{}, hoursServiceStub{})

	body := map[string]interface{}{"site_id": "site-1", "class_id": "class-1"}
	c, rec := newTestContext(t, http.MethodPost, "/api/v1/placements", body, nil)

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlacementListParsesQuery(t *testing.T) {
	svc := &placementServiceStub{placement: &models.Placement{ID: "pl-1"}}
	h := NewPlacementHandler(svc, hoursServiceStub{})

	claims := &models.JWTClaims{UserID: "fac-1", Role: models.RoleFaculty}
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/placements?status=active&student_id=stu-1&limit=10&offset=5", nil, claims)

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", svc.lastQuery.StudentID)
	assert.Equal(t, []models.PlacementStatus{models.PlacementStatusActive}, svc.lastQuery.Status)
	assert.Equal(t, 10, svc.lastQuery.Limit)
	assert.Equal(t, 5, svc.lastQuery.Offset)
}

func TestPlacementApproveMapsServiceError(t *testing.T) {
	svc := &placementServiceStub{err: appErrors.Clone(appErrors.ErrInvalidState, "placement already reviewed")}
	h := NewPlacementHandler(svc, hoursServiceStub{})

	claims := &models.JWTClaims{UserID: "fac-1", Role: models.RoleFaculty}
	c, rec := newTestContext(t, http.MethodPost, "/api/v1/placements/pl-1/approve", map[string]string{"notes": "ok"}, claims)
	c.Params = gin.Params{{Key: "id", Value: "pl-1"}}

	h.Approve(c)

	assert.Equal(t, appErrors.ErrInvalidState.Status, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidState.Code, envelope.Error.Code)
}

func TestPlacementApproveAllowsEmptyBody(t *testing.T) {
	svc := &placementServiceStub{placement: &models.Placement{ID: "pl-1", Status: models.PlacementStatusApprovedChecklist}}
	h := NewPlacementHandler(svc, hoursServiceStub{})

	claims := &models.JWTClaims{UserID: "fac-1", Role: models.RoleFaculty}
	c, rec := newTestContext(t, http.MethodPost, "/api/v1/placements/pl-1/approve", nil, claims)
	c.Params = gin.Params{{Key: "id", Value: "pl-1"}}

	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlacementHoursSummaryChecksVisibilityFirst(t *testing.T) {
	svc := &placementServiceStub{err: appErrors.ErrForbidden}
	h := NewPlacementHandler(svc, hoursServiceStub{summary: &models.HoursSummary{Approved: 10}})

	claims := &models.JWTClaims{UserID: "stu-2", Role: models.RoleStudent}
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/placements/pl-1/hours", nil, claims)
	c.Params = gin.Params{{Key: "id", Value: "pl-1"}}

	h.HoursSummary(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlacementHoursSummaryReturnsTotals(t *testing.T) {
	svc := &placementServiceStub{placement: &models.Placement{ID: "pl-1"}}
	h := NewPlacementHandler(svc, hoursServiceStub{summary: &models.HoursSummary{PlacementID: "pl-1", Approved: 42.5, Remaining: 77.5}})

	claims := &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent}
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/placements/pl-1/hours", nil, claims)
	c.Params = gin.Params{{Key: "id", Value: "pl-1"}}

	h.HoursSummary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 42.5, data["approved"])
}
