package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fieldtrack/practicum-api/internal/dto"
	"github.com/fieldtrack/practicum-api/internal/models"
	appErrors "github.com/fieldtrack/practicum-api/pkg/errors"
)

const (
	programDashboardCacheKey = "dashboard:program"
	studentProgressCacheKey  = "dashboard:progress:"
)

// dashboardInvalidator is the hook workflow services use to drop stale
// dashboard payloads after a transition changes the counts.
type dashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// DashboardCache is the cache surface the dashboard reads through.
type DashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type placementCounter interface {
	CountByStatus(ctx context.Context) (map[models.PlacementStatus]int, error)
	List(ctx context.Context, filter models.PlacementFilter) ([]models.Placement, error)
}

type timesheetCounter interface {
	CountByStatus(ctx context.Context) (map[models.TimesheetStatus]int, error)
	SumApprovedHours(ctx context.Context) (float64, error)
}

type siteCounter interface {
	CountByActive(ctx context.Context) (active, inactive int, err error)
}

type contractCounter interface {
	CountByStatus(ctx context.Context) (map[models.ContractStatus]int, error)
}

// DashboardService aggregates program-wide stats for faculty and admin
// screens. Results are cached in Redis; the hours aggregator backing archive
// decisions never reads from this cache.
type DashboardService struct {
	placements placementCounter
	timesheets timesheetCounter
	sites      siteCounter
	contracts  contractCounter
	hours      hoursProvider
	cache      DashboardCache
	ttl        time.Duration
	logger     *zap.Logger
}

func NewDashboardService(
	placements placementCounter,
	timesheets timesheetCounter,
	sites siteCounter,
	contracts contractCounter,
	hours hoursProvider,
	cache DashboardCache,
	ttl time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		placements: placements,
		timesheets: timesheets,
		sites:      sites,
		contracts:  contracts,
		hours:      hours,
		cache:      cache,
		ttl:        ttl,
		logger:     logger,
	}
}

// ProgramDashboard returns the aggregated counts, served from cache when
// fresh.
func (s *DashboardService) ProgramDashboard(ctx context.Context, actor *models.JWTClaims) (*dto.ProgramDashboardResponse, bool, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		var cached dto.ProgramDashboardResponse
		if err := s.cache.Get(ctx, programDashboardCacheKey, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	resp, err := s.buildProgramDashboard(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, programDashboardCacheKey, resp, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return resp, false, nil
}

// StudentProgress lists per-placement hour progress for the actor's scope.
// Faculty see their own placements; admins see everything.
func (s *DashboardService) StudentProgress(ctx context.Context, actor *models.JWTClaims) ([]dto.StudentProgressItem, bool, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, false, err
	}

	cacheKey := studentProgressCacheKey + actor.UserID
	if s.cache != nil {
		var cached []dto.StudentProgressItem
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	filter := models.PlacementFilter{Status: []models.PlacementStatus{models.PlacementStatusActive}}
	if actor.Role == models.RoleFaculty {
		filter.FacultyID = actor.UserID
	}
	placements, err := s.placements.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list placements")
	}

	items := make([]dto.StudentProgressItem, 0, len(placements))
	now := time.Now().UTC()
	for i := range placements {
		p := &placements[i]
		summary, err := s.hours.ComputeSummary(ctx, p.ID)
		if err != nil {
			return nil, false, err
		}
		items = append(items, dto.StudentProgressItem{
			PlacementID:   p.ID,
			StudentID:     p.StudentID,
			SiteID:        p.SiteID,
			Status:        string(p.EffectiveStatus(now)),
			RequiredHours: p.RequiredHours,
			ApprovedHours: summary.Approved,
			PendingHours:  summary.Pending,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, items, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return items, false, nil
}

// Invalidate drops all cached dashboard payloads. Called after workflow
// transitions that change the counts.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) buildProgramDashboard(ctx context.Context) (*dto.ProgramDashboardResponse, error) {
	placementCounts, err := s.placements.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count placements")
	}
	timesheetCounts, err := s.timesheets.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count timesheets")
	}
	approvedHours, err := s.timesheets.SumApprovedHours(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum approved hours")
	}
	activeSites, _, err := s.sites.CountByActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sites")
	}
	contractCounts, err := s.contracts.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count contracts")
	}

	return &dto.ProgramDashboardResponse{
		Placements: dto.PlacementDashboardSection{
			Pending:          placementCounts[models.PlacementStatusPending],
			PendingChecklist: placementCounts[models.PlacementStatusApprovedChecklist],
			Active:           placementCounts[models.PlacementStatusActive],
			Archived:         placementCounts[models.PlacementStatusArchived],
		},
		Timesheets: dto.TimesheetDashboardSection{
			AwaitingSupervisor: timesheetCounts[models.TimesheetStatusPendingSupervisor],
			AwaitingFaculty:    timesheetCounts[models.TimesheetStatusPendingFaculty],
			ApprovedHours:      approvedHours,
		},
		Sites: dto.SiteDashboardSection{
			Active:            activeSites,
			AwaitingContract:  contractCounts[models.ContractStatusSent],
			ContractsToReview: contractCounts[models.ContractStatusSubmitted],
		},
	}, nil
}
