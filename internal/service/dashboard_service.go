package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/intern-tracker-api/internal/dto"
	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/intern-tracker-api/pkg/errors"
)

const dashboardSummaryKey = "dash:summary"

type dashboardRepository interface {
	Totals(ctx context.Context) (repository.DashboardTotals, error)
	AttendanceByStatus(ctx context.Context, date string) (map[string]int, error)
	HeadcountBySchool(ctx context.Context) ([]dto.SchoolHeadcount, error)
}

// DashboardService composes the dashboard summary, cached between writes.
type DashboardService struct {
	repo     dashboardRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Summary returns headline counts and reports whether they came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, bool, error) {
	summary, hit, err := Remember(ctx, s.cache, dashboardSummaryKey, s.cacheTTL, s.compose)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
	}
	return summary, hit, nil
}

func (s *DashboardService) compose(ctx context.Context) (*dto.DashboardSummary, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now().UTC().Format("2006-01-02")
	byStatus, err := s.repo.AttendanceByStatus(ctx, today)
	if err != nil {
		return nil, err
	}
	headcount, err := s.repo.HeadcountBySchool(ctx)
	if err != nil {
		return nil, err
	}
	if headcount == nil {
		headcount = []dto.SchoolHeadcount{}
	}

	var rate float64
	if totals.Students > 0 {
		rate = math.Round(float64(totals.Employees)/float64(totals.Students)*10000) / 100
	}

	return &dto.DashboardSummary{
		Schools:      totals.Schools,
		Students:     totals.Students,
		Employees:    totals.Employees,
		EmployeeRate: rate,
		Attendance: dto.AttendanceDaySummary{
			Date:    today,
			Present: byStatus[string(models.AttendanceStatusPresent)],
			Late:    byStatus[string(models.AttendanceStatusLate)],
			Absent:  byStatus[string(models.AttendanceStatusAbsent)],
		},
		StudentsBySchool: headcount,
		GeneratedAt:      s.now().UTC(),
	}, nil
}
