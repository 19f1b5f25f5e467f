package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type reportRepository interface {
	StatusCounts(ctx context.Context, filter models.ReportFilter) ([]models.StatusCount, error)
	AdmissionCount(ctx context.Context, filter models.ReportFilter) (int, error)
	CollectionsTotal(ctx context.Context, filter models.ReportFilter) (float64, error)
	ExpensesTotal(ctx context.Context, filter models.ReportFilter) (float64, error)
}

// ReportService aggregates pipeline and money figures for dashboards.
type ReportService struct {
	repo     reportRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(repo reportRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Dashboard returns the status breakdown plus admissions, collections and
// expenses for the period. Executives are scoped to their branch. The
// boolean reports whether the summary was served from cache.
func (s *ReportService) Dashboard(ctx context.Context, actor *models.JWTClaims, filter models.ReportFilter) (*models.DashboardSummary, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleExecutive && actor.BranchID != nil {
		filter.BranchID = *actor.BranchID
	}

	key := dashboardCacheKey(filter)
	if s.cache != nil {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.buildSummary(ctx, filter)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard", zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *ReportService) buildSummary(ctx context.Context, filter models.ReportFilter) (*models.DashboardSummary, error) {
	statusCounts, err := s.repo.StatusCounts(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate enquiry statuses")
	}
	admissions, err := s.repo.AdmissionCount(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count admissions")
	}
	collections, err := s.repo.CollectionsTotal(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total collections")
	}
	expenses, err := s.repo.ExpensesTotal(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total expenses")
	}

	total := 0
	for _, bucket := range statusCounts {
		total += bucket.Count
	}
	return &models.DashboardSummary{
		TotalEnquiries:  total,
		StatusBreakdown: statusCounts,
		Admissions:      admissions,
		Collections:     collections,
		Expenses:        expenses,
		Net:             collections - expenses,
	}, nil
}

func dashboardCacheKey(filter models.ReportFilter) string {
	from, to := "", ""
	if filter.From != nil {
		from = filter.From.UTC().Format("2006-01-02")
	}
	if filter.To != nil {
		to = filter.To.UTC().Format("2006-01-02")
	}
	branch := filter.BranchID
	if branch == "" {
		branch = "all"
	}
	return fmt.Sprintf("dashboard:%s:%s:%s", branch, from, to)
}
