package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type timelineActivityReader interface {
	ListByEnquiry(ctx context.Context, enquiryID string) ([]models.EnquiryActivity, error)
}

type timelineFollowUpReader interface {
	ListByEnquiry(ctx context.Context, enquiryID string) ([]models.FollowUp, error)
}

type timelineCallLogReader interface {
	ListByEnquiry(ctx context.Context, enquiryID string) ([]models.CallLog, error)
}

// TimelineService reconciles the three history sources of an enquiry into a
// single chronological feed. A follow-up or call log that is already linked
// from an activity row appears once, through that activity; only unlinked
// rows are emitted standalone. Rebuilding the timeline never writes, so the
// operation is repeatable.
type TimelineService struct {
	activities timelineActivityReader
	followUps  timelineFollowUpReader
	callLogs   timelineCallLogReader
	cache      *CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewTimelineService constructs TimelineService.
func NewTimelineService(activities timelineActivityReader, followUps timelineFollowUpReader, callLogs timelineCallLogReader, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *TimelineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimelineService{
		activities: activities,
		followUps:  followUps,
		callLogs:   callLogs,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Build returns the reconciled timeline for the enquiry, most recent first.
// The boolean reports whether the feed was served from cache.
func (s *TimelineService) Build(ctx context.Context, enquiryID string) ([]models.TimelineItem, bool, error) {
	key := enquiryCacheKey(enquiryID, "timeline")
	if s.cache != nil {
		var cached []models.TimelineItem
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	items, err := s.build(ctx, enquiryID)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, items, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache timeline", zap.String("enquiry_id", enquiryID), zap.Error(err))
		}
	}
	return items, false, nil
}

func (s *TimelineService) build(ctx context.Context, enquiryID string) ([]models.TimelineItem, error) {
	activities, err := s.activities.ListByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry activities")
	}
	followUps, err := s.followUps.ListByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load follow-ups")
	}
	callLogs, err := s.callLogs.ListByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load call logs")
	}

	linkedFollowUps := make(map[string]struct{})
	linkedCallLogs := make(map[string]struct{})
	for _, activity := range activities {
		if activity.FollowUpID != nil {
			linkedFollowUps[*activity.FollowUpID] = struct{}{}
		}
		if activity.CallLogID != nil {
			linkedCallLogs[*activity.CallLogID] = struct{}{}
		}
	}

	items := make([]models.TimelineItem, 0, len(activities)+len(followUps)+len(callLogs))
	for i := range activities {
		activity := activities[i]
		items = append(items, models.TimelineItem{
			Kind:      models.TimelineKindActivity,
			CreatedAt: activity.CreatedAt,
			Activity:  &activity,
		})
	}
	for i := range followUps {
		followUp := followUps[i]
		if _, linked := linkedFollowUps[followUp.ID]; linked {
			continue
		}
		items = append(items, models.TimelineItem{
			Kind:      models.TimelineKindFollowUp,
			CreatedAt: followUp.CreatedAt,
			FollowUp:  &followUp,
		})
	}
	for i := range callLogs {
		callLog := callLogs[i]
		if _, linked := linkedCallLogs[callLog.ID]; linked {
			continue
		}
		items = append(items, models.TimelineItem{
			Kind:      models.TimelineKindCallLog,
			CreatedAt: callLog.CreatedAt,
			CallLog:   &callLog,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}
