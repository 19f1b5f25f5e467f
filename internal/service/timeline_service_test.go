package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

type activityReaderStub struct {
	activities []models.EnquiryActivity
	err        error
	calls      int
}

func (s *activityReaderStub) ListByEnquiry(ctx context.Context, enquiryID string) ([]models.EnquiryActivity, error) {
	s.calls++
	return s.activities, s.err
}

type followUpReaderStub struct {
	followUps []models.FollowUp
	err       error
}

func (s *followUpReaderStub) ListByEnquiry(ctx context.Context, enquiryID string) ([]models.FollowUp, error) {
	return s.followUps, s.err
}

type callLogReaderStub struct {
	callLogs []models.CallLog
	err      error
}

func (s *callLogReaderStub) ListByEnquiry(ctx context.Context, enquiryID string) ([]models.CallLog, error) {
	return s.callLogs, s.err
}

func timelineAt(base time.Time, offset time.Duration) time.Time {
	return base.Add(offset)
}

func TestTimelineServiceLinkedRecordsAppearOnce(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	followUpID := "fu-1"
	callLogID := "cl-1"

	activities := &activityReaderStub{activities: []models.EnquiryActivity{
		{ID: "act-1", Type: models.ActivityFollowUp, FollowUpID: &followUpID, CreatedAt: timelineAt(base, 2*time.Hour)},
		{ID: "act-2", Type: models.ActivityCallLog, CallLogID: &callLogID, CreatedAt: timelineAt(base, time.Hour)},
	}}
	followUps := &followUpReaderStub{followUps: []models.FollowUp{
		{ID: "fu-1", CreatedAt: timelineAt(base, 30*time.Minute)},
		{ID: "fu-2", CreatedAt: timelineAt(base, 3*time.Hour)},
	}}
	callLogs := &callLogReaderStub{callLogs: []models.CallLog{
		{ID: "cl-1", CreatedAt: timelineAt(base, 45*time.Minute)},
	}}

	svc := NewTimelineService(activities, followUps, callLogs, nil, 0, nil)
	items, _, err := svc.Build(context.Background(), "enq-1")
	require.NoError(t, err)

	// fu-1 and cl-1 are represented by their linked activities; only the
	// unlinked fu-2 shows up standalone.
	require.Len(t, items, 3)
	ids := make(map[string]int)
	for _, item := range items {
		ids[item.ItemID()]++
	}
	assert.Equal(t, 1, ids["act-1"])
	assert.Equal(t, 1, ids["act-2"])
	assert.Equal(t, 1, ids["fu-2"])
	assert.Zero(t, ids["fu-1"])
	assert.Zero(t, ids["cl-1"])
}

func TestTimelineServiceOrdersNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	activities := &activityReaderStub{activities: []models.EnquiryActivity{
		{ID: "act-1", Type: models.ActivityStatusChange, CreatedAt: timelineAt(base, time.Hour)},
	}}
	followUps := &followUpReaderStub{followUps: []models.FollowUp{
		{ID: "fu-1", CreatedAt: timelineAt(base, 3*time.Hour)},
	}}
	callLogs := &callLogReaderStub{callLogs: []models.CallLog{
		{ID: "cl-1", CreatedAt: timelineAt(base, 2*time.Hour)},
	}}

	svc := NewTimelineService(activities, followUps, callLogs, nil, 0, nil)
	items, _, err := svc.Build(context.Background(), "enq-1")
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "fu-1", items[0].ItemID())
	assert.Equal(t, "cl-1", items[1].ItemID())
	assert.Equal(t, "act-1", items[2].ItemID())
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt))
	}
}

func TestTimelineServiceTiedTimestampsKeepFetchOrder(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	activities := &activityReaderStub{activities: []models.EnquiryActivity{
		{ID: "act-1", Type: models.ActivityStatusChange, CreatedAt: ts},
	}}
	followUps := &followUpReaderStub{followUps: []models.FollowUp{
		{ID: "fu-1", CreatedAt: ts},
	}}
	callLogs := &callLogReaderStub{callLogs: []models.CallLog{
		{ID: "cl-1", CreatedAt: ts},
	}}

	svc := NewTimelineService(activities, followUps, callLogs, nil, 0, nil)

	// Same inputs, same order, every time.
	for i := 0; i < 3; i++ {
		items, _, err := svc.Build(context.Background(), "enq-1")
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "act-1", items[0].ItemID())
		assert.Equal(t, "fu-1", items[1].ItemID())
		assert.Equal(t, "cl-1", items[2].ItemID())
	}
}

func TestTimelineServiceRebuildIsRepeatable(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	followUpID := "fu-1"

	activities := &activityReaderStub{activities: []models.EnquiryActivity{
		{ID: "act-1", Type: models.ActivityFollowUp, FollowUpID: &followUpID, CreatedAt: timelineAt(base, time.Hour)},
	}}
	followUps := &followUpReaderStub{followUps: []models.FollowUp{
		{ID: "fu-1", CreatedAt: base},
	}}
	callLogs := &callLogReaderStub{}

	svc := NewTimelineService(activities, followUps, callLogs, nil, 0, nil)

	first, _, err := svc.Build(context.Background(), "enq-1")
	require.NoError(t, err)
	second, _, err := svc.Build(context.Background(), "enq-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, activities.calls)
}

func TestTimelineServiceEmptyEnquiry(t *testing.T) {
	svc := NewTimelineService(&activityReaderStub{}, &followUpReaderStub{}, &callLogReaderStub{}, nil, 0, nil)
	items, _, err := svc.Build(context.Background(), "enq-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
