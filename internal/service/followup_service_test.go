package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/repository"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type followUpRepoStub struct {
	followUp     *models.FollowUp
	updated      *models.FollowUp
	created      []*models.FollowUp
	updateParams []repository.FollowUpUpdateParams
	updateErr    error
}

func (s *followUpRepoStub) Create(ctx context.Context, followUp *models.FollowUp) error {
	followUp.Status = models.FollowUpStatusPending
	s.created = append(s.created, followUp)
	return nil
}

func (s *followUpRepoStub) FindByID(ctx context.Context, id string) (*models.FollowUp, error) {
	if s.followUp == nil {
		return nil, sql.ErrNoRows
	}
	return s.followUp, nil
}

func (s *followUpRepoStub) ListByEnquiry(ctx context.Context, enquiryID string) ([]models.FollowUp, error) {
	return nil, nil
}

func (s *followUpRepoStub) ListPendingByUser(ctx context.Context, userID string) ([]models.FollowUp, error) {
	return nil, nil
}

func (s *followUpRepoStub) UpdateWithActivity(ctx context.Context, params repository.FollowUpUpdateParams) (*models.FollowUp, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	s.updateParams = append(s.updateParams, params)
	return s.updated, nil
}

func TestFollowUpServiceCreate(t *testing.T) {
	repo := &followUpRepoStub{}
	enquiries := &billingEnquiryStub{enquiry: testEnquiry()}
	cache := &enquiryCacheStub{}
	svc := NewFollowUpService(repo, enquiries, cache, nil, nil)

	scheduled := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	followUp, err := svc.Create(context.Background(), adminClaims(), "enq-1", CreateFollowUpRequest{
		ScheduledAt: scheduled,
		Notes:       strPtr("check about scholarship docs"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.FollowUpStatusPending, followUp.Status)
	assert.Equal(t, scheduled, followUp.ScheduledAt)
	assert.Equal(t, []string{"enq-1"}, cache.invalidated)
}

func TestFollowUpServiceResolveComplete(t *testing.T) {
	repo := &followUpRepoStub{
		followUp: &models.FollowUp{ID: "fu-1", EnquiryID: "enq-1", Status: models.FollowUpStatusPending},
		updated:  &models.FollowUp{ID: "fu-1", EnquiryID: "enq-1", Status: models.FollowUpStatusCompleted},
	}
	enquiries := &billingEnquiryStub{enquiry: testEnquiry()}
	svc := NewFollowUpService(repo, enquiries, nil, nil, nil)

	followUp, err := svc.Resolve(context.Background(), adminClaims(), "fu-1", ResolveFollowUpRequest{
		Status:  string(models.FollowUpStatusCompleted),
		Outcome: strPtr("spoke to parent"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.FollowUpStatusCompleted, followUp.Status)

	require.Len(t, repo.updateParams, 1)
	assert.Equal(t, models.FollowUpStatusCompleted, repo.updateParams[0].Status)
	assert.Equal(t, "admin-1", repo.updateParams[0].ActorID)
}

func TestFollowUpServiceRescheduleRequiresNewTime(t *testing.T) {
	repo := &followUpRepoStub{
		followUp: &models.FollowUp{ID: "fu-1", EnquiryID: "enq-1", Status: models.FollowUpStatusPending},
	}
	enquiries := &billingEnquiryStub{enquiry: testEnquiry()}
	svc := NewFollowUpService(repo, enquiries, nil, nil, nil)

	_, err := svc.Resolve(context.Background(), adminClaims(), "fu-1", ResolveFollowUpRequest{
		Status: string(models.FollowUpStatusRescheduled),
	})
	require.Error(t, err)
	assert.Empty(t, repo.updateParams)
}

func TestFollowUpServiceResolveRejectsAlreadyResolved(t *testing.T) {
	repo := &followUpRepoStub{
		followUp: &models.FollowUp{ID: "fu-1", EnquiryID: "enq-1", Status: models.FollowUpStatusCompleted},
	}
	enquiries := &billingEnquiryStub{enquiry: testEnquiry()}
	svc := NewFollowUpService(repo, enquiries, nil, nil, nil)

	_, err := svc.Resolve(context.Background(), adminClaims(), "fu-1", ResolveFollowUpRequest{
		Status: string(models.FollowUpStatusCancelled),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.updateParams)
}

func TestFollowUpServiceResolveRejectsPendingTarget(t *testing.T) {
	repo := &followUpRepoStub{
		followUp: &models.FollowUp{ID: "fu-1", EnquiryID: "enq-1", Status: models.FollowUpStatusPending},
	}
	enquiries := &billingEnquiryStub{enquiry: testEnquiry()}
	svc := NewFollowUpService(repo, enquiries, nil, nil, nil)

	_, err := svc.Resolve(context.Background(), adminClaims(), "fu-1", ResolveFollowUpRequest{
		Status: string(models.FollowUpStatusPending),
	})
	require.Error(t, err)
	assert.Empty(t, repo.updateParams)
}

func TestFollowUpServiceTelecallerScopedToOwnEnquiries(t *testing.T) {
	enquiry := testEnquiry()
	enquiry.AssignedTo = strPtr("caller-other")
	repo := &followUpRepoStub{}
	enquiries := &billingEnquiryStub{enquiry: enquiry}
	svc := NewFollowUpService(repo, enquiries, nil, nil, nil)

	actor := &models.JWTClaims{UserID: "caller-1", Role: models.RoleTelecaller}
	_, err := svc.Create(context.Background(), actor, "enq-1", CreateFollowUpRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	require.Error(t, err)
	assert.Empty(t, repo.created)
}
