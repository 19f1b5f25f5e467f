package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/repository"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type enquiryRepoStub struct {
	enquiry          *models.Enquiry
	detail           *models.EnquiryDetail
	findErr          error
	transitionPrev   models.EnquiryStatus
	transitionErr    error
	transitionParams []repository.StatusTransitionParams
}

func (s *enquiryRepoStub) List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error) {
	return nil, 0, nil
}

func (s *enquiryRepoStub) FindByID(ctx context.Context, id string) (*models.Enquiry, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.enquiry == nil {
		return nil, sql.ErrNoRows
	}
	return s.enquiry, nil
}

func (s *enquiryRepoStub) FindDetailByID(ctx context.Context, id string) (*models.EnquiryDetail, error) {
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func (s *enquiryRepoStub) Create(ctx context.Context, enquiry *models.Enquiry) error { return nil }

func (s *enquiryRepoStub) Update(ctx context.Context, enquiry *models.Enquiry) error { return nil }

func (s *enquiryRepoStub) UpdateStatusWithActivity(ctx context.Context, params repository.StatusTransitionParams) (models.EnquiryStatus, error) {
	s.transitionParams = append(s.transitionParams, params)
	if s.transitionErr != nil {
		return "", s.transitionErr
	}
	return s.transitionPrev, nil
}

type enquiryCacheStub struct {
	hit         bool
	invalidated []string
}

func (s *enquiryCacheStub) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return s.hit, nil
}

func (s *enquiryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (s *enquiryCacheStub) InvalidateEnquiry(ctx context.Context, enquiryID string) {
	s.invalidated = append(s.invalidated, enquiryID)
}

func strPtr(s string) *string { return &s }

func testEnquiry() *models.Enquiry {
	return &models.Enquiry{
		ID:         "enq-1",
		Status:     models.EnquiryStatusInterested,
		BranchID:   "branch-1",
		AssignedTo: strPtr("caller-1"),
	}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestEnquiryServiceUpdateStatus(t *testing.T) {
	repo := &enquiryRepoStub{
		enquiry:        testEnquiry(),
		detail:         &models.EnquiryDetail{Enquiry: models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusFollowUp}},
		transitionPrev: models.EnquiryStatusInterested,
	}
	cache := &enquiryCacheStub{}
	svc := NewEnquiryService(repo, cache, nil, nil, nil)

	detail, err := svc.UpdateStatus(context.Background(), adminClaims(), "enq-1", UpdateStatusRequest{
		Status:  string(models.EnquiryStatusFollowUp),
		Remarks: strPtr("asked to call next week"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusFollowUp, detail.Status)

	require.Len(t, repo.transitionParams, 1)
	params := repo.transitionParams[0]
	assert.Equal(t, models.ActivityStatusChange, params.Type)
	assert.Equal(t, models.EnquiryStatusFollowUp, params.NewStatus)
	assert.Equal(t, "admin-1", params.ActorID)
	assert.Equal(t, []string{"enq-1"}, cache.invalidated)
}

func TestEnquiryServiceUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := &enquiryRepoStub{enquiry: testEnquiry()}
	svc := NewEnquiryService(repo, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), adminClaims(), "enq-1", UpdateStatusRequest{Status: "WON"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErr.Code)
	assert.Empty(t, repo.transitionParams)
}

func TestEnquiryServiceUpdateStatusIncrementsTransitionCounter(t *testing.T) {
	repo := &enquiryRepoStub{
		enquiry:        testEnquiry(),
		detail:         &models.EnquiryDetail{Enquiry: models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusContacted}},
		transitionPrev: models.EnquiryStatusInterested,
	}
	metrics := NewMetricsService()
	svc := NewEnquiryService(repo, nil, metrics, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), adminClaims(), "enq-1", UpdateStatusRequest{
		Status: string(models.EnquiryStatusContacted),
	})
	require.NoError(t, err)

	counter := metrics.transitionTotal.WithLabelValues(string(models.EnquiryStatusContacted))
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))
}

func TestEnquiryServiceGetReportsCacheHit(t *testing.T) {
	repo := &enquiryRepoStub{
		enquiry: testEnquiry(),
		detail:  &models.EnquiryDetail{Enquiry: models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusInterested}},
	}

	svc := NewEnquiryService(repo, &enquiryCacheStub{hit: false}, nil, nil, nil)
	_, cacheHit, err := svc.Get(context.Background(), adminClaims(), "enq-1")
	require.NoError(t, err)
	assert.False(t, cacheHit)

	svc = NewEnquiryService(repo, &enquiryCacheStub{hit: true}, nil, nil, nil)
	_, cacheHit, err = svc.Get(context.Background(), adminClaims(), "enq-1")
	require.NoError(t, err)
	assert.True(t, cacheHit)
}

func TestEnquiryServiceTelecallerCannotTouchUnassignedEnquiry(t *testing.T) {
	enquiry := testEnquiry()
	enquiry.AssignedTo = strPtr("caller-other")
	repo := &enquiryRepoStub{enquiry: enquiry}
	svc := NewEnquiryService(repo, nil, nil, nil, nil)

	actor := &models.JWTClaims{UserID: "caller-1", Role: models.RoleTelecaller}
	_, err := svc.UpdateStatus(context.Background(), actor, "enq-1", UpdateStatusRequest{
		Status: string(models.EnquiryStatusContacted),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Empty(t, repo.transitionParams)
}

func TestEnquiryServiceTelecallerCanTransitionOwnEnquiry(t *testing.T) {
	repo := &enquiryRepoStub{
		enquiry:        testEnquiry(),
		detail:         &models.EnquiryDetail{Enquiry: models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusContacted}},
		transitionPrev: models.EnquiryStatusInterested,
	}
	svc := NewEnquiryService(repo, nil, nil, nil, nil)

	actor := &models.JWTClaims{UserID: "caller-1", Role: models.RoleTelecaller}
	_, err := svc.UpdateStatus(context.Background(), actor, "enq-1", UpdateStatusRequest{
		Status: string(models.EnquiryStatusContacted),
	})
	require.NoError(t, err)
	require.Len(t, repo.transitionParams, 1)
}

func TestEnquiryServiceEnrollDirectly(t *testing.T) {
	repo := &enquiryRepoStub{
		enquiry:        testEnquiry(),
		detail:         &models.EnquiryDetail{Enquiry: models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusEnrolled}},
		transitionPrev: models.EnquiryStatusInterested,
	}
	cache := &enquiryCacheStub{}
	svc := NewEnquiryService(repo, cache, nil, nil, nil)

	detail, err := svc.EnrollDirectly(context.Background(), adminClaims(), "enq-1", EnrollDirectRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusEnrolled, detail.Status)

	require.Len(t, repo.transitionParams, 1)
	params := repo.transitionParams[0]
	assert.Equal(t, models.ActivityEnrollmentDirect, params.Type)
	assert.Equal(t, models.EnquiryStatusEnrolled, params.NewStatus)
	assert.Equal(t, []string{"enq-1"}, cache.invalidated)
}

func TestEnquiryServiceUpdateStatusNotFound(t *testing.T) {
	repo := &enquiryRepoStub{}
	svc := NewEnquiryService(repo, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), adminClaims(), "missing", UpdateStatusRequest{
		Status: string(models.EnquiryStatusContacted),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnquiryServiceListScopesTelecallerToOwnEnquiries(t *testing.T) {
	repo := &scopeCapturingEnquiryRepo{}
	svc := NewEnquiryService(repo, nil, nil, nil, nil)

	actor := &models.JWTClaims{UserID: "caller-1", Role: models.RoleTelecaller}
	_, _, err := svc.List(context.Background(), actor, models.EnquiryFilter{})
	require.NoError(t, err)
	assert.Equal(t, "caller-1", repo.lastFilter.AssignedTo)
}

type scopeCapturingEnquiryRepo struct {
	enquiryRepoStub
	lastFilter models.EnquiryFilter
}

func (s *scopeCapturingEnquiryRepo) List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error) {
	s.lastFilter = filter
	return nil, 0, nil
}
