package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-crm-api/internal/middleware"
	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/repository"
	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

type fakeEnquiryRepo struct {
	enquiry     *models.Enquiry
	detail      *models.EnquiryDetail
	listCalls   int
	transitions []repository.StatusTransitionParams
}

func (f *fakeEnquiryRepo) List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error) {
	f.listCalls++
	return nil, 0, nil
}

func (f *fakeEnquiryRepo) FindByID(ctx context.Context, id string) (*models.Enquiry, error) {
	if f.enquiry == nil {
		return nil, sql.ErrNoRows
	}
	return f.enquiry, nil
}

func (f *fakeEnquiryRepo) FindDetailByID(ctx context.Context, id string) (*models.EnquiryDetail, error) {
	if f.detail == nil {
		return nil, sql.ErrNoRows
	}
	return f.detail, nil
}

func (f *fakeEnquiryRepo) Create(ctx context.Context, enquiry *models.Enquiry) error { return nil }

func (f *fakeEnquiryRepo) Update(ctx context.Context, enquiry *models.Enquiry) error { return nil }

func (f *fakeEnquiryRepo) UpdateStatusWithActivity(ctx context.Context, params repository.StatusTransitionParams) (models.EnquiryStatus, error) {
	f.transitions = append(f.transitions, params)
	return f.enquiry.Status, nil
}

func statusRequest(t *testing.T, claims *models.JWTClaims, body interface{}) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	c.Request = httptest.NewRequest(http.MethodPatch, "/enquiries/enq-1/status", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "enq-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return rec, c
}

func newEnquiryTestHandler(repo *fakeEnquiryRepo) *EnquiryHandler {
	enquiries := service.NewEnquiryService(repo, nil, nil, nil, nil)
	return NewEnquiryHandler(enquiries, nil)
}

func TestEnquiryHandlerUpdateStatus(t *testing.T) {
	assigned := "caller-1"
	repo := &fakeEnquiryRepo{
		enquiry: &models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusNew, BranchID: "branch-1", AssignedTo: &assigned},
		detail:  &models.EnquiryDetail{Enquiry: models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusContacted}},
	}
	handler := newEnquiryTestHandler(repo)

	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	rec, c := statusRequest(t, claims, gin.H{"status": "CONTACTED"})

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.transitions, 1)
	assert.Equal(t, models.EnquiryStatusContacted, repo.transitions[0].NewStatus)
}

func TestEnquiryHandlerUpdateStatusForbiddenForForeignTelecaller(t *testing.T) {
	assigned := "caller-other"
	repo := &fakeEnquiryRepo{
		enquiry: &models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusNew, BranchID: "branch-1", AssignedTo: &assigned},
	}
	handler := newEnquiryTestHandler(repo)

	claims := &models.JWTClaims{UserID: "caller-1", Role: models.RoleTelecaller}
	rec, c := statusRequest(t, claims, gin.H{"status": "CONTACTED"})

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, repo.transitions)
}

func TestEnquiryHandlerUpdateStatusRejectsMalformedBody(t *testing.T) {
	repo := &fakeEnquiryRepo{}
	handler := newEnquiryTestHandler(repo)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/enquiries/enq-1/status", bytes.NewReader([]byte("{")))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "enq-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.transitions)
}

func TestEnquiryHandlerListRejectsUnknownStatusFilter(t *testing.T) {
	repo := &fakeEnquiryRepo{}
	handler := newEnquiryTestHandler(repo)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/enquiries?status=NEWW", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, repo.listCalls)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, envelope.Error.Code)
}

func TestEnquiryHandlerGetReportsCacheMissInMeta(t *testing.T) {
	assigned := "caller-1"
	repo := &fakeEnquiryRepo{
		enquiry: &models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusNew, BranchID: "branch-1", AssignedTo: &assigned},
		detail:  &models.EnquiryDetail{Enquiry: models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusNew}},
	}
	handler := newEnquiryTestHandler(repo)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/enquiries/enq-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "enq-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestEnquiryHandlerUpdateStatusUnknownStatus(t *testing.T) {
	assigned := "caller-1"
	repo := &fakeEnquiryRepo{
		enquiry: &models.Enquiry{ID: "enq-1", Status: models.EnquiryStatusNew, BranchID: "branch-1", AssignedTo: &assigned},
	}
	handler := newEnquiryTestHandler(repo)

	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	rec, c := statusRequest(t, claims, gin.H{"status": "WON"})

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.transitions)
}
