package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type admissionRepository interface {
	ExistsForEnquiry(ctx context.Context, enquiryID string) (bool, error)
	CreateWithEnrollment(ctx context.Context, admission *models.Admission) error
	List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, int, error)
}

// CreateAdmissionRequest captures the admission form.
type CreateAdmissionRequest struct {
	CourseID      string    `json:"course_id" validate:"required"`
	AdmissionDate time.Time `json:"admission_date" validate:"required"`
	TotalFee      float64   `json:"total_fee" validate:"gte=0"`
	Discount      float64   `json:"discount" validate:"gte=0"`
	Remarks       *string   `json:"remarks,omitempty"`
}

// AdmissionService converts enquiries into formal enrollments.
type AdmissionService struct {
	repo      admissionRepository
	enquiries followUpEnquiryReader
	cache     enquiryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(repo admissionRepository, enquiries followUpEnquiryReader, cache enquiryCache, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{repo: repo, enquiries: enquiries, cache: cache, validator: validate, logger: logger}
}

// Create records the admission and moves the enquiry to ENROLLED in the same
// transaction. A second admission for the same enquiry is rejected.
func (s *AdmissionService) Create(ctx context.Context, actor *models.JWTClaims, enquiryID string, req CreateAdmissionRequest) (*models.Admission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admission payload")
	}
	if req.Discount > req.TotalFee {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount cannot exceed the total fee")
	}

	enquiry, err := s.enquiries.FindByID(ctx, enquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	if err := authorizeEnquiryAccess(actor, enquiry); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsForEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing admission")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enquiry already has an admission")
	}

	admission := &models.Admission{
		EnquiryID:     enquiryID,
		CourseID:      req.CourseID,
		BranchID:      enquiry.BranchID,
		AdmissionDate: req.AdmissionDate.UTC(),
		TotalFee:      req.TotalFee,
		Discount:      req.Discount,
		Remarks:       req.Remarks,
		CreatedBy:     actor.UserID,
	}
	if err := s.repo.CreateWithEnrollment(ctx, admission); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admission")
	}

	s.logger.Info("admission recorded",
		zap.String("enquiry_id", enquiryID),
		zap.String("admission_id", admission.ID),
		zap.String("actor_id", actor.UserID))
	if s.cache != nil {
		s.cache.InvalidateEnquiry(ctx, enquiryID)
	}
	return admission, nil
}

// List returns admissions with joined names, scoped to the actor's branch
// for executives.
func (s *AdmissionService) List(ctx context.Context, actor *models.JWTClaims, filter models.AdmissionFilter) ([]models.AdmissionDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleExecutive && actor.BranchID != nil {
		filter.BranchID = *actor.BranchID
	}
	admissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admissions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return admissions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
