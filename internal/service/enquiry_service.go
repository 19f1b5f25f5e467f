package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/repository"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type enquiryRepository interface {
	List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enquiry, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnquiryDetail, error)
	Create(ctx context.Context, enquiry *models.Enquiry) error
	Update(ctx context.Context, enquiry *models.Enquiry) error
	UpdateStatusWithActivity(ctx context.Context, params repository.StatusTransitionParams) (models.EnquiryStatus, error)
}

type enquiryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateEnquiry(ctx context.Context, enquiryID string)
}

// CreateEnquiryRequest describes enquiry intake.
type CreateEnquiryRequest struct {
	CandidateName     string  `json:"candidate_name" validate:"required"`
	Phone             string  `json:"phone" validate:"required"`
	AltPhone          *string `json:"alt_phone,omitempty"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	Address           *string `json:"address,omitempty"`
	BranchID          string  `json:"branch_id" validate:"required"`
	SourceID          string  `json:"source_id" validate:"required"`
	PreferredCourseID *string `json:"preferred_course_id,omitempty"`
	RequiredServiceID *string `json:"required_service_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// UpdateEnquiryRequest describes contact-detail updates.
type UpdateEnquiryRequest struct {
	CandidateName     string  `json:"candidate_name" validate:"required"`
	Phone             string  `json:"phone" validate:"required"`
	AltPhone          *string `json:"alt_phone,omitempty"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	Address           *string `json:"address,omitempty"`
	SourceID          string  `json:"source_id" validate:"required"`
	PreferredCourseID *string `json:"preferred_course_id,omitempty"`
	RequiredServiceID *string `json:"required_service_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
	Feedback          *string `json:"feedback,omitempty"`
}

// UpdateStatusRequest describes a status transition.
type UpdateStatusRequest struct {
	Status  string  `json:"status" validate:"required"`
	Remarks *string `json:"remarks,omitempty"`
}

// EnrollDirectRequest describes a direct enrollment.
type EnrollDirectRequest struct {
	Remarks *string `json:"remarks,omitempty"`
}

// EnquiryService orchestrates the enquiry pipeline, including the status
// transition engine.
type EnquiryService struct {
	repo      enquiryRepository
	cache     enquiryCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnquiryService constructs EnquiryService.
func NewEnquiryService(repo enquiryRepository, cache enquiryCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnquiryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnquiryService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns enquiries visible to the actor with pagination metadata.
// Telecallers only see enquiries assigned to them; executives only their branch.
func (s *EnquiryService) List(ctx context.Context, actor *models.JWTClaims, filter models.EnquiryFilter) ([]models.EnquiryDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTelecaller:
		filter.AssignedTo = actor.UserID
	case models.RoleExecutive:
		if actor.BranchID != nil {
			filter.BranchID = *actor.BranchID
		}
	}
	enquiries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enquiries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enquiries, pagination, nil
}

// Get returns a single enquiry with joined display names. The boolean
// reports whether the payload came from cache so handlers can surface it.
func (s *EnquiryService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.EnquiryDetail, bool, error) {
	enquiry, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := s.authorize(actor, enquiry); err != nil {
		return nil, false, err
	}

	key := enquiryCacheKey(id, "detail")
	if s.cache != nil {
		var cached models.EnquiryDetail
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry detail")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, detail, 0); err != nil {
			s.logger.Warn("failed to cache enquiry detail", zap.String("enquiry_id", id), zap.Error(err))
		}
	}
	return detail, false, nil
}

// Create registers a new enquiry with status NEW.
func (s *EnquiryService) Create(ctx context.Context, actor *models.JWTClaims, req CreateEnquiryRequest) (*models.EnquiryDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enquiry payload")
	}
	enquiry := &models.Enquiry{
		CandidateName:     req.CandidateName,
		Phone:             req.Phone,
		AltPhone:          req.AltPhone,
		Email:             req.Email,
		Address:           req.Address,
		Status:            models.EnquiryStatusNew,
		BranchID:          req.BranchID,
		SourceID:          req.SourceID,
		PreferredCourseID: req.PreferredCourseID,
		RequiredServiceID: req.RequiredServiceID,
		Notes:             req.Notes,
	}
	if err := s.repo.Create(ctx, enquiry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enquiry")
	}
	detail, err := s.repo.FindDetailByID(ctx, enquiry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry detail")
	}
	return detail, nil
}

// Update rewrites the enquiry's contact details.
func (s *EnquiryService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateEnquiryRequest) (*models.EnquiryDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enquiry payload")
	}
	enquiry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, enquiry); err != nil {
		return nil, err
	}

	enquiry.CandidateName = req.CandidateName
	enquiry.Phone = req.Phone
	enquiry.AltPhone = req.AltPhone
	enquiry.Email = req.Email
	enquiry.Address = req.Address
	enquiry.SourceID = req.SourceID
	enquiry.PreferredCourseID = req.PreferredCourseID
	enquiry.RequiredServiceID = req.RequiredServiceID
	enquiry.Notes = req.Notes
	enquiry.Feedback = req.Feedback

	if err := s.repo.Update(ctx, enquiry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enquiry")
	}
	s.invalidate(ctx, id)

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry detail")
	}
	return detail, nil
}

// UpdateStatus applies a status transition, appending exactly one audit row
// in the same transaction. Cached reads of the enquiry become stale and are
// invalidated after a successful commit.
func (s *EnquiryService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req UpdateStatusRequest) (*models.EnquiryDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	newStatus := models.EnquiryStatus(req.Status)
	if !newStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown enquiry status %q", req.Status))
	}
	return s.transition(ctx, actor, id, newStatus, models.ActivityStatusChange, req.Remarks)
}

// EnrollDirectly converts the enquiry to ENROLLED without an admission form.
// The audit row is tagged ENROLLMENT_DIRECT so reporting can tell direct
// conversions apart from admissions.
func (s *EnquiryService) EnrollDirectly(ctx context.Context, actor *models.JWTClaims, id string, req EnrollDirectRequest) (*models.EnquiryDetail, error) {
	return s.transition(ctx, actor, id, models.EnquiryStatusEnrolled, models.ActivityEnrollmentDirect, req.Remarks)
}

func (s *EnquiryService) transition(ctx context.Context, actor *models.JWTClaims, id string, newStatus models.EnquiryStatus, activityType models.ActivityType, remarks *string) (*models.EnquiryDetail, error) {
	enquiry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, enquiry); err != nil {
		return nil, err
	}

	prev, err := s.repo.UpdateStatusWithActivity(ctx, repository.StatusTransitionParams{
		EnquiryID: id,
		NewStatus: newStatus,
		Type:      activityType,
		Remarks:   remarks,
		ActorID:   actor.UserID,
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enquiry status")
	}
	s.logger.Info("enquiry status changed",
		zap.String("enquiry_id", id),
		zap.String("previous_status", string(prev)),
		zap.String("new_status", string(newStatus)),
		zap.String("actor_id", actor.UserID))
	s.metrics.RecordStatusTransition(string(newStatus))
	s.invalidate(ctx, id)

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry detail")
	}
	return detail, nil
}

func (s *EnquiryService) load(ctx context.Context, id string) (*models.Enquiry, error) {
	enquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	return enquiry, nil
}

func (s *EnquiryService) authorize(actor *models.JWTClaims, enquiry *models.Enquiry) error {
	return authorizeEnquiryAccess(actor, enquiry)
}

// authorizeEnquiryAccess enforces ownership and branch scoping. Telecallers
// may only touch enquiries assigned to them; executives only enquiries of
// their branch. Admins see everything.
func authorizeEnquiryAccess(actor *models.JWTClaims, enquiry *models.Enquiry) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleTelecaller:
		if enquiry.AssignedTo == nil || *enquiry.AssignedTo != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "enquiry is not assigned to you")
		}
	case models.RoleExecutive:
		if actor.BranchID != nil && *actor.BranchID != enquiry.BranchID {
			return appErrors.Clone(appErrors.ErrForbidden, "enquiry belongs to another branch")
		}
	}
	return nil
}

func (s *EnquiryService) invalidate(ctx context.Context, enquiryID string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateEnquiry(ctx, enquiryID)
}

func enquiryCacheKey(enquiryID, suffix string) string {
	return fmt.Sprintf("enquiry:%s:%s", enquiryID, suffix)
}
