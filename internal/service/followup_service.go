package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/repository"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type followUpRepository interface {
	Create(ctx context.Context, followUp *models.FollowUp) error
	FindByID(ctx context.Context, id string) (*models.FollowUp, error)
	ListByEnquiry(ctx context.Context, enquiryID string) ([]models.FollowUp, error)
	ListPendingByUser(ctx context.Context, userID string) ([]models.FollowUp, error)
	UpdateWithActivity(ctx context.Context, params repository.FollowUpUpdateParams) (*models.FollowUp, error)
}

type followUpEnquiryReader interface {
	FindByID(ctx context.Context, id string) (*models.Enquiry, error)
}

// CreateFollowUpRequest schedules a future contact.
type CreateFollowUpRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       *string   `json:"notes,omitempty"`
}

// ResolveFollowUpRequest completes, cancels or reschedules a follow-up.
type ResolveFollowUpRequest struct {
	Status        string     `json:"status" validate:"required"`
	Outcome       *string    `json:"outcome,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	RescheduledAt *time.Time `json:"rescheduled_at,omitempty"`
}

// FollowUpService manages scheduled contacts for enquiries.
type FollowUpService struct {
	repo      followUpRepository
	enquiries followUpEnquiryReader
	cache     enquiryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFollowUpService constructs FollowUpService.
func NewFollowUpService(repo followUpRepository, enquiries followUpEnquiryReader, cache enquiryCache, validate *validator.Validate, logger *zap.Logger) *FollowUpService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowUpService{repo: repo, enquiries: enquiries, cache: cache, validator: validate, logger: logger}
}

// Create schedules a follow-up for the enquiry with status PENDING.
func (s *FollowUpService) Create(ctx context.Context, actor *models.JWTClaims, enquiryID string, req CreateFollowUpRequest) (*models.FollowUp, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid follow-up payload")
	}
	if err := s.authorizeEnquiry(ctx, actor, enquiryID); err != nil {
		return nil, err
	}

	followUp := &models.FollowUp{
		EnquiryID:   enquiryID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Notes:       req.Notes,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, followUp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create follow-up")
	}
	s.invalidate(ctx, enquiryID)
	return followUp, nil
}

// Resolve transitions a pending follow-up and appends the linked activity in
// the same transaction. Rescheduling moves the scheduled time in place; the
// prior time is preserved in the activity text.
func (s *FollowUpService) Resolve(ctx context.Context, actor *models.JWTClaims, followUpID string, req ResolveFollowUpRequest) (*models.FollowUp, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid follow-up payload")
	}
	status := models.FollowUpStatus(req.Status)
	if !status.Valid() || status == models.FollowUpStatusPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot resolve follow-up to status %q", req.Status))
	}
	if status == models.FollowUpStatusRescheduled && req.RescheduledAt == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rescheduled_at is required when rescheduling")
	}

	existing, err := s.repo.FindByID(ctx, followUpID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "follow-up not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load follow-up")
	}
	if existing.Status != models.FollowUpStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "follow-up is already resolved")
	}
	if err := s.authorizeEnquiry(ctx, actor, existing.EnquiryID); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateWithActivity(ctx, repository.FollowUpUpdateParams{
		FollowUpID:    followUpID,
		Status:        status,
		Outcome:       req.Outcome,
		Notes:         req.Notes,
		RescheduledAt: req.RescheduledAt,
		ActorID:       actor.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "follow-up not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve follow-up")
	}
	s.invalidate(ctx, existing.EnquiryID)
	return updated, nil
}

// ListByEnquiry returns follow-ups for an enquiry, newest first.
func (s *FollowUpService) ListByEnquiry(ctx context.Context, actor *models.JWTClaims, enquiryID string) ([]models.FollowUp, error) {
	if err := s.authorizeEnquiry(ctx, actor, enquiryID); err != nil {
		return nil, err
	}
	followUps, err := s.repo.ListByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list follow-ups")
	}
	return followUps, nil
}

// ListPending returns the actor's pending follow-ups ordered by schedule.
func (s *FollowUpService) ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.FollowUp, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	followUps, err := s.repo.ListPendingByUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending follow-ups")
	}
	return followUps, nil
}

func (s *FollowUpService) authorizeEnquiry(ctx context.Context, actor *models.JWTClaims, enquiryID string) error {
	enquiry, err := s.enquiries.FindByID(ctx, enquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	return authorizeEnquiryAccess(actor, enquiry)
}

func (s *FollowUpService) invalidate(ctx context.Context, enquiryID string) {
	if s.cache != nil {
		s.cache.InvalidateEnquiry(ctx, enquiryID)
	}
}
