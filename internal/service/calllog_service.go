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

type callLogRepository interface {
	CreateWithActivity(ctx context.Context, callLog *models.CallLog) error
	ListByEnquiry(ctx context.Context, enquiryID string) ([]models.CallLog, error)
}

// CreateCallLogRequest records a completed call.
type CreateCallLogRequest struct {
	CallDate time.Time `json:"call_date" validate:"required"`
	Duration *int      `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
	Outcome  *string   `json:"outcome,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
}

// CallLogService records phone interactions against enquiries. Call logs are
// immutable after creation.
type CallLogService struct {
	repo      callLogRepository
	enquiries followUpEnquiryReader
	cache     enquiryCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCallLogService constructs CallLogService.
func NewCallLogService(repo callLogRepository, enquiries followUpEnquiryReader, cache enquiryCache, validate *validator.Validate, logger *zap.Logger) *CallLogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallLogService{repo: repo, enquiries: enquiries, cache: cache, validator: validate, logger: logger}
}

// Create persists the call log plus its linked activity, and refreshes the
// enquiry's last contact date, all in one transaction.
func (s *CallLogService) Create(ctx context.Context, actor *models.JWTClaims, enquiryID string, req CreateCallLogRequest) (*models.CallLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid call log payload")
	}
	if err := s.authorizeEnquiry(ctx, actor, enquiryID); err != nil {
		return nil, err
	}

	callLog := &models.CallLog{
		EnquiryID: enquiryID,
		CallDate:  req.CallDate.UTC(),
		Duration:  req.Duration,
		Outcome:   req.Outcome,
		Notes:     req.Notes,
		CreatedBy: actor.UserID,
	}
	if err := s.repo.CreateWithActivity(ctx, callLog); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record call")
	}
	if s.cache != nil {
		s.cache.InvalidateEnquiry(ctx, enquiryID)
	}
	return callLog, nil
}

// ListByEnquiry returns the enquiry's call history, newest first.
func (s *CallLogService) ListByEnquiry(ctx context.Context, actor *models.JWTClaims, enquiryID string) ([]models.CallLog, error) {
	if err := s.authorizeEnquiry(ctx, actor, enquiryID); err != nil {
		return nil, err
	}
	callLogs, err := s.repo.ListByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list call logs")
	}
	return callLogs, nil
}

func (s *CallLogService) authorizeEnquiry(ctx context.Context, actor *models.JWTClaims, enquiryID string) error {
	enquiry, err := s.enquiries.FindByID(ctx, enquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}
	return authorizeEnquiryAccess(actor, enquiry)
}
