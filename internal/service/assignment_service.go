package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/jobs"
)

// JobTypeAssignmentCreated labels post-commit work for a bulk assignment.
const JobTypeAssignmentCreated = "assignment.created"

type assignmentRepository interface {
	Assign(ctx context.Context, enquiryIDs []string, userID, actorID string) error
	CreateJobWithAssignments(ctx context.Context, job *models.AssignmentJob, enquiryIDs []string) error
	UpdateJobStatus(ctx context.Context, id string, status models.AssignmentJobStatus) error
	FindJobByID(ctx context.Context, id string) (*models.AssignmentJob, error)
	ListJobs(ctx context.Context, userID string) ([]models.AssignmentJob, error)
}

type assignmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type assignmentQueue interface {
	Enqueue(job jobs.Job) error
}

// AssignRequest reassigns enquiries to a telecaller without a task wrapper.
type AssignRequest struct {
	EnquiryIDs []string `json:"enquiry_ids" validate:"required,min=1,dive,required"`
	UserID     string   `json:"user_id" validate:"required"`
}

// CreateAssignmentJobRequest creates a named bulk-assignment task.
type CreateAssignmentJobRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description *string   `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Remarks     *string   `json:"remarks,omitempty"`
	UserID      string    `json:"user_id" validate:"required"`
	EnquiryIDs  []string  `json:"enquiry_ids" validate:"required,min=1,dive,required"`
}

// AssignmentService distributes enquiries across telecallers. Every request
// is validated in full before any enquiry row is touched; a failed validation
// leaves the database untouched.
type AssignmentService struct {
	repo      assignmentRepository
	users     assignmentUserReader
	queue     assignmentQueue
	cache     enquiryCache
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(repo assignmentRepository, users assignmentUserReader, queue assignmentQueue, cache enquiryCache, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, users: users, queue: queue, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Assign reassigns the enquiries to the target user. All rows move or none do.
func (s *AssignmentService) Assign(ctx context.Context, actor *models.JWTClaims, req AssignRequest) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if err := s.checkAssignee(ctx, req.UserID); err != nil {
		return err
	}

	if err := s.repo.Assign(ctx, req.EnquiryIDs, req.UserID, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign enquiries")
	}
	s.invalidate(ctx, req.EnquiryIDs)
	return nil
}

// CreateJob creates a named bulk-assignment task and moves the enquiries in
// one transaction. The date range is checked before any write: the start date
// may not lie in the past and must not come after the end date.
func (s *AssignmentService) CreateJob(ctx context.Context, actor *models.JWTClaims, req CreateAssignmentJobRequest) (*models.AssignmentJob, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment task payload")
	}

	today := s.today()
	start := req.StartDate.UTC().Truncate(24 * time.Hour)
	end := req.EndDate.UTC().Truncate(24 * time.Hour)
	if start.Before(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date may not be in the past")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date may not come before the start date")
	}
	if err := s.checkAssignee(ctx, req.UserID); err != nil {
		return nil, err
	}

	job := &models.AssignmentJob{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		StartDate:    start,
		EndDate:      end,
		Remarks:      req.Remarks,
		AssignedTo:   req.UserID,
		EnquiryCount: len(req.EnquiryIDs),
		Status:       models.AssignmentJobStatusPending,
		CreatedBy:    actor.UserID,
	}
	if err := s.repo.CreateJobWithAssignments(ctx, job, req.EnquiryIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment task")
	}
	s.invalidate(ctx, req.EnquiryIDs)

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeAssignmentCreated, Payload: job.ID}); err != nil {
			s.logger.Warn("failed to enqueue assignment post-processing", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return job, nil
}

// ProcessJob marks an assignment task processed. It runs on the background
// queue after the task's transaction has committed.
func (s *AssignmentService) ProcessJob(ctx context.Context, jobID string) error {
	job, err := s.repo.FindJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment task not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment task")
	}
	if job.Status != models.AssignmentJobStatusPending {
		return nil
	}
	if err := s.repo.UpdateJobStatus(ctx, jobID, models.AssignmentJobStatusProcessed); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment task")
	}
	s.logger.Info("assignment task processed", zap.String("job_id", jobID), zap.Int("enquiries", job.EnquiryCount))
	return nil
}

// GetJob returns a single assignment task.
func (s *AssignmentService) GetJob(ctx context.Context, id string) (*models.AssignmentJob, error) {
	job, err := s.repo.FindJobByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment task")
	}
	return job, nil
}

// ListJobs returns assignment tasks, optionally scoped to one assignee.
func (s *AssignmentService) ListJobs(ctx context.Context, userID string) ([]models.AssignmentJob, error) {
	jobsList, err := s.repo.ListJobs(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignment tasks")
	}
	return jobsList, nil
}

func (s *AssignmentService) checkAssignee(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "assignee does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee")
	}
	if !user.Active {
		return appErrors.Clone(appErrors.ErrValidation, "assignee account is inactive")
	}
	if user.Role != models.RoleTelecaller {
		return appErrors.Clone(appErrors.ErrValidation, "enquiries can only be assigned to telecallers")
	}
	return nil
}

func (s *AssignmentService) invalidate(ctx context.Context, enquiryIDs []string) {
	if s.cache == nil {
		return
	}
	for _, id := range enquiryIDs {
		s.cache.InvalidateEnquiry(ctx, id)
	}
}

func (s *AssignmentService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
