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
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/jobs"
)

type assignmentRepoStub struct {
	assignCalls     int
	createdJobs     []*models.AssignmentJob
	createdIDs      [][]string
	statusUpdates   []models.AssignmentJobStatus
	job             *models.AssignmentJob
	createJobErr    error
	findJobErr      error
	updateStatusErr error
}

func (s *assignmentRepoStub) Assign(ctx context.Context, enquiryIDs []string, userID, actorID string) error {
	s.assignCalls++
	return nil
}

func (s *assignmentRepoStub) CreateJobWithAssignments(ctx context.Context, job *models.AssignmentJob, enquiryIDs []string) error {
	if s.createJobErr != nil {
		return s.createJobErr
	}
	s.createdJobs = append(s.createdJobs, job)
	s.createdIDs = append(s.createdIDs, enquiryIDs)
	return nil
}

func (s *assignmentRepoStub) UpdateJobStatus(ctx context.Context, id string, status models.AssignmentJobStatus) error {
	if s.updateStatusErr != nil {
		return s.updateStatusErr
	}
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func (s *assignmentRepoStub) FindJobByID(ctx context.Context, id string) (*models.AssignmentJob, error) {
	if s.findJobErr != nil {
		return nil, s.findJobErr
	}
	if s.job == nil {
		return nil, sql.ErrNoRows
	}
	return s.job, nil
}

func (s *assignmentRepoStub) ListJobs(ctx context.Context, userID string) ([]models.AssignmentJob, error) {
	return nil, nil
}

type userReaderStub struct {
	users map[string]*models.User
}

func (s *userReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

type queueStub struct {
	enqueued []jobs.Job
	err      error
}

func (s *queueStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, job)
	return nil
}

func telecallerUsers() *userReaderStub {
	return &userReaderStub{users: map[string]*models.User{
		"caller-1": {ID: "caller-1", Role: models.RoleTelecaller, Active: true},
		"exec-1":   {ID: "exec-1", Role: models.RoleExecutive, Active: true},
	}}
}

func fixedAssignmentService(repo *assignmentRepoStub, queue *queueStub, now time.Time) *AssignmentService {
	svc := NewAssignmentService(repo, telecallerUsers(), queue, nil, nil, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAssignmentServiceCreateJob(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := &assignmentRepoStub{}
	queue := &queueStub{}
	svc := fixedAssignmentService(repo, queue, now)

	job, err := svc.CreateJob(context.Background(), adminClaims(), CreateAssignmentJobRequest{
		Name:       "March walk-ins",
		StartDate:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		UserID:     "caller-1",
		EnquiryIDs: []string{"enq-1", "enq-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentJobStatusPending, job.Status)
	assert.Equal(t, 2, job.EnquiryCount)
	assert.Equal(t, "admin-1", job.CreatedBy)

	require.Len(t, repo.createdIDs, 1)
	assert.Equal(t, []string{"enq-1", "enq-2"}, repo.createdIDs[0])
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, JobTypeAssignmentCreated, queue.enqueued[0].Type)
}

func TestAssignmentServiceRejectsPastStartDateBeforeAnyWrite(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := &assignmentRepoStub{}
	queue := &queueStub{}
	svc := fixedAssignmentService(repo, queue, now)

	_, err := svc.CreateJob(context.Background(), adminClaims(), CreateAssignmentJobRequest{
		Name:       "Backfill",
		StartDate:  time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), // yesterday
		EndDate:    time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		UserID:     "caller-1",
		EnquiryIDs: []string{"enq-1"},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.createdJobs)
	assert.Empty(t, queue.enqueued)
}

func TestAssignmentServiceRejectsEndBeforeStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := &assignmentRepoStub{}
	svc := fixedAssignmentService(repo, &queueStub{}, now)

	_, err := svc.CreateJob(context.Background(), adminClaims(), CreateAssignmentJobRequest{
		Name:       "Inverted",
		StartDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		UserID:     "caller-1",
		EnquiryIDs: []string{"enq-1"},
	})
	require.Error(t, err)
	assert.Empty(t, repo.createdJobs)
}

func TestAssignmentServiceRejectsMissingName(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := &assignmentRepoStub{}
	svc := fixedAssignmentService(repo, &queueStub{}, now)

	_, err := svc.CreateJob(context.Background(), adminClaims(), CreateAssignmentJobRequest{
		StartDate:  time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		UserID:     "caller-1",
		EnquiryIDs: []string{"enq-1"},
	})
	require.Error(t, err)
	assert.Empty(t, repo.createdJobs)
}

func TestAssignmentServiceRejectsNonTelecallerAssignee(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := &assignmentRepoStub{}
	svc := fixedAssignmentService(repo, &queueStub{}, now)

	err := svc.Assign(context.Background(), adminClaims(), AssignRequest{
		EnquiryIDs: []string{"enq-1"},
		UserID:     "exec-1",
	})
	require.Error(t, err)
	assert.Zero(t, repo.assignCalls)
}

func TestAssignmentServiceAssignInvalidatesCache(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	repo := &assignmentRepoStub{}
	cache := &enquiryCacheStub{}
	svc := NewAssignmentService(repo, telecallerUsers(), nil, cache, nil, nil)
	svc.now = func() time.Time { return now }

	err := svc.Assign(context.Background(), adminClaims(), AssignRequest{
		EnquiryIDs: []string{"enq-1", "enq-2"},
		UserID:     "caller-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.assignCalls)
	assert.Equal(t, []string{"enq-1", "enq-2"}, cache.invalidated)
}

func TestAssignmentServiceProcessJob(t *testing.T) {
	repo := &assignmentRepoStub{job: &models.AssignmentJob{
		ID:     "job-1",
		Status: models.AssignmentJobStatusPending,
	}}
	svc := NewAssignmentService(repo, telecallerUsers(), nil, nil, nil, nil)

	require.NoError(t, svc.ProcessJob(context.Background(), "job-1"))
	require.Len(t, repo.statusUpdates, 1)
	assert.Equal(t, models.AssignmentJobStatusProcessed, repo.statusUpdates[0])
}

func TestAssignmentServiceProcessJobSkipsResolved(t *testing.T) {
	repo := &assignmentRepoStub{job: &models.AssignmentJob{
		ID:     "job-1",
		Status: models.AssignmentJobStatusProcessed,
	}}
	svc := NewAssignmentService(repo, telecallerUsers(), nil, nil, nil, nil)

	require.NoError(t, svc.ProcessJob(context.Background(), "job-1"))
	assert.Empty(t, repo.statusUpdates)
}
