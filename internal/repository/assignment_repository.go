package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// AssignmentRepository persists enquiry ownership changes and bulk jobs.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Assign sets assigned_to on the given enquiries and appends one ASSIGNMENT
// audit row per enquiry, all in one transaction.
func (r *AssignmentRepository) Assign(ctx context.Context, enquiryIDs []string, userID, actorID string) (err error) {
	if len(enquiryIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = assignInTx(ctx, tx, enquiryIDs, userID, actorID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment transaction: %w", err)
	}
	return nil
}

// CreateJobWithAssignments inserts the job row and applies its assignments in
// one transaction. Nothing is written when any step fails.
func (r *AssignmentRepository) CreateJobWithAssignments(ctx context.Context, job *models.AssignmentJob, enquiryIDs []string) (err error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.AssignmentJobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.EnquiryCount = len(enquiryIDs)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment job transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO assignment_jobs
	(id, name, description, start_date, end_date, remarks, assigned_to, enquiry_count, status, created_by, created_at)
	VALUES (:id, :name, :description, :start_date, :end_date, :remarks, :assigned_to, :enquiry_count, :status, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, job); err != nil {
		return fmt.Errorf("create assignment job: %w", err)
	}

	if err = assignInTx(ctx, tx, enquiryIDs, job.AssignedTo, job.CreatedBy); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment job transaction: %w", err)
	}
	return nil
}

// UpdateJobStatus records post-processing state for a job.
func (r *AssignmentRepository) UpdateJobStatus(ctx context.Context, id string, status models.AssignmentJobStatus) error {
	const query = `UPDATE assignment_jobs SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update assignment job status: %w", err)
	}
	return nil
}

// FindJobByID returns a job by its ID.
func (r *AssignmentRepository) FindJobByID(ctx context.Context, id string) (*models.AssignmentJob, error) {
	const query = `SELECT id, name, description, start_date, end_date, remarks, assigned_to, enquiry_count, status, created_by, created_at
	FROM assignment_jobs WHERE id = $1`
	var job models.AssignmentJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns jobs for a user (or all when userID is empty), newest first.
func (r *AssignmentRepository) ListJobs(ctx context.Context, userID string) ([]models.AssignmentJob, error) {
	query := `SELECT id, name, description, start_date, end_date, remarks, assigned_to, enquiry_count, status, created_by, created_at
	FROM assignment_jobs`
	var args []interface{}
	if userID != "" {
		query += ` WHERE assigned_to = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`
	var jobs []models.AssignmentJob
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment jobs: %w", err)
	}
	return jobs, nil
}

func assignInTx(ctx context.Context, tx *sqlx.Tx, enquiryIDs []string, userID, actorID string) error {
	placeholders := make([]string, len(enquiryIDs))
	args := make([]interface{}, 0, len(enquiryIDs)+2)
	args = append(args, userID, time.Now().UTC())
	for i, id := range enquiryIDs {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE enquiries SET assigned_to = $1, updated_at = $2 WHERE id IN (%s)`, strings.Join(placeholders, ","))
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("assign enquiries: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && int(affected) != len(enquiryIDs) {
		return fmt.Errorf("assign enquiries: %d of %d found", affected, len(enquiryIDs))
	}

	title := "Enquiry assigned"
	for _, enquiryID := range enquiryIDs {
		activity := &models.EnquiryActivity{
			EnquiryID: enquiryID,
			Type:      models.ActivityAssignment,
			Title:     &title,
			CreatedBy: actorID,
		}
		if err := insertActivity(ctx, tx, activity); err != nil {
			return err
		}
	}
	return nil
}
