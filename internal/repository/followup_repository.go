package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// FollowUpRepository persists scheduled follow-ups.
type FollowUpRepository struct {
	db *sqlx.DB
}

// NewFollowUpRepository constructs the repository.
func NewFollowUpRepository(db *sqlx.DB) *FollowUpRepository {
	return &FollowUpRepository{db: db}
}

const followUpColumns = `id, enquiry_id, scheduled_at, status, notes, outcome, created_by, created_at, updated_at`

// Create persists a new pending follow-up.
func (r *FollowUpRepository) Create(ctx context.Context, followUp *models.FollowUp) error {
	if followUp.ID == "" {
		followUp.ID = uuid.NewString()
	}
	if followUp.Status == "" {
		followUp.Status = models.FollowUpStatusPending
	}
	now := time.Now().UTC()
	if followUp.CreatedAt.IsZero() {
		followUp.CreatedAt = now
	}
	followUp.UpdatedAt = now
	const query = `INSERT INTO follow_ups (id, enquiry_id, scheduled_at, status, notes, outcome, created_by, created_at, updated_at)
	VALUES (:id, :enquiry_id, :scheduled_at, :status, :notes, :outcome, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, followUp); err != nil {
		return fmt.Errorf("create follow-up: %w", err)
	}
	return nil
}

// FindByID returns a follow-up by its ID.
func (r *FollowUpRepository) FindByID(ctx context.Context, id string) (*models.FollowUp, error) {
	query := fmt.Sprintf(`SELECT %s FROM follow_ups WHERE id = $1`, followUpColumns)
	var followUp models.FollowUp
	if err := r.db.GetContext(ctx, &followUp, query, id); err != nil {
		return nil, err
	}
	return &followUp, nil
}

// ListByEnquiry returns all follow-ups for an enquiry, newest first.
func (r *FollowUpRepository) ListByEnquiry(ctx context.Context, enquiryID string) ([]models.FollowUp, error) {
	query := fmt.Sprintf(`SELECT %s FROM follow_ups WHERE enquiry_id = $1 ORDER BY created_at DESC`, followUpColumns)
	var followUps []models.FollowUp
	if err := r.db.SelectContext(ctx, &followUps, query, enquiryID); err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	return followUps, nil
}

// ListPendingByUser returns pending follow-ups assigned to a user's enquiries.
func (r *FollowUpRepository) ListPendingByUser(ctx context.Context, userID string) ([]models.FollowUp, error) {
	const query = `SELECT f.id, f.enquiry_id, f.scheduled_at, f.status, f.notes, f.outcome, f.created_by, f.created_at, f.updated_at
	FROM follow_ups f
	JOIN enquiries e ON e.id = f.enquiry_id
	WHERE e.assigned_to = $1 AND f.status = $2
	ORDER BY f.scheduled_at ASC`
	var followUps []models.FollowUp
	if err := r.db.SelectContext(ctx, &followUps, query, userID, models.FollowUpStatusPending); err != nil {
		return nil, fmt.Errorf("list pending follow-ups: %w", err)
	}
	return followUps, nil
}

// FollowUpUpdateParams carries an outcome or reschedule into the transaction.
type FollowUpUpdateParams struct {
	FollowUpID    string
	Status        models.FollowUpStatus
	Outcome       *string
	Notes         *string
	RescheduledAt *time.Time
	ActorID       string
}

// UpdateWithActivity updates a follow-up and appends a linked FOLLOW_UP audit
// row in one transaction. A reschedule mutates scheduled_at in place; the
// audit row's description keeps the prior schedule time so it is not lost.
func (r *FollowUpRepository) UpdateWithActivity(ctx context.Context, params FollowUpUpdateParams) (followUp *models.FollowUp, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin follow-up transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.FollowUp
	query := fmt.Sprintf(`SELECT %s FROM follow_ups WHERE id = $1 FOR UPDATE`, followUpColumns)
	if err = tx.GetContext(ctx, &current, query, params.FollowUpID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock follow-up: %w", err)
	}

	now := time.Now().UTC()
	scheduledAt := current.ScheduledAt
	if params.RescheduledAt != nil {
		scheduledAt = *params.RescheduledAt
	}
	// Notes written at creation survive an update that omits the field.
	notes := current.Notes
	if params.Notes != nil {
		notes = params.Notes
	}
	const updateQuery = `UPDATE follow_ups SET status = $2, outcome = $3, notes = $4, scheduled_at = $5, updated_at = $6 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, params.FollowUpID, params.Status, params.Outcome, notes, scheduledAt, now); err != nil {
		return nil, fmt.Errorf("update follow-up: %w", err)
	}

	var title string
	if params.RescheduledAt != nil {
		title = fmt.Sprintf("Follow-up rescheduled from %s to %s",
			current.ScheduledAt.Format(time.RFC3339), params.RescheduledAt.Format(time.RFC3339))
	} else {
		title = fmt.Sprintf("Follow-up marked %s", params.Status)
	}
	activity := &models.EnquiryActivity{
		EnquiryID:   current.EnquiryID,
		Type:        models.ActivityFollowUp,
		Title:       &title,
		Description: params.Outcome,
		FollowUpID:  &current.ID,
		CreatedBy:   params.ActorID,
		CreatedAt:   now,
	}
	if err = insertActivity(ctx, tx, activity); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit follow-up transaction: %w", err)
	}

	current.Status = params.Status
	current.Outcome = params.Outcome
	current.Notes = notes
	current.ScheduledAt = scheduledAt
	current.UpdatedAt = now
	return &current, nil
}
