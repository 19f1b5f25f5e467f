package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// ActivityRepository reads the append-only enquiry audit log.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, enquiry_id, type, title, description, status_remarks,
	previous_status, new_status, follow_up_id, call_log_id, created_by, created_at`

// ListByEnquiry returns every activity row for an enquiry, newest first.
func (r *ActivityRepository) ListByEnquiry(ctx context.Context, enquiryID string) ([]models.EnquiryActivity, error) {
	query := fmt.Sprintf(`SELECT %s FROM enquiry_activities WHERE enquiry_id = $1 ORDER BY created_at DESC`, activityColumns)
	var activities []models.EnquiryActivity
	if err := r.db.SelectContext(ctx, &activities, query, enquiryID); err != nil {
		return nil, fmt.Errorf("list enquiry activities: %w", err)
	}
	return activities, nil
}

// insertActivity appends one audit row inside an open transaction. Every
// repository that mutates enquiry state goes through this helper so the log
// stays in the same transaction as the write it describes.
func insertActivity(ctx context.Context, tx *sqlx.Tx, activity *models.EnquiryActivity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enquiry_activities
	(id, enquiry_id, type, title, description, status_remarks, previous_status, new_status, follow_up_id, call_log_id, created_by, created_at)
	VALUES (:id, :enquiry_id, :type, :title, :description, :status_remarks, :previous_status, :new_status, :follow_up_id, :call_log_id, :created_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("insert enquiry activity: %w", err)
	}
	return nil
}
