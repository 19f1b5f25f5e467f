package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// CallLogRepository persists completed call records.
type CallLogRepository struct {
	db *sqlx.DB
}

// NewCallLogRepository constructs the repository.
func NewCallLogRepository(db *sqlx.DB) *CallLogRepository {
	return &CallLogRepository{db: db}
}

const callLogColumns = `id, enquiry_id, call_date, duration_seconds, outcome, notes, created_by, created_at`

// CreateWithActivity inserts a call log and its linked CALL_LOG audit row in
// one transaction.
func (r *CallLogRepository) CreateWithActivity(ctx context.Context, callLog *models.CallLog) (err error) {
	if callLog.ID == "" {
		callLog.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if callLog.CreatedAt.IsZero() {
		callLog.CreatedAt = now
	}
	if callLog.CallDate.IsZero() {
		callLog.CallDate = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin call log transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `INSERT INTO call_logs (id, enquiry_id, call_date, duration_seconds, outcome, notes, created_by, created_at)
	VALUES (:id, :enquiry_id, :call_date, :duration_seconds, :outcome, :notes, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, callLog); err != nil {
		return fmt.Errorf("create call log: %w", err)
	}

	const touchQuery = `UPDATE enquiries SET last_contact_date = $2, updated_at = $2 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, touchQuery, callLog.EnquiryID, now); err != nil {
		return fmt.Errorf("touch enquiry contact date: %w", err)
	}

	title := "Call logged"
	activity := &models.EnquiryActivity{
		EnquiryID:   callLog.EnquiryID,
		Type:        models.ActivityCallLog,
		Title:       &title,
		Description: callLog.Outcome,
		CallLogID:   &callLog.ID,
		CreatedBy:   callLog.CreatedBy,
		CreatedAt:   now,
	}
	if err = insertActivity(ctx, tx, activity); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit call log transaction: %w", err)
	}
	return nil
}

// ListByEnquiry returns all call logs for an enquiry, newest first.
func (r *CallLogRepository) ListByEnquiry(ctx context.Context, enquiryID string) ([]models.CallLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM call_logs WHERE enquiry_id = $1 ORDER BY created_at DESC`, callLogColumns)
	var callLogs []models.CallLog
	if err := r.db.SelectContext(ctx, &callLogs, query, enquiryID); err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	return callLogs, nil
}
