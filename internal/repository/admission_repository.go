package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// AdmissionRepository persists admission records.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

// ExistsForEnquiry reports whether an admission already exists for the enquiry.
func (r *AdmissionRepository) ExistsForEnquiry(ctx context.Context, enquiryID string) (bool, error) {
	const query = `SELECT 1 FROM admissions WHERE enquiry_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, enquiryID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission: %w", err)
	}
	return true, nil
}

// CreateWithEnrollment inserts the admission, moves the enquiry to ENROLLED
// and appends the STATUS_CHANGE audit row, all in one transaction.
func (r *AdmissionRepository) CreateWithEnrollment(ctx context.Context, admission *models.Admission) (err error) {
	if admission.ID == "" {
		admission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if admission.CreatedAt.IsZero() {
		admission.CreatedAt = now
	}
	if admission.AdmissionDate.IsZero() {
		admission.AdmissionDate = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var prev models.EnquiryStatus
	const selectQuery = `SELECT status FROM enquiries WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &prev, selectQuery, admission.EnquiryID); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock enquiry: %w", err)
	}

	const insertQuery = `INSERT INTO admissions (id, enquiry_id, course_id, branch_id, admission_date, total_fee, discount, remarks, created_by, created_at)
	VALUES (:id, :enquiry_id, :course_id, :branch_id, :admission_date, :total_fee, :discount, :remarks, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, admission); err != nil {
		return fmt.Errorf("create admission: %w", err)
	}

	const updateQuery = `UPDATE enquiries SET status = $2, last_contact_date = $3, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, admission.EnquiryID, models.EnquiryStatusEnrolled, now); err != nil {
		return fmt.Errorf("update enquiry status: %w", err)
	}

	newStatus := models.EnquiryStatusEnrolled
	title := fmt.Sprintf("Status changed from %s to %s", prev, newStatus)
	description := "Admission completed"
	activity := &models.EnquiryActivity{
		EnquiryID:      admission.EnquiryID,
		Type:           models.ActivityStatusChange,
		Title:          &title,
		Description:    &description,
		StatusRemarks:  admission.Remarks,
		PreviousStatus: &prev,
		NewStatus:      &newStatus,
		CreatedBy:      admission.CreatedBy,
		CreatedAt:      now,
	}
	if err = insertActivity(ctx, tx, activity); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit admission transaction: %w", err)
	}
	return nil
}

// List returns admissions with joined display names.
func (r *AdmissionRepository) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionDetail, int, error) {
	base := `FROM admissions a
LEFT JOIN enquiries e ON e.id = a.enquiry_id
LEFT JOIN courses c ON c.id = a.course_id
LEFT JOIN branches b ON b.id = a.branch_id`
	var conditions []string
	var args []interface{}

	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("a.branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("a.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("a.admission_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("a.admission_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.enquiry_id, a.course_id, a.branch_id, a.admission_date, a.total_fee, a.discount, a.remarks, a.created_by, a.created_at,
        e.candidate_name AS candidate_name, c.name AS course_name, b.name AS branch_name
        %s ORDER BY a.admission_date DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var admissions []models.AdmissionDetail
	if err := r.db.SelectContext(ctx, &admissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count admissions: %w", err)
	}
	return admissions, total, nil
}
