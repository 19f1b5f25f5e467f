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

// EnquiryRepository handles persistence of enquiries.
type EnquiryRepository struct {
	db *sqlx.DB
}

// NewEnquiryRepository constructs the repository.
func NewEnquiryRepository(db *sqlx.DB) *EnquiryRepository {
	return &EnquiryRepository{db: db}
}

const enquiryColumns = `e.id, e.candidate_name, e.phone, e.alt_phone, e.email, e.address, e.status,
	e.assigned_to, e.branch_id, e.source_id, e.preferred_course_id, e.required_service_id,
	e.notes, e.feedback, e.last_contact_date, e.created_at, e.updated_at`

// List returns enquiries filtered by the provided criteria.
func (r *EnquiryRepository) List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error) {
	base := `FROM enquiries e
LEFT JOIN branches b ON b.id = e.branch_id
LEFT JOIN enquiry_sources src ON src.id = e.source_id
LEFT JOIN courses c ON c.id = e.preferred_course_id
LEFT JOIN services sv ON sv.id = e.required_service_id
LEFT JOIN users u ON u.id = e.assigned_to`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("e.branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.SourceID != "" {
		conditions = append(conditions, fmt.Sprintf("e.source_id = $%d", len(args)+1))
		args = append(args, filter.SourceID)
	}
	if filter.AssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("e.assigned_to = $%d", len(args)+1))
		args = append(args, filter.AssignedTo)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(e.candidate_name ILIKE $%d OR e.phone ILIKE $%d OR e.email ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, pattern)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("e.created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("e.created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":     "e.created_at",
		"candidate_name": "e.candidate_name",
		"last_contact":   "e.last_contact_date",
		"status":         "e.status",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT %s,
        b.name AS branch_name, src.name AS source_name, c.name AS course_name, sv.name AS service_name, u.full_name AS assigned_to_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enquiryColumns, base+clause, orderBy, order, size, offset)

	var enquiries []models.EnquiryDetail
	if err := r.db.SelectContext(ctx, &enquiries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enquiries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enquiries: %w", err)
	}
	return enquiries, total, nil
}

// FindByID returns an enquiry by its ID.
func (r *EnquiryRepository) FindByID(ctx context.Context, id string) (*models.Enquiry, error) {
	query := fmt.Sprintf(`SELECT %s FROM enquiries e WHERE e.id = $1`, enquiryColumns)
	var enquiry models.Enquiry
	if err := r.db.GetContext(ctx, &enquiry, query, id); err != nil {
		return nil, err
	}
	return &enquiry, nil
}

// FindDetailByID returns an enquiry with joined display names.
func (r *EnquiryRepository) FindDetailByID(ctx context.Context, id string) (*models.EnquiryDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        b.name AS branch_name, src.name AS source_name, c.name AS course_name, sv.name AS service_name, u.full_name AS assigned_to_name
        FROM enquiries e
        LEFT JOIN branches b ON b.id = e.branch_id
        LEFT JOIN enquiry_sources src ON src.id = e.source_id
        LEFT JOIN courses c ON c.id = e.preferred_course_id
        LEFT JOIN services sv ON sv.id = e.required_service_id
        LEFT JOIN users u ON u.id = e.assigned_to
        WHERE e.id = $1`, enquiryColumns)
	var detail models.EnquiryDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new enquiry record.
func (r *EnquiryRepository) Create(ctx context.Context, enquiry *models.Enquiry) error {
	if enquiry.ID == "" {
		enquiry.ID = uuid.NewString()
	}
	if enquiry.Status == "" {
		enquiry.Status = models.EnquiryStatusNew
	}
	now := time.Now().UTC()
	if enquiry.CreatedAt.IsZero() {
		enquiry.CreatedAt = now
	}
	enquiry.UpdatedAt = now
	const query = `INSERT INTO enquiries
	(id, candidate_name, phone, alt_phone, email, address, status, assigned_to, branch_id, source_id,
	 preferred_course_id, required_service_id, notes, feedback, last_contact_date, created_at, updated_at)
	VALUES (:id, :candidate_name, :phone, :alt_phone, :email, :address, :status, :assigned_to, :branch_id, :source_id,
	 :preferred_course_id, :required_service_id, :notes, :feedback, :last_contact_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enquiry); err != nil {
		return fmt.Errorf("create enquiry: %w", err)
	}
	return nil
}

// Update rewrites the mutable contact fields of an enquiry.
func (r *EnquiryRepository) Update(ctx context.Context, enquiry *models.Enquiry) error {
	enquiry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enquiries SET candidate_name = :candidate_name, phone = :phone, alt_phone = :alt_phone,
	email = :email, address = :address, source_id = :source_id, preferred_course_id = :preferred_course_id,
	required_service_id = :required_service_id, notes = :notes, feedback = :feedback, updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, enquiry); err != nil {
		return fmt.Errorf("update enquiry: %w", err)
	}
	return nil
}

// StatusTransitionParams carries a status change request into the transaction.
type StatusTransitionParams struct {
	EnquiryID string
	NewStatus models.EnquiryStatus
	Type      models.ActivityType
	Remarks   *string
	ActorID   string
}

// UpdateStatusWithActivity applies a status transition and appends its audit
// row in one transaction. The status write and the activity insert both
// succeed or both roll back. Returns the status the enquiry held before.
func (r *EnquiryRepository) UpdateStatusWithActivity(ctx context.Context, params StatusTransitionParams) (prev models.EnquiryStatus, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin status transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const selectQuery = `SELECT status FROM enquiries WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &prev, selectQuery, params.EnquiryID); err != nil {
		if err == sql.ErrNoRows {
			return "", sql.ErrNoRows
		}
		return "", fmt.Errorf("lock enquiry: %w", err)
	}

	now := time.Now().UTC()
	const updateQuery = `UPDATE enquiries SET status = $2, last_contact_date = $3, updated_at = $3 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, params.EnquiryID, params.NewStatus, now); err != nil {
		return "", fmt.Errorf("update enquiry status: %w", err)
	}

	activity := &models.EnquiryActivity{
		EnquiryID:      params.EnquiryID,
		Type:           params.Type,
		StatusRemarks:  params.Remarks,
		PreviousStatus: &prev,
		NewStatus:      &params.NewStatus,
		CreatedBy:      params.ActorID,
		CreatedAt:      now,
	}
	switch params.Type {
	case models.ActivityEnrollmentDirect:
		description := "Direct enrollment completed without admission form"
		if params.Remarks != nil && *params.Remarks != "" {
			description = *params.Remarks
		}
		activity.Description = &description
	default:
		title := fmt.Sprintf("Status changed from %s to %s", prev, params.NewStatus)
		activity.Title = &title
	}
	if err = insertActivity(ctx, tx, activity); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit status transaction: %w", err)
	}
	return prev, nil
}
