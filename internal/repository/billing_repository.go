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

// BillingRepository persists invoices and receipts.
type BillingRepository struct {
	db *sqlx.DB
}

// NewBillingRepository constructs the repository.
func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

const invoiceColumns = `id, number, enquiry_id, admission_id, service_id, branch_id, amount, paid_amount, due_date, status, notes, created_by, created_at, updated_at`

// CreateInvoice persists a new invoice.
func (r *BillingRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusPending
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now
	const query = `INSERT INTO invoices (id, number, enquiry_id, admission_id, service_id, branch_id, amount, paid_amount, due_date, status, notes, created_by, created_at, updated_at)
	VALUES (:id, :number, :enquiry_id, :admission_id, :service_id, :branch_id, :amount, :paid_amount, :due_date, :status, :notes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// FindInvoiceByID returns an invoice by its ID.
func (r *BillingRepository) FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListInvoices returns invoices matching the filter, newest first.
func (r *BillingRepository) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	base := `FROM invoices`
	var conditions []string
	var args []interface{}

	if filter.EnquiryID != "" {
		conditions = append(conditions, fmt.Sprintf("enquiry_id = $%d", len(args)+1))
		args = append(args, filter.EnquiryID)
	}
	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", invoiceColumns, base+clause, size, offset)
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// CreateReceipt inserts the receipt and recomputes the invoice paid amount
// and status in one transaction. Returns the updated invoice.
func (r *BillingRepository) CreateReceipt(ctx context.Context, receipt *models.Receipt) (invoice *models.Invoice, err error) {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}
	if receipt.PaidAt.IsZero() {
		receipt.PaidAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin receipt transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Invoice
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 FOR UPDATE`, invoiceColumns)
	if err = tx.GetContext(ctx, &current, query, receipt.InvoiceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock invoice: %w", err)
	}

	const insertQuery = `INSERT INTO receipts (id, number, invoice_id, amount, payment_mode, paid_at, notes, created_by, created_at)
	VALUES (:id, :number, :invoice_id, :amount, :payment_mode, :paid_at, :notes, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, receipt); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	paid := current.PaidAmount + receipt.Amount
	status := models.InvoiceStatusPartiallyPaid
	if paid >= current.Amount {
		status = models.InvoiceStatusPaid
	}
	const updateQuery = `UPDATE invoices SET paid_amount = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, current.ID, paid, status, now); err != nil {
		return nil, fmt.Errorf("update invoice totals: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit receipt transaction: %w", err)
	}

	current.PaidAmount = paid
	current.Status = status
	current.UpdatedAt = now
	return &current, nil
}

// ListReceiptsByInvoice returns receipts recorded against an invoice.
func (r *BillingRepository) ListReceiptsByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error) {
	const query = `SELECT id, number, invoice_id, amount, payment_mode, paid_at, notes, created_by, created_at
	FROM receipts WHERE invoice_id = $1 ORDER BY paid_at DESC`
	var receipts []models.Receipt
	if err := r.db.SelectContext(ctx, &receipts, query, invoiceID); err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return receipts, nil
}
