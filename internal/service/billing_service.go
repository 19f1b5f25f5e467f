package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type billingRepository interface {
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error)
	CreateReceipt(ctx context.Context, receipt *models.Receipt) (*models.Invoice, error)
	ListReceiptsByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error)
}

// CreateInvoiceRequest bills an enquiry.
type CreateInvoiceRequest struct {
	EnquiryID   string     `json:"enquiry_id" validate:"required"`
	AdmissionID *string    `json:"admission_id,omitempty"`
	ServiceID   *string    `json:"service_id,omitempty"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// CreateReceiptRequest records a collection against an invoice.
type CreateReceiptRequest struct {
	Amount      float64   `json:"amount" validate:"gt=0"`
	PaymentMode string    `json:"payment_mode" validate:"required"`
	PaidAt      time.Time `json:"paid_at" validate:"required"`
	Notes       *string   `json:"notes,omitempty"`
}

// ReceiptResult pairs the created receipt with the invoice state after the
// payment was applied.
type ReceiptResult struct {
	Receipt *models.Receipt `json:"receipt"`
	Invoice *models.Invoice `json:"invoice"`
}

// BillingService raises invoices and applies collections. Applying a receipt
// and rolling the invoice balance forward happen in one transaction, so the
// paid amount and the status can never drift apart.
type BillingService struct {
	repo      billingRepository
	enquiries followUpEnquiryReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBillingService constructs BillingService.
func NewBillingService(repo billingRepository, enquiries followUpEnquiryReader, validate *validator.Validate, logger *zap.Logger) *BillingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{repo: repo, enquiries: enquiries, validator: validate, logger: logger}
}

// CreateInvoice raises an invoice against the enquiry's candidate.
func (s *BillingService) CreateInvoice(ctx context.Context, actor *models.JWTClaims, req CreateInvoiceRequest) (*models.Invoice, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}

	enquiry, err := s.enquiries.FindByID(ctx, req.EnquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enquiry")
	}

	invoice := &models.Invoice{
		ID:          uuid.NewString(),
		Number:      invoiceNumber(time.Now().UTC()),
		EnquiryID:   req.EnquiryID,
		AdmissionID: req.AdmissionID,
		ServiceID:   req.ServiceID,
		BranchID:    enquiry.BranchID,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Notes:       req.Notes,
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
	}
	return invoice, nil
}

// GetInvoice returns one invoice with its receipts.
func (s *BillingService) GetInvoice(ctx context.Context, id string) (*models.Invoice, []models.Receipt, error) {
	invoice, err := s.repo.FindInvoiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	receipts, err := s.repo.ListReceiptsByInvoice(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipts")
	}
	return invoice, receipts, nil
}

// ListInvoices returns invoices matching the filter.
func (s *BillingService) ListInvoices(ctx context.Context, actor *models.JWTClaims, filter models.InvoiceFilter) ([]models.Invoice, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleExecutive && actor.BranchID != nil {
		filter.BranchID = *actor.BranchID
	}
	invoices, total, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// RecordPayment applies a receipt to the invoice. Overpayment is rejected,
// as are payments against cancelled invoices.
func (s *BillingService) RecordPayment(ctx context.Context, actor *models.JWTClaims, invoiceID string, req CreateReceiptRequest) (*ReceiptResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}

	invoice, err := s.repo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "invoice is cancelled")
	}
	if invoice.PaidAmount+req.Amount > invoice.Amount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment exceeds the outstanding balance")
	}

	receipt := &models.Receipt{
		ID:          uuid.NewString(),
		Number:      receiptNumber(time.Now().UTC()),
		InvoiceID:   invoiceID,
		Amount:      req.Amount,
		PaymentMode: req.PaymentMode,
		PaidAt:      req.PaidAt.UTC(),
		Notes:       req.Notes,
		CreatedBy:   actor.UserID,
	}
	updated, err := s.repo.CreateReceipt(ctx, receipt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("invoice_id", invoiceID),
		zap.String("receipt_id", receipt.ID),
		zap.Float64("amount", req.Amount),
		zap.String("status", string(updated.Status)))
	return &ReceiptResult{Receipt: receipt, Invoice: updated}, nil
}

func invoiceNumber(ts time.Time) string {
	return fmt.Sprintf("INV-%s-%s", ts.Format("20060102"), shortRef())
}

func receiptNumber(ts time.Time) string {
	return fmt.Sprintf("RCT-%s-%s", ts.Format("20060102"), shortRef())
}

func shortRef() string {
	id := uuid.NewString()
	return id[:8]
}
