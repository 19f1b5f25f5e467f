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
)

type billingRepoStub struct {
	invoice        *models.Invoice
	receipts       []*models.Receipt
	afterPayment   *models.Invoice
	createRctErr   error
	createdInvoice *models.Invoice
}

func (s *billingRepoStub) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	s.createdInvoice = invoice
	return nil
}

func (s *billingRepoStub) FindInvoiceByID(ctx context.Context, id string) (*models.Invoice, error) {
	if s.invoice == nil {
		return nil, sql.ErrNoRows
	}
	return s.invoice, nil
}

func (s *billingRepoStub) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	return nil, 0, nil
}

func (s *billingRepoStub) CreateReceipt(ctx context.Context, receipt *models.Receipt) (*models.Invoice, error) {
	if s.createRctErr != nil {
		return nil, s.createRctErr
	}
	s.receipts = append(s.receipts, receipt)
	return s.afterPayment, nil
}

func (s *billingRepoStub) ListReceiptsByInvoice(ctx context.Context, invoiceID string) ([]models.Receipt, error) {
	return nil, nil
}

type billingEnquiryStub struct {
	enquiry *models.Enquiry
}

func (s *billingEnquiryStub) FindByID(ctx context.Context, id string) (*models.Enquiry, error) {
	if s.enquiry == nil {
		return nil, sql.ErrNoRows
	}
	return s.enquiry, nil
}

func TestBillingServiceCreateInvoiceInheritsBranch(t *testing.T) {
	repo := &billingRepoStub{}
	enquiries := &billingEnquiryStub{enquiry: &models.Enquiry{ID: "enq-1", BranchID: "branch-7"}}
	svc := NewBillingService(repo, enquiries, nil, nil)

	invoice, err := svc.CreateInvoice(context.Background(), adminClaims(), CreateInvoiceRequest{
		EnquiryID: "enq-1",
		Amount:    15000,
	})
	require.NoError(t, err)
	assert.Equal(t, "branch-7", invoice.BranchID)
	assert.NotEmpty(t, invoice.Number)
	require.NotNil(t, repo.createdInvoice)
}

func TestBillingServiceRecordPayment(t *testing.T) {
	repo := &billingRepoStub{
		invoice: &models.Invoice{ID: "inv-1", Amount: 10000, PaidAmount: 4000, Status: models.InvoiceStatusPartiallyPaid},
		afterPayment: &models.Invoice{
			ID: "inv-1", Amount: 10000, PaidAmount: 10000, Status: models.InvoiceStatusPaid,
		},
	}
	svc := NewBillingService(repo, &billingEnquiryStub{}, nil, nil)

	result, err := svc.RecordPayment(context.Background(), adminClaims(), "inv-1", CreateReceiptRequest{
		Amount:      6000,
		PaymentMode: "CASH",
		PaidAt:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, result.Invoice.Status)
	require.Len(t, repo.receipts, 1)
	assert.Equal(t, 6000.0, repo.receipts[0].Amount)
	assert.Equal(t, "admin-1", repo.receipts[0].CreatedBy)
}

func TestBillingServiceRejectsOverpayment(t *testing.T) {
	repo := &billingRepoStub{
		invoice: &models.Invoice{ID: "inv-1", Amount: 10000, PaidAmount: 9000, Status: models.InvoiceStatusPartiallyPaid},
	}
	svc := NewBillingService(repo, &billingEnquiryStub{}, nil, nil)

	_, err := svc.RecordPayment(context.Background(), adminClaims(), "inv-1", CreateReceiptRequest{
		Amount:      2000,
		PaymentMode: "CASH",
		PaidAt:      time.Now(),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.receipts)
}

func TestBillingServiceRejectsPaymentOnCancelledInvoice(t *testing.T) {
	repo := &billingRepoStub{
		invoice: &models.Invoice{ID: "inv-1", Amount: 10000, Status: models.InvoiceStatusCancelled},
	}
	svc := NewBillingService(repo, &billingEnquiryStub{}, nil, nil)

	_, err := svc.RecordPayment(context.Background(), adminClaims(), "inv-1", CreateReceiptRequest{
		Amount:      1000,
		PaymentMode: "UPI",
		PaidAt:      time.Now(),
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Empty(t, repo.receipts)
}
