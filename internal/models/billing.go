package models

import "time"

// InvoiceStatus tracks how much of an invoice has been collected.
type InvoiceStatus string

const (
	InvoiceStatusPending       InvoiceStatus = "PENDING"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// Invoice bills a service or admission fee to an enquiry's candidate.
type Invoice struct {
	ID          string        `db:"id" json:"id"`
	Number      string        `db:"number" json:"number"`
	EnquiryID   string        `db:"enquiry_id" json:"enquiry_id"`
	AdmissionID *string       `db:"admission_id" json:"admission_id,omitempty"`
	ServiceID   *string       `db:"service_id" json:"service_id,omitempty"`
	BranchID    string        `db:"branch_id" json:"branch_id"`
	Amount      float64       `db:"amount" json:"amount"`
	PaidAmount  float64       `db:"paid_amount" json:"paid_amount"`
	DueDate     *time.Time    `db:"due_date" json:"due_date,omitempty"`
	Status      InvoiceStatus `db:"status" json:"status"`
	Notes       *string       `db:"notes" json:"notes,omitempty"`
	CreatedBy   string        `db:"created_by" json:"created_by"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Receipt records a payment collected against an invoice.
type Receipt struct {
	ID          string    `db:"id" json:"id"`
	Number      string    `db:"number" json:"number"`
	InvoiceID   string    `db:"invoice_id" json:"invoice_id"`
	Amount      float64   `db:"amount" json:"amount"`
	PaymentMode string    `db:"payment_mode" json:"payment_mode"`
	PaidAt      time.Time `db:"paid_at" json:"paid_at"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// InvoiceFilter captures invoice listing criteria.
type InvoiceFilter struct {
	EnquiryID string
	BranchID  string
	Status    InvoiceStatus
	Page      int
	PageSize  int
}
