package models

import "time"

// StatusCount is one bucket of the enquiry status breakdown.
type StatusCount struct {
	Status EnquiryStatus `db:"status" json:"status"`
	Count  int           `db:"count" json:"count"`
}

// DashboardSummary aggregates pipeline and money figures for a period.
type DashboardSummary struct {
	TotalEnquiries  int           `json:"total_enquiries"`
	StatusBreakdown []StatusCount `json:"status_breakdown"`
	Admissions      int           `json:"admissions"`
	Collections     float64       `json:"collections"`
	Expenses        float64       `json:"expenses"`
	Net             float64       `json:"net"`
}

// ReportFilter scopes report aggregation by branch and period.
type ReportFilter struct {
	BranchID string
	From     *time.Time
	To       *time.Time
}

// ExportLink points at a generated export file with a signed download token.
type ExportLink struct {
	FileName  string    `json:"file_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
