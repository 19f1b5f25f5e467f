package models

import "time"

// AssignmentJobStatus tracks post-commit processing of a bulk assignment.
type AssignmentJobStatus string

const (
	AssignmentJobStatusPending   AssignmentJobStatus = "PENDING"
	AssignmentJobStatusProcessed AssignmentJobStatus = "PROCESSED"
	AssignmentJobStatusFailed    AssignmentJobStatus = "FAILED"
)

// AssignmentJob groups a bulk telecaller assignment under a named task with
// a working date range.
type AssignmentJob struct {
	ID           string              `db:"id" json:"id"`
	Name         string              `db:"name" json:"name"`
	Description  *string             `db:"description" json:"description,omitempty"`
	StartDate    time.Time           `db:"start_date" json:"start_date"`
	EndDate      time.Time           `db:"end_date" json:"end_date"`
	Remarks      *string             `db:"remarks" json:"remarks,omitempty"`
	AssignedTo   string              `db:"assigned_to" json:"assigned_to"`
	EnquiryCount int                 `db:"enquiry_count" json:"enquiry_count"`
	Status       AssignmentJobStatus `db:"status" json:"status"`
	CreatedBy    string              `db:"created_by" json:"created_by"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}
