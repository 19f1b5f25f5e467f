package models

import "time"

// ActivityType tags an audit entry with the business event it captures.
type ActivityType string

const (
	ActivityStatusChange     ActivityType = "STATUS_CHANGE"
	ActivityFollowUp         ActivityType = "FOLLOW_UP"
	ActivityCallLog          ActivityType = "CALL_LOG"
	ActivityEnrollmentDirect ActivityType = "ENROLLMENT_DIRECT"
	ActivityAssignment       ActivityType = "ASSIGNMENT"
)

// EnquiryActivity is an immutable audit record. Rows are created exactly once
// per business event and never mutated or deleted afterwards.
type EnquiryActivity struct {
	ID             string         `db:"id" json:"id"`
	EnquiryID      string         `db:"enquiry_id" json:"enquiry_id"`
	Type           ActivityType   `db:"type" json:"type"`
	Title          *string        `db:"title" json:"title,omitempty"`
	Description    *string        `db:"description" json:"description,omitempty"`
	StatusRemarks  *string        `db:"status_remarks" json:"status_remarks,omitempty"`
	PreviousStatus *EnquiryStatus `db:"previous_status" json:"previous_status,omitempty"`
	NewStatus      *EnquiryStatus `db:"new_status" json:"new_status,omitempty"`
	FollowUpID     *string        `db:"follow_up_id" json:"follow_up_id,omitempty"`
	CallLogID      *string        `db:"call_log_id" json:"call_log_id,omitempty"`
	CreatedBy      string         `db:"created_by" json:"created_by"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
