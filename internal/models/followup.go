package models

import "time"

// FollowUpStatus is the lifecycle state of a scheduled contact.
type FollowUpStatus string

const (
	FollowUpStatusPending     FollowUpStatus = "PENDING"
	FollowUpStatusCompleted   FollowUpStatus = "COMPLETED"
	FollowUpStatusCancelled   FollowUpStatus = "CANCELLED"
	FollowUpStatusRescheduled FollowUpStatus = "RESCHEDULED"
)

// Valid reports whether the status is a member of the enum.
func (s FollowUpStatus) Valid() bool {
	switch s {
	case FollowUpStatusPending, FollowUpStatusCompleted, FollowUpStatusCancelled, FollowUpStatusRescheduled:
		return true
	}
	return false
}

// FollowUp is a scheduled future contact for an enquiry.
type FollowUp struct {
	ID          string         `db:"id" json:"id"`
	EnquiryID   string         `db:"enquiry_id" json:"enquiry_id"`
	ScheduledAt time.Time      `db:"scheduled_at" json:"scheduled_at"`
	Status      FollowUpStatus `db:"status" json:"status"`
	Notes       *string        `db:"notes" json:"notes,omitempty"`
	Outcome     *string        `db:"outcome" json:"outcome,omitempty"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}
