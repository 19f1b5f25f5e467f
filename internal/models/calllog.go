package models

import "time"

// CallLog records a completed phone interaction. Immutable after creation.
type CallLog struct {
	ID        string    `db:"id" json:"id"`
	EnquiryID string    `db:"enquiry_id" json:"enquiry_id"`
	CallDate  time.Time `db:"call_date" json:"call_date"`
	Duration  *int      `db:"duration_seconds" json:"duration_seconds,omitempty"`
	Outcome   *string   `db:"outcome" json:"outcome,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
