package models

import "time"

// EnquiryStatus is the pipeline status of an enquiry. The set is closed but
// the transition graph is flat: any status may move to any other.
type EnquiryStatus string

const (
	EnquiryStatusNew           EnquiryStatus = "NEW"
	EnquiryStatusContacted     EnquiryStatus = "CONTACTED"
	EnquiryStatusInterested    EnquiryStatus = "INTERESTED"
	EnquiryStatusNotInterested EnquiryStatus = "NOT_INTERESTED"
	EnquiryStatusFollowUp      EnquiryStatus = "FOLLOW_UP"
	EnquiryStatusEnrolled      EnquiryStatus = "ENROLLED"
	EnquiryStatusDropped       EnquiryStatus = "DROPPED"
	EnquiryStatusInvalid       EnquiryStatus = "INVALID"
)

// EnquiryStatuses lists every member of the status enum.
var EnquiryStatuses = []EnquiryStatus{
	EnquiryStatusNew,
	EnquiryStatusContacted,
	EnquiryStatusInterested,
	EnquiryStatusNotInterested,
	EnquiryStatusFollowUp,
	EnquiryStatusEnrolled,
	EnquiryStatusDropped,
	EnquiryStatusInvalid,
}

// Valid reports whether the status is a member of the enum.
func (s EnquiryStatus) Valid() bool {
	for _, known := range EnquiryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Enquiry is a prospective-student contact record tracked through the pipeline.
type Enquiry struct {
	ID                string        `db:"id" json:"id"`
	CandidateName     string        `db:"candidate_name" json:"candidate_name"`
	Phone             string        `db:"phone" json:"phone"`
	AltPhone          *string       `db:"alt_phone" json:"alt_phone,omitempty"`
	Email             *string       `db:"email" json:"email,omitempty"`
	Address           *string       `db:"address" json:"address,omitempty"`
	Status            EnquiryStatus `db:"status" json:"status"`
	AssignedTo        *string       `db:"assigned_to" json:"assigned_to,omitempty"`
	BranchID          string        `db:"branch_id" json:"branch_id"`
	SourceID          string        `db:"source_id" json:"source_id"`
	PreferredCourseID *string       `db:"preferred_course_id" json:"preferred_course_id,omitempty"`
	RequiredServiceID *string       `db:"required_service_id" json:"required_service_id,omitempty"`
	Notes             *string       `db:"notes" json:"notes,omitempty"`
	Feedback          *string       `db:"feedback" json:"feedback,omitempty"`
	LastContactDate   *time.Time    `db:"last_contact_date" json:"last_contact_date,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// EnquiryDetail joins display names onto the base record.
type EnquiryDetail struct {
	Enquiry
	BranchName     *string `db:"branch_name" json:"branch_name,omitempty"`
	SourceName     *string `db:"source_name" json:"source_name,omitempty"`
	CourseName     *string `db:"course_name" json:"course_name,omitempty"`
	ServiceName    *string `db:"service_name" json:"service_name,omitempty"`
	AssignedToName *string `db:"assigned_to_name" json:"assigned_to_name,omitempty"`
}

// EnquiryFilter captures listing criteria.
type EnquiryFilter struct {
	Status     EnquiryStatus
	BranchID   string
	SourceID   string
	AssignedTo string
	Search     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
