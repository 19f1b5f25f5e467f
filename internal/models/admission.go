package models

import "time"

// Admission is the formal enrollment record created when a candidate
// completes the admission process.
type Admission struct {
	ID            string    `db:"id" json:"id"`
	EnquiryID     string    `db:"enquiry_id" json:"enquiry_id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	BranchID      string    `db:"branch_id" json:"branch_id"`
	AdmissionDate time.Time `db:"admission_date" json:"admission_date"`
	TotalFee      float64   `db:"total_fee" json:"total_fee"`
	Discount      float64   `db:"discount" json:"discount"`
	Remarks       *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AdmissionDetail joins candidate and course names for listings.
type AdmissionDetail struct {
	Admission
	CandidateName *string `db:"candidate_name" json:"candidate_name,omitempty"`
	CourseName    *string `db:"course_name" json:"course_name,omitempty"`
	BranchName    *string `db:"branch_name" json:"branch_name,omitempty"`
}

// AdmissionFilter captures listing criteria.
type AdmissionFilter struct {
	BranchID string
	CourseID string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
