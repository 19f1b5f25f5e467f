package models

import "time"

// CatalogKind enumerates the closed set of master-data entity kinds. Each
// kind has its own typed create/update contract in the catalog service.
type CatalogKind string

const (
	CatalogKindBranch  CatalogKind = "branch"
	CatalogKindSource  CatalogKind = "source"
	CatalogKindCourse  CatalogKind = "course"
	CatalogKindService CatalogKind = "service"
)

// Branch is an institute location.
type Branch struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EnquirySource is the channel an enquiry arrived through.
type EnquirySource struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Course is an offered study program.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	DurationMonths *int      `db:"duration_months" json:"duration_months,omitempty"`
	Fee            float64   `db:"fee" json:"fee"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Service is a billable auxiliary offering (counselling, documentation, ...).
type Service struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     float64   `db:"price" json:"price"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
