package models

import "time"

// Expense is a branch-level outgoing payment.
type Expense struct {
	ID          string    `db:"id" json:"id"`
	BranchID    string    `db:"branch_id" json:"branch_id"`
	Category    string    `db:"category" json:"category"`
	Amount      float64   `db:"amount" json:"amount"`
	Description *string   `db:"description" json:"description,omitempty"`
	ExpenseDate time.Time `db:"expense_date" json:"expense_date"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExpenseFilter captures expense listing criteria.
type ExpenseFilter struct {
	BranchID string
	Category string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
