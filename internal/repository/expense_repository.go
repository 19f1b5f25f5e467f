package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// ExpenseRepository persists branch expenses.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository constructs the repository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, branch_id, category, amount, description, expense_date, created_by, created_at, updated_at`

// Create persists a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	if expense.ExpenseDate.IsZero() {
		expense.ExpenseDate = now
	}
	expense.UpdatedAt = now
	const query = `INSERT INTO expenses (id, branch_id, category, amount, description, expense_date, created_by, created_at, updated_at)
	VALUES (:id, :branch_id, :category, :amount, :description, :expense_date, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// FindByID returns an expense by its ID.
func (r *ExpenseRepository) FindByID(ctx context.Context, id string) (*models.Expense, error) {
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE id = $1`, expenseColumns)
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, id); err != nil {
		return nil, err
	}
	return &expense, nil
}

// Update rewrites the mutable fields of an expense.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().UTC()
	const query = `UPDATE expenses SET category = :category, amount = :amount, description = :description,
	expense_date = :expense_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// Delete removes an expense.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM expenses WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// List returns expenses matching the filter, newest first.
func (r *ExpenseRepository) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	base := `FROM expenses`
	var conditions []string
	var args []interface{}

	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY expense_date DESC LIMIT %d OFFSET %d", expenseColumns, base+clause, size, offset)
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}
	return expenses, total, nil
}
