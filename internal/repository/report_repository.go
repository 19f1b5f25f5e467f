package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

// ReportRepository runs read-only aggregation queries for dashboards.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StatusCounts groups enquiries by status for the period.
func (r *ReportRepository) StatusCounts(ctx context.Context, filter models.ReportFilter) ([]models.StatusCount, error) {
	query := `SELECT status, COUNT(*) AS count FROM enquiries`
	clause, args := reportConditions(filter, "branch_id", "created_at")
	query += clause + ` GROUP BY status ORDER BY status ASC`

	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count enquiries by status: %w", err)
	}
	return counts, nil
}

// AdmissionCount counts admissions in the period.
func (r *ReportRepository) AdmissionCount(ctx context.Context, filter models.ReportFilter) (int, error) {
	query := `SELECT COUNT(*) FROM admissions`
	clause, args := reportConditions(filter, "branch_id", "admission_date")
	query += clause

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count admissions: %w", err)
	}
	return count, nil
}

// CollectionsTotal sums receipt amounts for invoices in the period.
func (r *ReportRepository) CollectionsTotal(ctx context.Context, filter models.ReportFilter) (float64, error) {
	query := `SELECT COALESCE(SUM(rc.amount), 0) FROM receipts rc JOIN invoices iv ON iv.id = rc.invoice_id`
	var conditions []string
	var args []interface{}
	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("iv.branch_id = $%d", len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("rc.paid_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("rc.paid_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var total sql.NullFloat64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("sum collections: %w", err)
	}
	return total.Float64, nil
}

// ExpensesTotal sums expense amounts for the period.
func (r *ReportRepository) ExpensesTotal(ctx context.Context, filter models.ReportFilter) (float64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM expenses`
	clause, args := reportConditions(filter, "branch_id", "expense_date")
	query += clause

	var total sql.NullFloat64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total.Float64, nil
}

func reportConditions(filter models.ReportFilter, branchColumn, dateColumn string) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.BranchID != "" {
		conditions = append(conditions, fmt.Sprintf("%s = $%d", branchColumn, len(args)+1))
		args = append(args, filter.BranchID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", dateColumn, len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", dateColumn, len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
