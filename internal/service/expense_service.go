package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
)

type expenseRepository interface {
	Create(ctx context.Context, expense *models.Expense) error
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error)
}

// ExpenseRequest creates or updates a branch expense.
type ExpenseRequest struct {
	BranchID    string    `json:"branch_id" validate:"required"`
	Category    string    `json:"category" validate:"required"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	Description *string   `json:"description,omitempty"`
	ExpenseDate time.Time `json:"expense_date" validate:"required"`
}

// ExpenseService manages branch-level outgoing payments.
type ExpenseService struct {
	repo      expenseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExpenseService constructs ExpenseService.
func NewExpenseService(repo expenseRepository, validate *validator.Validate, logger *zap.Logger) *ExpenseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseService{repo: repo, validator: validate, logger: logger}
}

// Create records a new expense.
func (s *ExpenseService) Create(ctx context.Context, actor *models.JWTClaims, req ExpenseRequest) (*models.Expense, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	expense := &models.Expense{
		BranchID:    req.BranchID,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		ExpenseDate: req.ExpenseDate.UTC(),
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense")
	}
	return expense, nil
}

// Get returns one expense.
func (s *ExpenseService) Get(ctx context.Context, id string) (*models.Expense, error) {
	expense, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}
	return expense, nil
}

// Update rewrites an existing expense.
func (s *ExpenseService) Update(ctx context.Context, actor *models.JWTClaims, id string, req ExpenseRequest) (*models.Expense, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	expense, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expense.BranchID = req.BranchID
	expense.Category = req.Category
	expense.Amount = req.Amount
	expense.Description = req.Description
	expense.ExpenseDate = req.ExpenseDate.UTC()
	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update expense")
	}
	return expense, nil
}

// Delete removes an expense record.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete expense")
	}
	return nil
}

// List returns expenses matching the filter.
func (s *ExpenseService) List(ctx context.Context, actor *models.JWTClaims, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleExecutive && actor.BranchID != nil {
		filter.BranchID = *actor.BranchID
	}
	expenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expenses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return expenses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
