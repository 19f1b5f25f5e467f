package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// ExpenseHandler exposes expense endpoints.
type ExpenseHandler struct {
	expenses *service.ExpenseService
}

// NewExpenseHandler constructs ExpenseHandler.
func NewExpenseHandler(expenses *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

// Create godoc
// @Summary Record a branch expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Param payload body service.ExpenseRequest true "Expense payload"
// @Success 201 {object} response.Envelope
// @Router /expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req service.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	expense, err := h.expenses.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// Get godoc
// @Summary Get an expense
// @Tags Expenses
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} response.Envelope
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) Get(c *gin.Context) {
	expense, err := h.expenses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// Update godoc
// @Summary Update an expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param payload body service.ExpenseRequest true "Expense payload"
// @Success 200 {object} response.Envelope
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	var req service.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	expense, err := h.expenses.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// Delete godoc
// @Summary Delete an expense
// @Tags Expenses
// @Param id path string true "Expense ID"
// @Success 204 {object} nil
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	if err := h.expenses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List expenses
// @Tags Expenses
// @Produce json
// @Param branchId query string false "Filter by branch"
// @Param category query string false "Filter by category"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /expenses [get]
func (h *ExpenseHandler) List(c *gin.Context) {
	var filter models.ExpenseFilter
	filter.BranchID = c.Query("branchId")
	filter.Category = c.Query("category")
	if from := c.Query("from"); from != "" {
		if ts, err := time.Parse("2006-01-02", from); err == nil {
			filter.From = &ts
		}
	}
	if to := c.Query("to"); to != "" {
		if ts, err := time.Parse("2006-01-02", to); err == nil {
			filter.To = &ts
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	expenses, pagination, err := h.expenses.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expenses, pagination)
}
