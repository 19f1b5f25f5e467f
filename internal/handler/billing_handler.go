package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// BillingHandler exposes invoice and receipt endpoints.
type BillingHandler struct {
	billing *service.BillingService
}

// NewBillingHandler constructs BillingHandler.
func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// CreateInvoice godoc
// @Summary Raise an invoice
// @Tags Billing
// @Accept json
// @Produce json
// @Param payload body service.CreateInvoiceRequest true "Invoice payload"
// @Success 201 {object} response.Envelope
// @Router /invoices [post]
func (h *BillingHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.billing.CreateInvoice(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// GetInvoice godoc
// @Summary Get an invoice with its receipts
// @Tags Billing
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Router /invoices/{id} [get]
func (h *BillingHandler) GetInvoice(c *gin.Context) {
	invoice, receipts, err := h.billing.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"invoice": invoice, "receipts": receipts}, nil)
}

// ListInvoices godoc
// @Summary List invoices
// @Tags Billing
// @Produce json
// @Param enquiryId query string false "Filter by enquiry"
// @Param branchId query string false "Filter by branch"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /invoices [get]
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	var filter models.InvoiceFilter
	filter.EnquiryID = c.Query("enquiryId")
	filter.BranchID = c.Query("branchId")
	filter.Status = models.InvoiceStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	invoices, pagination, err := h.billing.ListInvoices(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// RecordPayment godoc
// @Summary Record a payment against an invoice
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body service.CreateReceiptRequest true "Receipt payload"
// @Success 201 {object} response.Envelope
// @Router /invoices/{id}/receipts [post]
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	var req service.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.billing.RecordPayment(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
