package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/middleware"
	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// EnquiryHandler exposes enquiry pipeline endpoints.
type EnquiryHandler struct {
	enquiries *service.EnquiryService
	timeline  *service.TimelineService
}

// NewEnquiryHandler constructs EnquiryHandler.
func NewEnquiryHandler(enquiries *service.EnquiryService, timeline *service.TimelineService) *EnquiryHandler {
	return &EnquiryHandler{enquiries: enquiries, timeline: timeline}
}

// List godoc
// @Summary List enquiries
// @Tags Enquiries
// @Produce json
// @Param status query string false "Filter by status"
// @Param branchId query string false "Filter by branch"
// @Param sourceId query string false "Filter by source"
// @Param assignedTo query string false "Filter by assigned telecaller"
// @Param search query string false "Search by name or phone"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enquiries [get]
func (h *EnquiryHandler) List(c *gin.Context) {
	filter, err := enquiryFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	enquiries, pagination, err := h.enquiries.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enquiries, pagination)
}

// Get godoc
// @Summary Get enquiry detail
// @Tags Enquiries
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id} [get]
func (h *EnquiryHandler) Get(c *gin.Context) {
	enquiry, cacheHit, err := h.enquiries.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, enquiry, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Register a new enquiry
// @Tags Enquiries
// @Accept json
// @Produce json
// @Param payload body service.CreateEnquiryRequest true "Enquiry payload"
// @Success 201 {object} response.Envelope
// @Router /enquiries [post]
func (h *EnquiryHandler) Create(c *gin.Context) {
	var req service.CreateEnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enquiry, err := h.enquiries.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enquiry)
}

// Update godoc
// @Summary Update enquiry contact details
// @Tags Enquiries
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body service.UpdateEnquiryRequest true "Enquiry payload"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id} [put]
func (h *EnquiryHandler) Update(c *gin.Context) {
	var req service.UpdateEnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enquiry, err := h.enquiries.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enquiry, nil)
}

// UpdateStatus godoc
// @Summary Transition enquiry status
// @Tags Enquiries
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body service.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/status [patch]
func (h *EnquiryHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enquiry, err := h.enquiries.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enquiry, nil)
}

// EnrollDirect godoc
// @Summary Enroll an enquiry directly without an admission form
// @Tags Enquiries
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body service.EnrollDirectRequest false "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/enroll-direct [post]
func (h *EnquiryHandler) EnrollDirect(c *gin.Context) {
	var req service.EnrollDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enquiry, err := h.enquiries.EnrollDirectly(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enquiry, nil)
}

// Timeline godoc
// @Summary Get the reconciled enquiry timeline
// @Tags Enquiries
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/timeline [get]
func (h *EnquiryHandler) Timeline(c *gin.Context) {
	id := c.Param("id")
	if _, _, err := h.enquiries.Get(c.Request.Context(), claimsFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	items, cacheHit, err := h.timeline.Build(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

func enquiryFilterFromQuery(c *gin.Context) (models.EnquiryFilter, error) {
	var filter models.EnquiryFilter
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.EnquiryStatus(raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown enquiry status %q", raw))
		}
		filter.Status = status
	}
	filter.BranchID = c.Query("branchId")
	filter.SourceID = c.Query("sourceId")
	filter.AssignedTo = c.Query("assignedTo")
	filter.Search = strings.TrimSpace(c.Query("search"))
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
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter, nil
}
