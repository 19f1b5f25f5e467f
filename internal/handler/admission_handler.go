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

// AdmissionHandler exposes admission endpoints.
type AdmissionHandler struct {
	admissions *service.AdmissionService
}

// NewAdmissionHandler constructs AdmissionHandler.
func NewAdmissionHandler(admissions *service.AdmissionService) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions}
}

// Create godoc
// @Summary Admit an enquiry's candidate
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body service.CreateAdmissionRequest true "Admission payload"
// @Success 201 {object} response.Envelope
// @Router /enquiries/{id}/admission [post]
func (h *AdmissionHandler) Create(c *gin.Context) {
	var req service.CreateAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	admission, err := h.admissions.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, admission)
}

// List godoc
// @Summary List admissions
// @Tags Admissions
// @Produce json
// @Param branchId query string false "Filter by branch"
// @Param courseId query string false "Filter by course"
// @Param from query string false "Admitted from (YYYY-MM-DD)"
// @Param to query string false "Admitted to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admissions [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	var filter models.AdmissionFilter
	filter.BranchID = c.Query("branchId")
	filter.CourseID = c.Query("courseId")
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

	admissions, pagination, err := h.admissions.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, admissions, pagination)
}
