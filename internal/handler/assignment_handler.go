package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// AssignmentHandler exposes bulk assignment endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Assign godoc
// @Summary Assign enquiries to a telecaller
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignRequest true "Assignment payload"
// @Success 204 {object} nil
// @Router /assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.assignments.Assign(c.Request.Context(), claimsFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateJob godoc
// @Summary Create a named bulk-assignment task
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.CreateAssignmentJobRequest true "Task payload"
// @Success 201 {object} response.Envelope
// @Router /assignments/jobs [post]
func (h *AssignmentHandler) CreateJob(c *gin.Context) {
	var req service.CreateAssignmentJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.assignments.CreateJob(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// GetJob godoc
// @Summary Get an assignment task
// @Tags Assignments
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/jobs/{id} [get]
func (h *AssignmentHandler) GetJob(c *gin.Context) {
	job, err := h.assignments.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// ListJobs godoc
// @Summary List assignment tasks
// @Tags Assignments
// @Produce json
// @Param userId query string false "Filter by assignee"
// @Success 200 {object} response.Envelope
// @Router /assignments/jobs [get]
func (h *AssignmentHandler) ListJobs(c *gin.Context) {
	jobs, err := h.assignments.ListJobs(c.Request.Context(), c.Query("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}
