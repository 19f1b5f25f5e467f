package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// CatalogHandler exposes master-data endpoints for branches, sources,
// courses and services.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListBranches godoc
// @Summary List branches
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /branches [get]
func (h *CatalogHandler) ListBranches(c *gin.Context) {
	branches, err := h.catalog.ListBranches(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branches, nil)
}

// CreateBranch godoc
// @Summary Create a branch
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.BranchRequest true "Branch payload"
// @Success 201 {object} response.Envelope
// @Router /branches [post]
func (h *CatalogHandler) CreateBranch(c *gin.Context) {
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	branch, err := h.catalog.CreateBranch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, branch)
}

// UpdateBranch godoc
// @Summary Update a branch
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Branch ID"
// @Param payload body service.BranchRequest true "Branch payload"
// @Success 200 {object} response.Envelope
// @Router /branches/{id} [put]
func (h *CatalogHandler) UpdateBranch(c *gin.Context) {
	var req service.BranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	branch, err := h.catalog.UpdateBranch(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, branch, nil)
}

// ListSources godoc
// @Summary List enquiry sources
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sources [get]
func (h *CatalogHandler) ListSources(c *gin.Context) {
	sources, err := h.catalog.ListSources(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sources, nil)
}

// CreateSource godoc
// @Summary Create an enquiry source
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.SourceRequest true "Source payload"
// @Success 201 {object} response.Envelope
// @Router /sources [post]
func (h *CatalogHandler) CreateSource(c *gin.Context) {
	var req service.SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	source, err := h.catalog.CreateSource(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, source)
}

// ListCourses godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	courses, err := h.catalog.ListCourses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// CreateCourse godoc
// @Summary Create a course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.CourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// UpdateCourse godoc
// @Summary Update a course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CatalogHandler) UpdateCourse(c *gin.Context) {
	var req service.CourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.catalog.UpdateCourse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ListServices godoc
// @Summary List billable services
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /services [get]
func (h *CatalogHandler) ListServices(c *gin.Context) {
	services, err := h.catalog.ListServices(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, services, nil)
}

// CreateService godoc
// @Summary Create a billable service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.ServiceRequest true "Service payload"
// @Success 201 {object} response.Envelope
// @Router /services [post]
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req service.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	svc, err := h.catalog.CreateService(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, svc)
}

// UpdateService godoc
// @Summary Update a billable service
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Service ID"
// @Param payload body service.ServiceRequest true "Service payload"
// @Success 200 {object} response.Envelope
// @Router /services/{id} [put]
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var req service.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	svc, err := h.catalog.UpdateService(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, svc, nil)
}
