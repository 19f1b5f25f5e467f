package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/middleware"
	"github.com/noah-isme/institute-crm-api/internal/models"
	"github.com/noah-isme/institute-crm-api/internal/service"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// ReportHandler exposes dashboard and export endpoints.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Dashboard godoc
// @Summary Pipeline and money summary for a period
// @Tags Reports
// @Produce json
// @Param branchId query string false "Filter by branch"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	filter := reportFilterFromQuery(c)
	summary, cacheHit, err := h.reports.Dashboard(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// ExportEnquiries godoc
// @Summary Export the enquiry list as CSV or PDF
// @Tags Reports
// @Produce json
// @Param format query string true "csv or pdf"
// @Param status query string false "Filter by status"
// @Param branchId query string false "Filter by branch"
// @Success 200 {object} response.Envelope
// @Router /reports/enquiries/export [get]
func (h *ReportHandler) ExportEnquiries(c *gin.Context) {
	filter, err := enquiryFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.exports.ExportEnquiries(c.Request.Context(), claimsFromContext(c), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download an export file using a signed token
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/downloads [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, name, err := h.exports.OpenDownload(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	c.Header("Content-Type", "application/octet-stream")
	http.ServeContent(c.Writer, c.Request, filepath.Base(name), time.Now(), file)
}

func reportFilterFromQuery(c *gin.Context) models.ReportFilter {
	var filter models.ReportFilter
	filter.BranchID = c.Query("branchId")
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
	return filter
}
