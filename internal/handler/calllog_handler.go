package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// CallLogHandler exposes call log endpoints.
type CallLogHandler struct {
	callLogs *service.CallLogService
}

// NewCallLogHandler constructs CallLogHandler.
func NewCallLogHandler(callLogs *service.CallLogService) *CallLogHandler {
	return &CallLogHandler{callLogs: callLogs}
}

// Create godoc
// @Summary Record a call against an enquiry
// @Tags CallLogs
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body service.CreateCallLogRequest true "Call payload"
// @Success 201 {object} response.Envelope
// @Router /enquiries/{id}/calls [post]
func (h *CallLogHandler) Create(c *gin.Context) {
	var req service.CreateCallLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	callLog, err := h.callLogs.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, callLog)
}

// ListByEnquiry godoc
// @Summary List calls of an enquiry
// @Tags CallLogs
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/calls [get]
func (h *CallLogHandler) ListByEnquiry(c *gin.Context) {
	callLogs, err := h.callLogs.ListByEnquiry(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, callLogs, nil)
}
