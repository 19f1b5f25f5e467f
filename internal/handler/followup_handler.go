package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-crm-api/internal/service"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/response"
)

// FollowUpHandler exposes follow-up endpoints.
type FollowUpHandler struct {
	followUps *service.FollowUpService
}

// NewFollowUpHandler constructs FollowUpHandler.
func NewFollowUpHandler(followUps *service.FollowUpService) *FollowUpHandler {
	return &FollowUpHandler{followUps: followUps}
}

// Create godoc
// @Summary Schedule a follow-up for an enquiry
// @Tags FollowUps
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body service.CreateFollowUpRequest true "Follow-up payload"
// @Success 201 {object} response.Envelope
// @Router /enquiries/{id}/follow-ups [post]
func (h *FollowUpHandler) Create(c *gin.Context) {
	var req service.CreateFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	followUp, err := h.followUps.Create(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, followUp)
}

// ListByEnquiry godoc
// @Summary List follow-ups of an enquiry
// @Tags FollowUps
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/follow-ups [get]
func (h *FollowUpHandler) ListByEnquiry(c *gin.Context) {
	followUps, err := h.followUps.ListByEnquiry(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, followUps, nil)
}

// ListPending godoc
// @Summary List the caller's pending follow-ups
// @Tags FollowUps
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /follow-ups/pending [get]
func (h *FollowUpHandler) ListPending(c *gin.Context) {
	followUps, err := h.followUps.ListPending(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, followUps, nil)
}

// Resolve godoc
// @Summary Complete, cancel or reschedule a follow-up
// @Tags FollowUps
// @Accept json
// @Produce json
// @Param id path string true "Follow-up ID"
// @Param payload body service.ResolveFollowUpRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /follow-ups/{id} [patch]
func (h *FollowUpHandler) Resolve(c *gin.Context) {
	var req service.ResolveFollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	followUp, err := h.followUps.Resolve(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, followUp, nil)
}
