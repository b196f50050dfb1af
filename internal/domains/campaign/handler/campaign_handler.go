package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"waterstore-backend/internal/domains/campaign/model"
	"waterstore-backend/internal/domains/campaign/service"
	catalogModel "waterstore-backend/internal/domains/catalog/model"
	"waterstore-backend/internal/shared/response"
	"waterstore-backend/pkg/logger"
)

// Handler handles HTTP requests for campaigns
type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates handler instance
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// ===================================
// API 1: POST /campaigns/validate
// ===================================

// Validate handles POST /campaigns/validate
//
// Read-only preview of one campaign against a basket. An ineligible
// campaign comes back 200 with is_valid=false.
func (h *Handler) Validate(c *gin.Context) {
	userID, ok := c.Get("userID")
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.ValidateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.UserID = userID.(uuid.UUID)

	result, err := h.service.ValidateCampaign(c.Request.Context(), &req)
	if err != nil {
		if isValidationInput(err) {
			response.BadRequest(c, err.Error())
			return
		}
		logger.Error("validate campaign failed", err)
		response.InternalServerError(c, "failed to validate campaign")
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ===================================
// API 2: POST /campaigns/eligible
// ===================================

// Eligible handles POST /campaigns/eligible
func (h *Handler) Eligible(c *gin.Context) {
	userID, ok := c.Get("userID")
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.EligibleCampaignsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.UserID = userID.(uuid.UUID)

	result, err := h.service.GetEligibleCampaigns(c.Request.Context(), &req)
	if err != nil {
		if isValidationInput(err) {
			response.BadRequest(c, err.Error())
			return
		}
		logger.Error("eligible campaigns failed", err)
		response.InternalServerError(c, "failed to evaluate campaigns")
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ===================================
// API 3: POST /campaigns/apply
// ===================================

// Apply handles POST /campaigns/apply
func (h *Handler) Apply(c *gin.Context) {
	userID, ok := c.Get("userID")
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.ApplyCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.UserID = userID.(uuid.UUID)

	result, err := h.service.ApplyCampaign(c.Request.Context(), &req)
	if err != nil {
		h.respondApplyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// respondApplyError maps typed apply failures to HTTP statuses
func (h *Handler) respondApplyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrCampaignNotFound):
		response.NotFound(c, "campaign not found")
	case errors.Is(err, model.ErrUserLimitExceeded),
		errors.Is(err, model.ErrTotalLimitExceeded):
		response.Conflict(c, err.Error())
	case errors.Is(err, model.ErrCampaignNotActive),
		errors.Is(err, model.ErrCampaignNotStarted),
		errors.Is(err, model.ErrCampaignExpired),
		errors.Is(err, model.ErrTriggerNotMet),
		errors.Is(err, model.ErrFirstOrderOnly),
		errors.Is(err, model.ErrRegistrationTooRecent),
		errors.Is(err, model.ErrPromoConflict),
		errors.Is(err, model.ErrFreeProductGone):
		response.ErrorResponse(c, http.StatusUnprocessableEntity, "CAMPAIGN_NOT_ELIGIBLE", err.Error())
	case isValidationInput(err):
		response.BadRequest(c, err.Error())
	default:
		logger.Error("apply campaign failed", err)
		response.InternalServerError(c, "failed to apply campaign")
	}
}

// ===================================
// API 4: POST /admin/campaigns
// ===================================

// Create handles POST /admin/campaigns
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	campaign, err := h.service.CreateCampaign(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrDuplicateCode):
			response.Conflict(c, "campaign code already exists")
		case errors.Is(err, catalogModel.ErrProductNotFound):
			response.BadRequest(c, "referenced product does not exist")
		case errors.Is(err, catalogModel.ErrProductInactive):
			response.BadRequest(c, "free product is not sellable")
		case isValidationInput(err):
			response.BadRequest(c, err.Error())
		default:
			logger.Error("create campaign failed", err)
			response.InternalServerError(c, "failed to create campaign")
		}
		return
	}

	response.Success(c, http.StatusCreated, campaign)
}

// ===================================
// API 5: PATCH /admin/campaigns/:id/status
// ===================================

// UpdateStatus handles PATCH /admin/campaigns/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	err := h.service.UpdateCampaignStatus(c.Request.Context(), c.Param("id"), model.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCampaignNotFound):
			response.NotFound(c, "campaign not found")
		case errors.Is(err, model.ErrInvalidStatus):
			response.BadRequest(c, "invalid status")
		default:
			logger.Error("update campaign status failed", err)
			response.InternalServerError(c, "failed to update campaign status")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": req.Status})
}

// isValidationInput reports whether err came from ozzo request validation
func isValidationInput(err error) bool {
	var verrs validation.Errors
	return errors.As(err, &verrs)
}
