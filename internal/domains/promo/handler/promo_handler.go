package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"waterstore-backend/internal/domains/promo/model"
	"waterstore-backend/internal/domains/promo/service"
	"waterstore-backend/internal/shared/response"
	"waterstore-backend/pkg/logger"
)

// Handler handles HTTP requests for promo codes
type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates handler instance
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// ===================================
// API 1: POST /promos/validate
// ===================================

// Validate handles POST /promos/validate
//
// Read-only preview: an ineligible code comes back 200 with
// is_valid=false, never an error status.
func (h *Handler) Validate(c *gin.Context) {
	userID, ok := c.Get("userID")
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.UserID = userID.(uuid.UUID)

	result, err := h.service.ValidatePromo(c.Request.Context(), &req)
	if err != nil {
		if isValidationInput(err) {
			response.BadRequest(c, err.Error())
			return
		}
		logger.Error("validate promo failed", err)
		response.InternalServerError(c, "failed to validate promo code")
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ===================================
// API 2: POST /promos/apply
// ===================================

// Apply handles POST /promos/apply
func (h *Handler) Apply(c *gin.Context) {
	userID, ok := c.Get("userID")
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.UserID = userID.(uuid.UUID)

	result, err := h.service.ApplyPromo(c.Request.Context(), &req)
	if err != nil {
		h.respondApplyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// respondApplyError maps typed apply failures to HTTP statuses
func (h *Handler) respondApplyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrPromoNotFound):
		response.NotFound(c, "promo code not found")
	case errors.Is(err, model.ErrUserLimitExceeded),
		errors.Is(err, model.ErrTotalLimitExceeded):
		response.Conflict(c, err.Error())
	case errors.Is(err, model.ErrPromoNotActive),
		errors.Is(err, model.ErrPromoNotStarted),
		errors.Is(err, model.ErrPromoExpired),
		errors.Is(err, model.ErrMinOrderNotMet):
		response.ErrorResponse(c, http.StatusUnprocessableEntity, "PROMO_NOT_ELIGIBLE", err.Error())
	case isValidationInput(err):
		response.BadRequest(c, err.Error())
	default:
		logger.Error("apply promo failed", err)
		response.InternalServerError(c, "failed to apply promo code")
	}
}

// ===================================
// API 3: POST /admin/promos
// ===================================

// Create handles POST /admin/promos
func (h *Handler) Create(c *gin.Context) {
	var req model.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	promo, err := h.service.CreatePromo(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateCode) {
			response.Conflict(c, "promo code already exists")
			return
		}
		if isValidationInput(err) {
			response.BadRequest(c, err.Error())
			return
		}
		logger.Error("create promo failed", err)
		response.InternalServerError(c, "failed to create promo")
		return
	}

	response.Success(c, http.StatusCreated, promo)
}

// ===================================
// API 4: PATCH /admin/promos/:id/status
// ===================================

// UpdateStatus handles PATCH /admin/promos/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	err := h.service.UpdatePromoStatus(c.Request.Context(), c.Param("id"), model.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPromoNotFound):
			response.NotFound(c, "promo not found")
		case errors.Is(err, model.ErrInvalidStatus):
			response.BadRequest(c, "invalid status")
		default:
			logger.Error("update promo status failed", err)
			response.InternalServerError(c, "failed to update promo status")
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
