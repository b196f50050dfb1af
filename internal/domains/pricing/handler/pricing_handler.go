package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	catalogModel "waterstore-backend/internal/domains/catalog/model"
	"waterstore-backend/internal/domains/pricing/model"
	"waterstore-backend/internal/domains/pricing/service"
	"waterstore-backend/internal/shared/response"
	"waterstore-backend/pkg/logger"
)

// Handler handles HTTP requests for basket pricing
type Handler struct {
	service service.ServiceInterface
}

// NewHandler creates handler instance
func NewHandler(service service.ServiceInterface) *Handler {
	return &Handler{service: service}
}

// ===================================
// API 1: POST /cart/calculate
// ===================================

// Calculate handles POST /cart/calculate
//
// Checkout preview for the caller's basket. Safe to call repeatedly:
// nothing is reserved or consumed.
func (h *Handler) Calculate(c *gin.Context) {
	userID, ok := c.Get("userID")
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.CalculateBasketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	req.UserID = userID.(uuid.UUID)

	breakdown, err := h.service.CalculateBasketPrice(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, catalogModel.ErrProductNotFound):
			response.BadRequest(c, "basket references an unknown product")
		case errors.Is(err, catalogModel.ErrProductInactive):
			response.ErrorResponse(c, http.StatusUnprocessableEntity, "PRODUCT_INACTIVE", "basket references a product that is no longer sold")
		case isValidationInput(err):
			response.BadRequest(c, err.Error())
		default:
			logger.Error("calculate basket price failed", err)
			response.InternalServerError(c, "failed to price basket")
		}
		return
	}

	response.Success(c, http.StatusOK, breakdown)
}

// isValidationInput reports whether err came from ozzo request validation
func isValidationInput(err error) bool {
	var verrs validation.Errors
	return errors.As(err, &verrs)
}
