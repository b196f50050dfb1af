package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"waterstore-backend/internal/domains/deposit/model"
	"waterstore-backend/internal/domains/deposit/service"
	orderModel "waterstore-backend/internal/domains/order/model"
	orderRepo "waterstore-backend/internal/domains/order/repository"
	"waterstore-backend/internal/shared/response"
	"waterstore-backend/pkg/logger"
)

// Handler handles HTTP requests for container deposits
type Handler struct {
	service service.ServiceInterface
	orders  orderRepo.OrderDetailRepository
}

// NewHandler creates handler instance
func NewHandler(service service.ServiceInterface, orders orderRepo.OrderDetailRepository) *Handler {
	return &Handler{service: service, orders: orders}
}

// CollectRequest - driver's report of containers collected at delivery
type CollectRequest struct {
	OrderID    string                `json:"order_id"`
	CustomerID string                `json:"customer_id"`
	Items      []model.CollectedItem `json:"items"`
}

// Validate validates CollectRequest
func (r CollectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderID, validation.Required.Error("order id is required"), is.UUIDv4),
		validation.Field(&r.CustomerID, validation.Required.Error("customer id is required"), is.UUIDv4),
		validation.Field(&r.Items, validation.Required.Error("collected items are required")),
	)
}

// ===================================
// API 1: POST /deliveries/collect
// ===================================

// Collect handles POST /deliveries/collect
//
// Records the containers a driver physically picked up: the order's
// detail rows get the actual counts and the customer's ledger is
// credited, all in one transaction.
func (h *Handler) Collect(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	orderID, _ := uuid.Parse(req.OrderID)
	customerID, _ := uuid.Parse(req.CustomerID)

	owner, err := h.orders.GetOrderOwner(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orderModel.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		logger.Error("load order owner failed", err)
		response.InternalServerError(c, "failed to load order")
		return
	}
	if owner != customerID {
		response.Forbidden(c, "order does not belong to this customer")
		return
	}

	details, err := h.orders.GetByOrderID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, orderModel.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		logger.Error("load order details failed", err)
		response.InternalServerError(c, "failed to load order")
		return
	}
	if len(details) == 0 {
		response.NotFound(c, "order not found")
		return
	}

	err = h.service.CreditCollected(c.Request.Context(), customerID, details, req.Items)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidQuantity):
			response.BadRequest(c, "collected quantities are invalid")
		case errors.Is(err, orderModel.ErrOrderDetailNotFound):
			response.BadRequest(c, "collected item does not belong to this order")
		default:
			logger.Error("credit collected containers failed", err)
			response.InternalServerError(c, "failed to record collected containers")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"order_id": orderID,
		"items":    req.Items,
	})
}
