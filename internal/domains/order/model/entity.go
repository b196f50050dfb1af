package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (os OrderStatus) IsValid() bool {
	switch os {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderDetail is one line of a persisted order. Price and deposit are
// frozen snapshots taken at calculation time, so the order's totals stay
// stable when catalog prices change later.
type OrderDetail struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderID   uuid.UUID `json:"order_id" db:"order_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`

	PricePerUnit   decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	DepositPerUnit decimal.Decimal `json:"deposit_per_unit" db:"deposit_per_unit"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`

	// ContainersReturned holds the reservation estimate at order time and
	// is overwritten with the driver-reported count at delivery.
	ContainersReturned int             `json:"containers_returned" db:"containers_returned"`
	DepositCharged     decimal.Decimal `json:"deposit_charged" db:"deposit_charged"`
	DepositRefunded    decimal.Decimal `json:"deposit_refunded" db:"deposit_refunded"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
