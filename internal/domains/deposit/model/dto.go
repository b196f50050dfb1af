package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDeposit is the per-product outcome of a deposit calculation.
type ProductDeposit struct {
	ProductID           uuid.UUID       `json:"product_id"`
	OrderedQuantity     int             `json:"ordered_quantity"`
	AvailableContainers int             `json:"available_containers"`
	ContainersUsed      int             `json:"containers_used"`
	DepositPerUnit      decimal.Decimal `json:"deposit_per_unit"`
	DepositRefund       decimal.Decimal `json:"deposit_refund"`
}

// DepositCalculation aggregates the per-product lines.
type DepositCalculation struct {
	Products             []ProductDeposit `json:"products"`
	TotalContainersUsed  int              `json:"total_containers_used"`
	TotalDepositRefunded decimal.Decimal  `json:"total_deposit_refunded"`
}

// Line returns the calculation line for a product, or nil.
func (c *DepositCalculation) Line(productID uuid.UUID) *ProductDeposit {
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			return &c.Products[i]
		}
	}
	return nil
}

// CollectedItem is a driver's report of containers physically collected
// for one product at delivery time.
type CollectedItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}
