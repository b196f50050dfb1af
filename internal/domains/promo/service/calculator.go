package service

import (
	"github.com/shopspring/decimal"

	"waterstore-backend/internal/domains/promo/model"
	"waterstore-backend/internal/shared/money"
)

// DiscountCalculator handles discount math
type DiscountCalculator struct{}

// NewDiscountCalculator creates a new instance
func NewDiscountCalculator() *DiscountCalculator {
	return &DiscountCalculator{}
}

// Calculate computes the discount amount for a promo against an order amount
//
// Business logic:
// 1. Percentage discount:
//   - discount = orderAmount × (discount_value / 100)
//   - if max_discount is set: discount = min(discount, max_discount)
//
// 2. Fixed amount discount:
//   - discount = discount_value
//   - if max_discount is set: discount = min(discount, max_discount)
//
// In both cases the discount never exceeds the order amount, and the
// result is rounded half-up to 2 decimals.
func (c *DiscountCalculator) Calculate(promo *model.Promo, orderAmount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch promo.DiscountType {
	case model.DiscountTypePercentage:
		discount = orderAmount.Mul(promo.DiscountValue).Div(decimal.NewFromInt(100))

		if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
			discount = *promo.MaxDiscount
		}

	case model.DiscountTypeFixedAmount:
		discount = promo.DiscountValue

		if promo.MaxDiscount != nil && discount.GreaterThan(*promo.MaxDiscount) {
			discount = *promo.MaxDiscount
		}

	default:
		return decimal.Zero
	}

	// e.g. order 50.00, fixed discount 100.00, only 50.00 comes off
	if discount.GreaterThan(orderAmount) {
		discount = orderAmount
	}

	return money.Round2(discount)
}
