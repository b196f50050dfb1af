package service

import (
	"context"

	orderModel "waterstore-backend/internal/domains/order/model"
	"waterstore-backend/internal/domains/pricing/model"
)

type ServiceInterface interface {
	// CalculateBasketPrice is the checkout preview. Pure read path: it
	// never reserves containers, consumes promo uses, or writes anything,
	// so calling it twice with the same state gives the same breakdown.
	CalculateBasketPrice(ctx context.Context, req *model.CalculateBasketRequest) (*model.PriceBreakdown, error)

	// CalculateOrderTotals recomputes totals from an order's frozen
	// detail snapshots. emptyBottlesExpected is allocated across details
	// in row order, bounded per detail by its quantity.
	CalculateOrderTotals(details []orderModel.OrderDetail, emptyBottlesExpected int) *model.OrderTotals
}
