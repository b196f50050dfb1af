package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	campaignModel "waterstore-backend/internal/domains/campaign/model"
	campaignService "waterstore-backend/internal/domains/campaign/service"
	catalogModel "waterstore-backend/internal/domains/catalog/model"
	catalogRepo "waterstore-backend/internal/domains/catalog/repository"
	depositService "waterstore-backend/internal/domains/deposit/service"
	orderModel "waterstore-backend/internal/domains/order/model"
	"waterstore-backend/internal/domains/pricing/model"
	promoModel "waterstore-backend/internal/domains/promo/model"
	promoService "waterstore-backend/internal/domains/promo/service"
	"waterstore-backend/internal/shared/money"
	"waterstore-backend/pkg/logger"
)

// pricingService composes the catalog, deposit, promo and campaign
// evaluators into one checkout preview.
type pricingService struct {
	catalog   catalogRepo.ProductReader
	deposits  depositService.ServiceInterface
	promos    promoService.ServiceInterface
	campaigns campaignService.ServiceInterface
}

// NewPricingService creates a new service instance
func NewPricingService(
	catalog catalogRepo.ProductReader,
	deposits depositService.ServiceInterface,
	promos promoService.ServiceInterface,
	campaigns campaignService.ServiceInterface,
) ServiceInterface {
	return &pricingService{
		catalog:   catalog,
		deposits:  deposits,
		promos:    promos,
		campaigns: campaigns,
	}
}

// -------------------------------------------------------------------
// BASKET PRICING
// -------------------------------------------------------------------

// CalculateBasketPrice prices a basket for one user.
//
// Business flow:
// 1. Empty basket prices to a zero breakdown
// 2. Aggregate duplicate lines per product, first-seen order preserved
// 3. Load products; unknown or inactive products reject the whole basket
// 4. Per line: subtotal, deposit offset from the user's container ledger
// 5. Evaluate campaigns against the basket (promo intent affects
//    exclusivity)
// 6. Validate the promo code if one was given; an ineligible promo
//    degrades to a zero discount plus a surfaced message
// 7. amount = subtotal - promoDiscount; totalAmount = amount + netDeposit
func (s *pricingService) CalculateBasketPrice(
	ctx context.Context,
	req *model.CalculateBasketRequest,
) (*model.PriceBreakdown, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return model.ZeroBreakdown(), nil
	}

	// Step 2: aggregate per product
	order := make([]uuid.UUID, 0, len(req.Items))
	quantities := make(map[uuid.UUID]int, len(req.Items))
	for _, item := range req.Items {
		if _, ok := quantities[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	// Step 3: catalog snapshot
	products, err := s.catalog.GetProducts(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	for _, id := range order {
		product, ok := products[id]
		if !ok {
			return nil, catalogModel.ErrProductNotFound
		}
		if !product.IsActive() {
			return nil, catalogModel.ErrProductInactive
		}
	}

	// Step 4: deposits from the container ledger
	depositCalc, err := s.deposits.Calculate(ctx, req.UserID, quantities)
	if err != nil {
		return nil, fmt.Errorf("calculate deposits: %w", err)
	}

	breakdown := model.ZeroBreakdown()

	for _, id := range order {
		product := products[id]
		qty := quantities[id]

		line := model.BasketLine{
			ProductID:       id,
			Name:            product.Name,
			Quantity:        qty,
			UnitPrice:       product.SellPrice,
			Subtotal:        money.Round2(money.Mul(product.SellPrice, qty)),
			DepositPerUnit:  product.DepositAmount,
			DepositCharged:  decimal.Zero,
			DepositRefunded: decimal.Zero,
		}

		if dep := depositCalc.Line(id); dep != nil {
			line.AvailableContainers = dep.AvailableContainers
			line.ContainersUsed = dep.ContainersUsed
			line.DepositCharged = money.Round2(money.Mul(dep.DepositPerUnit, qty-dep.ContainersUsed))
			line.DepositRefunded = dep.DepositRefund
		}

		breakdown.Lines = append(breakdown.Lines, line)
		breakdown.Subtotal = breakdown.Subtotal.Add(line.Subtotal)
		breakdown.TotalItemCount += qty
		breakdown.TotalDepositCharged = breakdown.TotalDepositCharged.Add(line.DepositCharged)
		breakdown.TotalDepositRefunded = breakdown.TotalDepositRefunded.Add(line.DepositRefunded)
	}
	breakdown.NetDeposit = breakdown.TotalDepositCharged.Sub(breakdown.TotalDepositRefunded)

	// Step 5: campaigns
	promoCode := strings.TrimSpace(req.PromoCode)
	willUsePromo := promoCode != ""
	campaignItems := make([]campaignModel.BasketItemRef, 0, len(order))
	for _, id := range order {
		campaignItems = append(campaignItems, campaignModel.BasketItemRef{
			ProductID: id,
			Quantity:  quantities[id],
		})
	}

	eligible, err := s.campaigns.GetEligibleCampaigns(ctx, &campaignModel.EligibleCampaignsRequest{
		Items:        campaignItems,
		WillUsePromo: willUsePromo,
		UserID:       req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate campaigns: %w", err)
	}
	breakdown.Campaigns = eligible.Campaigns
	breakdown.FreeProducts = eligible.FreeProducts
	breakdown.CampaignDiscount = eligible.TotalCampaignDiscount

	// Step 6: promo
	if willUsePromo {
		promoResult, err := s.promos.ValidatePromo(ctx, &promoModel.ValidatePromoRequest{
			Code:        promoCode,
			OrderAmount: breakdown.Subtotal,
			UserID:      req.UserID,
		})
		if err != nil {
			return nil, fmt.Errorf("validate promo: %w", err)
		}

		breakdown.PromoCode = promoCode
		if promoResult.IsValid {
			breakdown.PromoDiscount = promoResult.EstimatedDiscount
		} else {
			breakdown.PromoMessage = promoResult.Message
			logger.Debug("promo ineligible during basket pricing")
		}
	}

	// Step 7: final amounts
	breakdown.Amount = money.Round2(breakdown.Subtotal.Sub(breakdown.PromoDiscount))
	breakdown.TotalAmount = money.Round2(breakdown.Amount.Add(breakdown.NetDeposit))

	return breakdown, nil
}

// -------------------------------------------------------------------
// ORDER TOTALS
// -------------------------------------------------------------------

// CalculateOrderTotals recomputes an order's totals from its frozen
// detail snapshots. Catalog prices are never consulted, so the result
// stays stable when products are repriced later.
//
// Expected empties offset the deposit charge: walking details in row
// order, each detail absorbs up to its own quantity of the remaining
// empties and gets a refund for them.
func (s *pricingService) CalculateOrderTotals(
	details []orderModel.OrderDetail,
	emptyBottlesExpected int,
) *model.OrderTotals {
	totals := &model.OrderTotals{
		Subtotal:        decimal.Zero,
		DepositCharged:  decimal.Zero,
		DepositRefunded: decimal.Zero,
	}

	remaining := emptyBottlesExpected
	if remaining < 0 {
		remaining = 0
	}

	for _, detail := range details {
		totals.Subtotal = totals.Subtotal.Add(detail.Subtotal)
		totals.TotalCount += detail.Quantity

		returned := remaining
		if returned > detail.Quantity {
			returned = detail.Quantity
		}
		remaining -= returned

		totals.DepositCharged = totals.DepositCharged.Add(
			money.Round2(money.Mul(detail.DepositPerUnit, detail.Quantity-returned)))
		totals.DepositRefunded = totals.DepositRefunded.Add(
			money.Round2(money.Mul(detail.DepositPerUnit, returned)))
	}

	totals.NetDeposit = totals.DepositCharged.Sub(totals.DepositRefunded)
	totals.TotalAmount = money.Round2(totals.Subtotal.Add(totals.NetDeposit))
	return totals
}
