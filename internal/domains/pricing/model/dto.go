package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	campaignModel "waterstore-backend/internal/domains/campaign/model"
)

// BasketItem is one line of the basket being priced
type BasketItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Validate validates BasketItem
func (i BasketItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required.Error("product id is required")),
		validation.Field(&i.Quantity, validation.Min(1).Error("quantity must be >= 1")),
	)
}

// CalculateBasketRequest - request to price a basket before checkout.
// An empty basket is allowed and prices to zero.
type CalculateBasketRequest struct {
	Items     []BasketItem `json:"items"`
	PromoCode string       `json:"promo_code"`
	UserID    uuid.UUID    `json:"-"` // from JWT
}

// Validate validates CalculateBasketRequest
func (r CalculateBasketRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items,
			validation.Length(0, 100).Error("basket must have at most 100 lines"),
		),
		validation.Field(&r.PromoCode,
			validation.When(r.PromoCode != "",
				validation.Length(3, 50).Error("promo code must be 3-50 characters"),
			),
		),
	)
}

// BasketLine is the priced snapshot of one aggregated basket line
type BasketLine struct {
	ProductID           uuid.UUID       `json:"product_id"`
	Name                string          `json:"name"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DepositPerUnit      decimal.Decimal `json:"deposit_per_unit"`
	AvailableContainers int             `json:"available_containers"`
	ContainersUsed      int             `json:"containers_used"`
	DepositCharged      decimal.Decimal `json:"deposit_charged"`
	DepositRefunded     decimal.Decimal `json:"deposit_refunded"`
}

// PriceBreakdown is the full checkout preview
type PriceBreakdown struct {
	Lines []BasketLine `json:"lines"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalItemCount int             `json:"total_item_count"`

	TotalDepositCharged  decimal.Decimal `json:"total_deposit_charged"`
	TotalDepositRefunded decimal.Decimal `json:"total_deposit_refunded"`
	NetDeposit           decimal.Decimal `json:"net_deposit"`

	PromoCode     string          `json:"promo_code,omitempty"`
	PromoDiscount decimal.Decimal `json:"promo_discount"`
	PromoMessage  string          `json:"promo_message,omitempty"`

	Campaigns        []campaignModel.EligibleCampaign   `json:"campaigns"`
	FreeProducts     []campaignModel.FreeProductSummary `json:"free_products"`
	CampaignDiscount decimal.Decimal                    `json:"campaign_discount"`

	// Amount is the goods charge after the promo; TotalAmount adds the
	// net container deposit on top.
	Amount      decimal.Decimal `json:"amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// ZeroBreakdown is the price of an empty basket
func ZeroBreakdown() *PriceBreakdown {
	return &PriceBreakdown{
		Lines:                []BasketLine{},
		Subtotal:             decimal.Zero,
		TotalDepositCharged:  decimal.Zero,
		TotalDepositRefunded: decimal.Zero,
		NetDeposit:           decimal.Zero,
		PromoDiscount:        decimal.Zero,
		Campaigns:            []campaignModel.EligibleCampaign{},
		FreeProducts:         []campaignModel.FreeProductSummary{},
		CampaignDiscount:     decimal.Zero,
		Amount:               decimal.Zero,
		TotalAmount:          decimal.Zero,
	}
}

// OrderTotals are the frozen-snapshot totals of a persisted order
type OrderTotals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	TotalCount      int             `json:"total_count"`
	DepositCharged  decimal.Decimal `json:"deposit_charged"`
	DepositRefunded decimal.Decimal `json:"deposit_refunded"`
	NetDeposit      decimal.Decimal `json:"net_deposit"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}
