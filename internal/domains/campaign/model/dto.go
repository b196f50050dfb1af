package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BasketItemRef is one basket line as campaigns see it: product and
// quantity, no prices.
type BasketItemRef struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Validate validates BasketItemRef
func (i BasketItemRef) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required.Error("product id is required")),
		validation.Field(&i.Quantity, validation.Min(1).Error("quantity must be >= 1")),
	)
}

// ValidateCampaignRequest - request to check one campaign against a basket
type ValidateCampaignRequest struct {
	Code     string          `json:"code"`
	Items    []BasketItemRef `json:"items"`
	HasPromo bool            `json:"has_promo"`
	UserID   uuid.UUID       `json:"-"` // from JWT
}

// Validate validates ValidateCampaignRequest
func (r ValidateCampaignRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("campaign code is required"),
			validation.Length(3, 50).Error("campaign code must be 3-50 characters"),
		),
		validation.Field(&r.Items,
			validation.Required.Error("basket must not be empty"),
			validation.Length(1, 100).Error("basket must have 1-100 lines"),
		),
	)
}

// NormalizeCode uppercases and trims the code
func (r *ValidateCampaignRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// ValidationResult - preview outcome for one campaign
type ValidationResult struct {
	IsValid       bool            `json:"is_valid"`
	Message       string          `json:"message,omitempty"`
	Multiplier    int             `json:"multiplier"`
	FreeProductID uuid.UUID       `json:"free_product_id"`
	FreeUnits     int             `json:"free_units"`
	FreeValue     decimal.Decimal `json:"free_value"`
}

// EligibleCampaignsRequest - request to evaluate every active campaign
// against one basket in a single pass
type EligibleCampaignsRequest struct {
	Items        []BasketItemRef `json:"items"`
	WillUsePromo bool            `json:"will_use_promo"`
	UserID       uuid.UUID       `json:"-"`
}

// Validate validates EligibleCampaignsRequest
func (r EligibleCampaignsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items,
			validation.Required.Error("basket must not be empty"),
			validation.Length(1, 100).Error("basket must have 1-100 lines"),
		),
	)
}

// EligibleCampaign is one campaign's verdict inside a batch evaluation
type EligibleCampaign struct {
	CampaignID       uuid.UUID       `json:"campaign_id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	WillBeApplied    bool            `json:"will_be_applied"`
	NotAppliedReason string          `json:"not_applied_reason,omitempty"`
	Multiplier       int             `json:"multiplier"`
	FreeProductID    uuid.UUID       `json:"free_product_id"`
	FreeUnits        int             `json:"free_units"`
	FreeValue        decimal.Decimal `json:"free_value"`
}

// FreeProductSummary coalesces free units of the same product across
// campaigns into one line.
type FreeProductSummary struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Value     decimal.Decimal `json:"value"`
}

// EligibleCampaignsResult is the batch evaluation outcome
type EligibleCampaignsResult struct {
	Campaigns             []EligibleCampaign   `json:"campaigns"`
	FreeProducts          []FreeProductSummary `json:"free_products"`
	TotalCampaignDiscount decimal.Decimal      `json:"total_campaign_discount"`
}

// ApplyCampaignRequest - request to record a campaign use on a finalized order
type ApplyCampaignRequest struct {
	Code     string          `json:"code"`
	OrderID  uuid.UUID       `json:"order_id"`
	Items    []BasketItemRef `json:"items"`
	HasPromo bool            `json:"has_promo"`
	UserID   uuid.UUID       `json:"-"`
}

// Validate validates ApplyCampaignRequest
func (r ApplyCampaignRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("campaign code is required"),
			validation.Length(3, 50).Error("campaign code must be 3-50 characters"),
		),
		validation.Field(&r.OrderID, validation.Required.Error("order id is required")),
		validation.Field(&r.Items,
			validation.Required.Error("basket must not be empty"),
			validation.Length(1, 100).Error("basket must have 1-100 lines"),
		),
	)
}

// NormalizeCode uppercases and trims the code
func (r *ApplyCampaignRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// ApplyResult - outcome of a successful apply
type ApplyResult struct {
	CampaignID    uuid.UUID       `json:"campaign_id"`
	FreeProductID uuid.UUID       `json:"free_product_id"`
	FreeUnits     int             `json:"free_units"`
	FreeValue     decimal.Decimal `json:"free_value"`
}

// -------------------------------------------------------------------
// ADMIN REQUESTS
// -------------------------------------------------------------------

// CreateCampaignRequest - request to create a new campaign
type CreateCampaignRequest struct {
	Code                     string  `json:"code"`
	Name                     string  `json:"name"`
	Description              *string `json:"description"`
	BuyProductID             string  `json:"buy_product_id"`
	BuyQuantity              int     `json:"buy_quantity"`
	FreeProductID            string  `json:"free_product_id"`
	FreeQuantity             int     `json:"free_quantity"`
	FirstOrderOnly           bool    `json:"first_order_only"`
	MinDaysSinceRegistration *int    `json:"min_days_since_registration"`
	RequiresPromoAbsence     bool    `json:"requires_promo_absence"`
	MaxUsesPerUser           *int    `json:"max_uses_per_user"`
	MaxTotalUses             *int    `json:"max_total_uses"`
	ValidFrom                string  `json:"valid_from"` // RFC3339
	ValidTo                  string  `json:"valid_to"`
}

// Validate validates CreateCampaignRequest
func (r CreateCampaignRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("campaign code is required"),
			validation.Length(3, 50).Error("campaign code must be 3-50 characters"),
			validation.Match(regexp.MustCompile("^[A-Z0-9]+$")).Error("campaign code may only contain uppercase letters and digits"),
		),
		validation.Field(&r.Name,
			validation.Required.Error("campaign name is required"),
			validation.Length(3, 200).Error("campaign name must be 3-200 characters"),
		),
		validation.Field(&r.Description,
			validation.When(r.Description != nil,
				validation.Length(0, 1000).Error("description must not exceed 1000 characters"),
			),
		),
		validation.Field(&r.BuyProductID,
			validation.Required.Error("buy product is required"),
			is.UUIDv4.Error("buy product must be a UUID"),
		),
		validation.Field(&r.BuyQuantity,
			validation.Min(1).Error("buy quantity must be >= 1"),
		),
		validation.Field(&r.FreeProductID,
			validation.Required.Error("free product is required"),
			is.UUIDv4.Error("free product must be a UUID"),
		),
		validation.Field(&r.FreeQuantity,
			validation.Min(1).Error("free quantity must be >= 1"),
		),
		validation.Field(&r.MinDaysSinceRegistration,
			validation.When(r.MinDaysSinceRegistration != nil,
				validation.Min(1).Error("minimum registration age must be >= 1 day"),
			),
		),
		validation.Field(&r.MaxUsesPerUser,
			validation.When(r.MaxUsesPerUser != nil,
				validation.Min(1).Error("per-user usage limit must be >= 1"),
			),
		),
		validation.Field(&r.MaxTotalUses,
			validation.When(r.MaxTotalUses != nil,
				validation.Min(1).Error("total usage limit must be >= 1"),
			),
		),
		validation.Field(&r.ValidFrom,
			validation.Required.Error("valid from is required"),
			validation.Date(time.RFC3339).Error("invalid timestamp format (RFC3339)"),
		),
		validation.Field(&r.ValidTo,
			validation.Required.Error("valid to is required"),
			validation.Date(time.RFC3339).Error("invalid timestamp format (RFC3339)"),
			validation.By(r.validateDateRange),
		),
	)
}

// validateDateRange requires valid_to after valid_from
func (r CreateCampaignRequest) validateDateRange(value interface{}) error {
	from, err := time.Parse(time.RFC3339, r.ValidFrom)
	if err != nil {
		return nil // format error already reported on ValidFrom
	}
	to, err := time.Parse(time.RFC3339, r.ValidTo)
	if err != nil {
		return nil
	}
	if !to.After(from) {
		return errors.New("valid to must be after valid from")
	}
	return nil
}

// NormalizeCode uppercases and trims the code
func (r *CreateCampaignRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// ToCampaign builds the entity from a validated request
func (r CreateCampaignRequest) ToCampaign() (*Campaign, error) {
	buyID, err := uuid.Parse(r.BuyProductID)
	if err != nil {
		return nil, err
	}
	freeID, err := uuid.Parse(r.FreeProductID)
	if err != nil {
		return nil, err
	}
	from, err := time.Parse(time.RFC3339, r.ValidFrom)
	if err != nil {
		return nil, err
	}
	to, err := time.Parse(time.RFC3339, r.ValidTo)
	if err != nil {
		return nil, err
	}

	return &Campaign{
		ID:                       uuid.New(),
		Code:                     r.Code,
		Name:                     r.Name,
		Description:              r.Description,
		BuyProductID:             buyID,
		BuyQuantity:              r.BuyQuantity,
		FreeProductID:            freeID,
		FreeQuantity:             r.FreeQuantity,
		FirstOrderOnly:           r.FirstOrderOnly,
		MinDaysSinceRegistration: r.MinDaysSinceRegistration,
		RequiresPromoAbsence:     r.RequiresPromoAbsence,
		MaxUsesPerUser:           r.MaxUsesPerUser,
		MaxTotalUses:             r.MaxTotalUses,
		ValidFrom:                from,
		ValidTo:                  to,
		Status:                   StatusActive,
		Version:                  1,
	}, nil
}
