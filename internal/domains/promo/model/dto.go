package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidatePromoRequest - request to check a promo code against an order amount
type ValidatePromoRequest struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	UserID      uuid.UUID       `json:"-"` // from JWT, never from request body
}

// Validate validates ValidatePromoRequest
func (r ValidatePromoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("promo code is required"),
			validation.Length(3, 50).Error("promo code must be 3-50 characters"),
		),
		validation.Field(&r.OrderAmount,
			validation.Min(decimal.Zero).Error("order amount must be >= 0"),
		),
	)
}

// NormalizeCode uppercases and trims the code
func (r *ValidatePromoRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// ApplyPromoRequest - request to record a promo use against a finalized order
type ApplyPromoRequest struct {
	Code        string          `json:"code"`
	OrderID     uuid.UUID       `json:"order_id"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	UserID      uuid.UUID       `json:"-"`
}

// Validate validates ApplyPromoRequest
func (r ApplyPromoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("promo code is required"),
			validation.Length(3, 50).Error("promo code must be 3-50 characters"),
		),
		validation.Field(&r.OrderID,
			validation.Required.Error("order id is required"),
		),
		validation.Field(&r.OrderAmount,
			validation.Min(decimal.Zero).Error("order amount must be >= 0"),
		),
	)
}

// NormalizeCode uppercases and trims the code
func (r *ApplyPromoRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// ValidationResult - preview outcome; failures are data, not errors
type ValidationResult struct {
	IsValid           bool            `json:"is_valid"`
	Message           string          `json:"message,omitempty"`
	EstimatedDiscount decimal.Decimal `json:"estimated_discount"`
	UserCanUse        bool            `json:"user_can_use"`
	UserUsageCount    int             `json:"user_usage_count"`
}

// ApplyResult - outcome of a successful apply
type ApplyResult struct {
	PromoID         uuid.UUID       `json:"promo_id"`
	Code            string          `json:"code"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
}

// -------------------------------------------------------------------
// ADMIN REQUESTS
// -------------------------------------------------------------------

// CreatePromoRequest - request to create a new promo
type CreatePromoRequest struct {
	Code           string   `json:"code"`
	Description    *string  `json:"description"`
	DiscountType   string   `json:"discount_type"`
	DiscountValue  float64  `json:"discount_value"`
	MaxDiscount    *float64 `json:"max_discount"`
	MinOrderAmount float64  `json:"min_order_amount"`
	MaxUsesPerUser *int     `json:"max_uses_per_user"`
	MaxTotalUses   *int     `json:"max_total_uses"`
	ValidFrom      string   `json:"valid_from"` // RFC3339
	ValidTo        string   `json:"valid_to"`
}

// Validate validates CreatePromoRequest
func (r CreatePromoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("promo code is required"),
			validation.Length(3, 50).Error("promo code must be 3-50 characters"),
			validation.Match(regexp.MustCompile("^[A-Z0-9]+$")).Error("promo code may only contain uppercase letters and digits"),
		),
		validation.Field(&r.Description,
			validation.When(r.Description != nil,
				validation.Length(0, 1000).Error("description must not exceed 1000 characters"),
			),
		),
		validation.Field(&r.DiscountType,
			validation.Required.Error("discount type is required"),
			validation.In("percentage", "fixed_amount").Error("discount type must be 'percentage' or 'fixed_amount'"),
		),
		validation.Field(&r.DiscountValue,
			validation.Required.Error("discount value is required"),
			validation.Min(0.01).Error("discount value must be > 0"),
			validation.By(r.validateDiscountValue),
		),
		validation.Field(&r.MaxDiscount,
			validation.When(r.MaxDiscount != nil,
				validation.Min(0.01).Error("max discount must be > 0"),
			),
		),
		validation.Field(&r.MinOrderAmount,
			validation.Min(0.0).Error("minimum order amount must be >= 0"),
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

// validateDiscountValue rejects percentages outside (0, 99.99]
func (r CreatePromoRequest) validateDiscountValue(value interface{}) error {
	if r.DiscountType == "percentage" && r.DiscountValue > 99.99 {
		return errors.New("percentage discount must not exceed 99.99")
	}
	return nil
}

// validateDateRange requires valid_to after valid_from
func (r CreatePromoRequest) validateDateRange(value interface{}) error {
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
func (r *CreatePromoRequest) NormalizeCode() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

// ToPromo builds the entity from a validated request. Parse errors are
// impossible after Validate, but are surfaced anyway.
func (r CreatePromoRequest) ToPromo() (*Promo, error) {
	from, err := time.Parse(time.RFC3339, r.ValidFrom)
	if err != nil {
		return nil, err
	}
	to, err := time.Parse(time.RFC3339, r.ValidTo)
	if err != nil {
		return nil, err
	}

	p := &Promo{
		ID:             uuid.New(),
		Code:           r.Code,
		Description:    r.Description,
		DiscountType:   DiscountType(r.DiscountType),
		DiscountValue:  decimal.NewFromFloat(r.DiscountValue),
		MinOrderAmount: decimal.NewFromFloat(r.MinOrderAmount),
		MaxUsesPerUser: r.MaxUsesPerUser,
		MaxTotalUses:   r.MaxTotalUses,
		ValidFrom:      from,
		ValidTo:        to,
		Status:         StatusActive,
		Version:        1,
	}
	if r.MaxDiscount != nil {
		md := decimal.NewFromFloat(*r.MaxDiscount)
		p.MaxDiscount = &md
	}
	return p, nil
}
