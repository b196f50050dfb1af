package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType represents valid discount types.
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

func (dt DiscountType) IsValid() bool {
	switch dt {
	case DiscountTypePercentage, DiscountTypeFixedAmount:
		return true
	}
	return false
}

// Status is the persisted lifecycle state of a promo. The stored value
// is a cache: whether a promo is usable right now is always derived from
// (status, valid_from, valid_to, now), and rows discovered past their
// valid_to are opportunistically corrected to expired.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired:
		return true
	}
	return false
}

// Promo is a user-entered discount code.
type Promo struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Description *string   `json:"description,omitempty" db:"description"`

	// Discount configuration
	DiscountType  DiscountType     `json:"discount_type" db:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value" db:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty" db:"max_discount"`

	// Conditions
	MinOrderAmount decimal.Decimal `json:"min_order_amount" db:"min_order_amount"`

	// Usage limits
	MaxUsesPerUser   *int `json:"max_uses_per_user,omitempty" db:"max_uses_per_user"`
	MaxTotalUses     *int `json:"max_total_uses,omitempty" db:"max_total_uses"`
	CurrentTotalUses int  `json:"current_total_uses" db:"current_total_uses"`

	// Validity window, both ends inclusive
	ValidFrom time.Time `json:"valid_from" db:"valid_from"`
	ValidTo   time.Time `json:"valid_to" db:"valid_to"`

	Status  Status `json:"status" db:"status"`
	Version int    `json:"version" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsWithinWindow reports whether now falls inside [ValidFrom, ValidTo].
func (p *Promo) IsWithinWindow(now time.Time) bool {
	return !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// IsExpiredAt reports whether the validity window has passed.
func (p *Promo) IsExpiredAt(now time.Time) bool {
	return now.After(p.ValidTo)
}

// IsGlobalLimitReached reports whether the total-use cap is exhausted.
func (p *Promo) IsGlobalLimitReached() bool {
	return p.MaxTotalUses != nil && p.CurrentTotalUses >= *p.MaxTotalUses
}

// PromoUsage is the immutable record of one successful application.
type PromoUsage struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	PromoID         uuid.UUID       `json:"promo_id" db:"promo_id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	OrderID         uuid.UUID       `json:"order_id" db:"order_id"`
	DiscountApplied decimal.Decimal `json:"discount_applied" db:"discount_applied"`
	UsedAt          time.Time       `json:"used_at" db:"used_at"`
}
