package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the persisted lifecycle state of a campaign. Like promos,
// the stored value is a cache over (status, valid_from, valid_to, now).
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

// Campaign is a buy-X-get-Y deal: buying enough of the trigger product
// earns free units of the reward product.
type Campaign struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`

	// Trigger and reward. The trigger product must match exactly; buying
	// a different product of the same price does not qualify.
	BuyProductID  uuid.UUID `json:"buy_product_id" db:"buy_product_id"`
	BuyQuantity   int       `json:"buy_quantity" db:"buy_quantity"`
	FreeProductID uuid.UUID `json:"free_product_id" db:"free_product_id"`
	FreeQuantity  int       `json:"free_quantity" db:"free_quantity"`

	// User conditions
	FirstOrderOnly           bool `json:"first_order_only" db:"first_order_only"`
	MinDaysSinceRegistration *int `json:"min_days_since_registration,omitempty" db:"min_days_since_registration"`
	RequiresPromoAbsence     bool `json:"requires_promo_absence" db:"requires_promo_absence"`

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

// Multiplier returns how many times the reward repeats for an ordered
// quantity of the trigger product. Buy 2 get 1 with 5 ordered gives 2.
// The multiplier is intentionally unbounded.
func (c *Campaign) Multiplier(orderedQuantity int) int {
	if c.BuyQuantity <= 0 || orderedQuantity < c.BuyQuantity {
		return 0
	}
	return orderedQuantity / c.BuyQuantity
}

// IsWithinWindow reports whether now falls inside [ValidFrom, ValidTo].
func (c *Campaign) IsWithinWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidTo)
}

// IsExpiredAt reports whether the validity window has passed.
func (c *Campaign) IsExpiredAt(now time.Time) bool {
	return now.After(c.ValidTo)
}

// IsGlobalLimitReached reports whether the total-use cap is exhausted.
func (c *Campaign) IsGlobalLimitReached() bool {
	return c.MaxTotalUses != nil && c.CurrentTotalUses >= *c.MaxTotalUses
}

// CampaignUsage is the immutable record of one campaign application.
type CampaignUsage struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CampaignID uuid.UUID       `json:"campaign_id" db:"campaign_id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	OrderID    uuid.UUID       `json:"order_id" db:"order_id"`
	FreeUnits  int             `json:"free_units" db:"free_units"`
	FreeValue  decimal.Decimal `json:"free_value" db:"free_value"`
	UsedAt     time.Time       `json:"used_at" db:"used_at"`
}
