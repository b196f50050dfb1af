package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the catalog status of a product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

func (ps ProductStatus) IsValid() bool {
	switch ps {
	case ProductStatusActive, ProductStatusInactive:
		return true
	}
	return false
}

// Product is the catalog view the pricing engine needs: what a unit
// sells for, what its returnable container deposit is, and whether the
// product can currently be ordered.
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	SellPrice     decimal.Decimal `json:"sell_price" db:"sell_price"`
	DepositAmount decimal.Decimal `json:"deposit_amount" db:"deposit_amount"`
	Status        ProductStatus   `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}
