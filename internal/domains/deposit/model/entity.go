package model

import (
	"time"

	"github.com/google/uuid"
)

// ContainerLedgerEntry is the running per-user, per-product balance of
// empty returnable containers the user holds deposit credit for.
// Quantity never goes negative: a write that would take it below zero
// must fail instead.
type ContainerLedgerEntry struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
