package model

import "errors"

var (
	// ErrInsufficientContainers means a reservation would drive a ledger
	// balance negative; the order creation must abort.
	ErrInsufficientContainers = errors.New("insufficient container balance")

	ErrInvalidQuantity = errors.New("quantity must be positive")
)
