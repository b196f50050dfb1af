package model

import "errors"

var (
	ErrPromoNotFound      = errors.New("promo code not found")
	ErrPromoNotActive     = errors.New("promo code is not active")
	ErrPromoNotStarted    = errors.New("promo code is not yet valid")
	ErrPromoExpired       = errors.New("promo code has expired")
	ErrMinOrderNotMet     = errors.New("order amount below promo minimum")
	ErrUserLimitExceeded  = errors.New("per-user usage limit reached")
	ErrTotalLimitExceeded = errors.New("promo usage limit reached")
	ErrDuplicateCode      = errors.New("promo code already exists")
	ErrInvalidStatus      = errors.New("invalid promo status")
)
