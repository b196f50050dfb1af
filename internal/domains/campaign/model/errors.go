package model

import "errors"

var (
	ErrCampaignNotFound      = errors.New("campaign not found")
	ErrCampaignNotActive     = errors.New("campaign is not active")
	ErrCampaignNotStarted    = errors.New("campaign is not yet valid")
	ErrCampaignExpired       = errors.New("campaign has expired")
	ErrTriggerNotMet         = errors.New("basket does not contain enough of the trigger product")
	ErrFirstOrderOnly        = errors.New("campaign is limited to first orders")
	ErrRegistrationTooRecent = errors.New("account is too new for this campaign")
	ErrPromoConflict         = errors.New("campaign cannot be combined with a promo code")
	ErrFreeProductGone       = errors.New("campaign free product is unavailable")
	ErrUserLimitExceeded     = errors.New("per-user campaign limit reached")
	ErrTotalLimitExceeded    = errors.New("campaign usage limit reached")
	ErrDuplicateCode         = errors.New("campaign code already exists")
	ErrInvalidStatus         = errors.New("invalid campaign status")
)
