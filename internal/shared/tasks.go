package shared

// Asynq task type names.
const (
	TypePromoExpireSweep    = "promo:expire_sweep"
	TypeCampaignExpireSweep = "campaign:expire_sweep"
)
