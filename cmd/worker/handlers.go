package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	campaignService "waterstore-backend/internal/domains/campaign/service"
	promoService "waterstore-backend/internal/domains/promo/service"
	"waterstore-backend/internal/shared"
	"waterstore-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	promos    promoService.ServiceInterface
	campaigns campaignService.ServiceInterface
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		promos:    c.PromoService,
		campaigns: c.CampaignService,
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypePromoExpireSweep, h.handlePromoExpireSweep)
	mux.HandleFunc(shared.TypeCampaignExpireSweep, h.handleCampaignExpireSweep)
}

// handlePromoExpireSweep expires promos past their window. The sweep
// only corrects the persisted status cache; eligibility checks never
// depend on it having run.
func (h *HandlerRegistry) handlePromoExpireSweep(ctx context.Context, t *asynq.Task) error {
	n, err := h.promos.ExpireSweep(ctx)
	if err != nil {
		return err
	}
	log.Printf("[Sweep] promos expired: %d", n)
	return nil
}

// handleCampaignExpireSweep expires campaigns past their window
func (h *HandlerRegistry) handleCampaignExpireSweep(ctx context.Context, t *asynq.Task) error {
	n, err := h.campaigns.ExpireSweep(ctx)
	if err != nil {
		return err
	}
	log.Printf("[Sweep] campaigns expired: %d", n)
	return nil
}
