package service

import (
	"context"

	"waterstore-backend/internal/domains/campaign/model"
)

type ServiceInterface interface {
	// Customer-facing
	ValidateCampaign(ctx context.Context, req *model.ValidateCampaignRequest) (*model.ValidationResult, error)
	GetEligibleCampaigns(ctx context.Context, req *model.EligibleCampaignsRequest) (*model.EligibleCampaignsResult, error)
	ApplyCampaign(ctx context.Context, req *model.ApplyCampaignRequest) (*model.ApplyResult, error)

	// Admin methods
	CreateCampaign(ctx context.Context, req *model.CreateCampaignRequest) (*model.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, id string, status model.Status) error

	// Internal methods (called by the worker)
	ExpireSweep(ctx context.Context) (int64, error)
}
