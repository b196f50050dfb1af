package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"waterstore-backend/internal/domains/campaign/model"
)

// CampaignRepository defines data access for campaigns and their usage records.
type CampaignRepository interface {
	// Read operations
	FindByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	FindByCode(ctx context.Context, code string) (*model.Campaign, error)
	CheckCodeExists(ctx context.Context, code string) (bool, error)

	// ListActive returns campaigns whose persisted status is active,
	// ordered by creation time. Window checks happen in the service.
	ListActive(ctx context.Context) ([]*model.Campaign, error)

	GetUserUsageCount(ctx context.Context, campaignID, userID uuid.UUID) (int, error)

	// Write operations
	Create(ctx context.Context, campaign *model.Campaign) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
	MarkAllExpired(ctx context.Context) (int64, error)

	// Transactional write operations, called inside the apply transaction
	CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.CampaignUsage) error
	IncrementUses(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (bool, error)
}
