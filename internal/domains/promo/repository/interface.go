package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"waterstore-backend/internal/domains/promo/model"
)

// PromoRepository defines data access for promo codes and their usage records.
type PromoRepository interface {
	// Read operations
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promo, error)
	FindByCode(ctx context.Context, code string) (*model.Promo, error)
	CheckCodeExists(ctx context.Context, code string) (bool, error)
	GetUserUsageCount(ctx context.Context, promoID, userID uuid.UUID) (int, error)

	// Write operations
	Create(ctx context.Context, promo *model.Promo) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error

	// MarkExpired flips status to expired for a row whose window has
	// passed. No-op when the row is already expired.
	MarkExpired(ctx context.Context, id uuid.UUID) error

	// MarkAllExpired expires every active promo past its valid_to.
	// Returns the number of rows updated.
	MarkAllExpired(ctx context.Context) (int64, error)

	// Transactional write operations, called inside the apply transaction
	CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.PromoUsage) error

	// IncrementUses bumps current_total_uses only while the global cap
	// holds. Returns false when the cap is already reached.
	IncrementUses(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) (bool, error)
}
