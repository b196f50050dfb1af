package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"waterstore-backend/internal/domains/promo/model"
)

// PostgresRepository implements PromoRepository with PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance
func NewPostgresRepository(db *pgxpool.Pool) PromoRepository {
	return &PostgresRepository{db: db}
}

const promoColumns = `
	id, code, description,
	discount_type, discount_value, max_discount,
	min_order_amount,
	max_uses_per_user, max_total_uses, current_total_uses,
	valid_from, valid_to, status, version,
	created_at, updated_at`

func scanPromo(row pgx.Row) (*model.Promo, error) {
	var p model.Promo
	err := row.Scan(
		&p.ID,
		&p.Code,
		&p.Description, // nullable
		&p.DiscountType,
		&p.DiscountValue,
		&p.MaxDiscount, // nullable
		&p.MinOrderAmount,
		&p.MaxUsesPerUser, // nullable
		&p.MaxTotalUses,   // nullable
		&p.CurrentTotalUses,
		&p.ValidFrom,
		&p.ValidTo,
		&p.Status,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

// FindByID finds a promo by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Promo, error) {
	query := `SELECT ` + promoColumns + ` FROM promos WHERE id = $1`

	p, err := scanPromo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromoNotFound
		}
		return nil, fmt.Errorf("find promo by id: %w", err)
	}
	return p, nil
}

// FindByCode finds a promo by code, without filtering on status or window
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.Promo, error) {
	query := `SELECT ` + promoColumns + ` FROM promos WHERE code = $1`

	p, err := scanPromo(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromoNotFound
		}
		return nil, fmt.Errorf("find promo by code: %w", err)
	}
	return p, nil
}

// CheckCodeExists reports whether a promo code is already taken
func (r *PostgresRepository) CheckCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM promos WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check promo code exists: %w", err)
	}
	return exists, nil
}

// GetUserUsageCount counts how many times a user has used a promo
func (r *PostgresRepository) GetUserUsageCount(ctx context.Context, promoID, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM promo_usage WHERE promo_id = $1 AND user_id = $2`,
		promoID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get promo usage count: %w", err)
	}
	return count, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

// Create inserts a new promo
func (r *PostgresRepository) Create(ctx context.Context, promo *model.Promo) error {
	query := `
		INSERT INTO promos (
			id, code, description,
			discount_type, discount_value, max_discount,
			min_order_amount,
			max_uses_per_user, max_total_uses, current_total_uses,
			valid_from, valid_to, status, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		promo.ID, promo.Code, promo.Description,
		promo.DiscountType, promo.DiscountValue, promo.MaxDiscount,
		promo.MinOrderAmount,
		promo.MaxUsesPerUser, promo.MaxTotalUses, promo.CurrentTotalUses,
		promo.ValidFrom, promo.ValidTo, promo.Status, promo.Version,
	).Scan(&promo.CreatedAt, &promo.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrDuplicateCode
		}
		return fmt.Errorf("create promo: %w", err)
	}
	return nil
}

// UpdateStatus sets the persisted status of a promo
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE promos SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update promo status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPromoNotFound
	}
	return nil
}

// MarkExpired corrects the status cache for a promo found past its window
func (r *PostgresRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE promos
		SET status = 'expired', version = version + 1, updated_at = NOW()
		WHERE id = $1 AND status <> 'expired' AND valid_to < NOW()
	`, id)
	if err != nil {
		return fmt.Errorf("mark promo expired: %w", err)
	}
	return nil
}

// MarkAllExpired is the periodic sweep over all active rows past valid_to
func (r *PostgresRepository) MarkAllExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE promos
		SET status = 'expired', version = version + 1, updated_at = NOW()
		WHERE status = 'active' AND valid_to < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("mark promos expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// -------------------------------------------------------------------
// TRANSACTIONAL OPERATIONS
// -------------------------------------------------------------------

// CreateUsage records one promo application inside the apply transaction
func (r *PostgresRepository) CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.PromoUsage) error {
	query := `
		INSERT INTO promo_usage (id, promo_id, user_id, order_id, discount_applied)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING used_at
	`

	err := tx.QueryRow(ctx, query,
		usage.ID, usage.PromoID, usage.UserID, usage.OrderID, usage.DiscountApplied,
	).Scan(&usage.UsedAt)
	if err != nil {
		return fmt.Errorf("create promo usage: %w", err)
	}
	return nil
}

// IncrementUses bumps the counter atomically. The WHERE clause carries the
// cap check so two concurrent applies cannot both pass it.
func (r *PostgresRepository) IncrementUses(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE promos
		SET current_total_uses = current_total_uses + 1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND (max_total_uses IS NULL OR current_total_uses < max_total_uses)
	`, promoID)
	if err != nil {
		return false, fmt.Errorf("increment promo uses: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
