package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"waterstore-backend/internal/domains/campaign/model"
)

// PostgresRepository implements CampaignRepository with PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance
func NewPostgresRepository(db *pgxpool.Pool) CampaignRepository {
	return &PostgresRepository{db: db}
}

const campaignColumns = `
	id, code, name, description,
	buy_product_id, buy_quantity, free_product_id, free_quantity,
	first_order_only, min_days_since_registration, requires_promo_absence,
	max_uses_per_user, max_total_uses, current_total_uses,
	valid_from, valid_to, status, version,
	created_at, updated_at`

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Description, // nullable
		&c.BuyProductID,
		&c.BuyQuantity,
		&c.FreeProductID,
		&c.FreeQuantity,
		&c.FirstOrderOnly,
		&c.MinDaysSinceRegistration, // nullable
		&c.RequiresPromoAbsence,
		&c.MaxUsesPerUser, // nullable
		&c.MaxTotalUses,   // nullable
		&c.CurrentTotalUses,
		&c.ValidFrom,
		&c.ValidTo,
		&c.Status,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

// FindByID finds a campaign by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c, err := scanCampaign(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("find campaign by id: %w", err)
	}
	return c, nil
}

// FindByCode finds a campaign by code, without filtering on status or window
func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE code = $1`

	c, err := scanCampaign(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("find campaign by code: %w", err)
	}
	return c, nil
}

// CheckCodeExists reports whether a campaign code is already taken
func (r *PostgresRepository) CheckCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM campaigns WHERE code = $1)`, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check campaign code exists: %w", err)
	}
	return exists, nil
}

// ListActive returns every campaign whose stored status is active
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = 'active' ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return campaigns, nil
}

// GetUserUsageCount counts how many times a user has triggered a campaign
func (r *PostgresRepository) GetUserUsageCount(ctx context.Context, campaignID, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM campaign_usage WHERE campaign_id = $1 AND user_id = $2`,
		campaignID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get campaign usage count: %w", err)
	}
	return count, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

// Create inserts a new campaign
func (r *PostgresRepository) Create(ctx context.Context, campaign *model.Campaign) error {
	query := `
		INSERT INTO campaigns (
			id, code, name, description,
			buy_product_id, buy_quantity, free_product_id, free_quantity,
			first_order_only, min_days_since_registration, requires_promo_absence,
			max_uses_per_user, max_total_uses, current_total_uses,
			valid_from, valid_to, status, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		campaign.ID, campaign.Code, campaign.Name, campaign.Description,
		campaign.BuyProductID, campaign.BuyQuantity, campaign.FreeProductID, campaign.FreeQuantity,
		campaign.FirstOrderOnly, campaign.MinDaysSinceRegistration, campaign.RequiresPromoAbsence,
		campaign.MaxUsesPerUser, campaign.MaxTotalUses, campaign.CurrentTotalUses,
		campaign.ValidFrom, campaign.ValidTo, campaign.Status, campaign.Version,
	).Scan(&campaign.CreatedAt, &campaign.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrDuplicateCode
		}
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// UpdateStatus sets the persisted status of a campaign
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE campaigns SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCampaignNotFound
	}
	return nil
}

// MarkExpired corrects the status cache for a campaign found past its window
func (r *PostgresRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE campaigns
		SET status = 'expired', version = version + 1, updated_at = NOW()
		WHERE id = $1 AND status <> 'expired' AND valid_to < NOW()
	`, id)
	if err != nil {
		return fmt.Errorf("mark campaign expired: %w", err)
	}
	return nil
}

// MarkAllExpired is the periodic sweep over all active rows past valid_to
func (r *PostgresRepository) MarkAllExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns
		SET status = 'expired', version = version + 1, updated_at = NOW()
		WHERE status = 'active' AND valid_to < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("mark campaigns expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

// -------------------------------------------------------------------
// TRANSACTIONAL OPERATIONS
// -------------------------------------------------------------------

// CreateUsage records one campaign application inside the apply transaction
func (r *PostgresRepository) CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.CampaignUsage) error {
	query := `
		INSERT INTO campaign_usage (id, campaign_id, user_id, order_id, free_units, free_value)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING used_at
	`

	err := tx.QueryRow(ctx, query,
		usage.ID, usage.CampaignID, usage.UserID, usage.OrderID, usage.FreeUnits, usage.FreeValue,
	).Scan(&usage.UsedAt)
	if err != nil {
		return fmt.Errorf("create campaign usage: %w", err)
	}
	return nil
}

// IncrementUses bumps the counter atomically, carrying the cap check in
// the WHERE clause.
func (r *PostgresRepository) IncrementUses(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE campaigns
		SET current_total_uses = current_total_uses + 1,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND (max_total_uses IS NULL OR current_total_uses < max_total_uses)
	`, campaignID)
	if err != nil {
		return false, fmt.Errorf("increment campaign uses: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
