package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"waterstore-backend/internal/domains/catalog/model"
)

// PostgresRepository implements ProductReader against PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) ProductReader {
	return &PostgresRepository{db: db}
}

// GetProduct looks up a single product by id.
func (r *PostgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `
		SELECT id, name, sell_price, deposit_amount, status, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.SellPrice,
		&p.DepositAmount,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetProducts fetches a batch of products keyed by id. Missing ids are
// simply absent from the result; the caller decides whether that is fatal.
func (r *PostgresRepository) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*model.Product{}, nil
	}

	query := `
		SELECT id, name, sell_price, deposit_amount, status, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	products := make(map[uuid.UUID]*model.Product, len(ids))
	for rows.Next() {
		var p model.Product
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.SellPrice,
			&p.DepositAmount,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = &p
	}

	return products, rows.Err()
}
