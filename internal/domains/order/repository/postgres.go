package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"waterstore-backend/internal/domains/order/model"
)

// PostgresRepository implements OrderDetailRepository against PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) OrderDetailRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderDetail, error) {
	query := `
		SELECT
			id, order_id, product_id, quantity,
			price_per_unit, deposit_per_unit, subtotal,
			containers_returned, deposit_charged, deposit_refunded,
			created_at, updated_at
		FROM order_details
		WHERE order_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order details: %w", err)
	}
	defer rows.Close()

	var details []model.OrderDetail
	for rows.Next() {
		var d model.OrderDetail
		err := rows.Scan(
			&d.ID,
			&d.OrderID,
			&d.ProductID,
			&d.Quantity,
			&d.PricePerUnit,
			&d.DepositPerUnit,
			&d.Subtotal,
			&d.ContainersReturned,
			&d.DepositCharged,
			&d.DepositRefunded,
			&d.CreatedAt,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		details = append(details, d)
	}

	return details, rows.Err()
}

func (r *PostgresRepository) GetOrderOwner(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	query := `SELECT user_id FROM orders WHERE id = $1`

	var userID uuid.UUID
	err := r.db.QueryRow(ctx, query, orderID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, model.ErrOrderNotFound
		}
		return uuid.Nil, fmt.Errorf("get order owner: %w", err)
	}

	return userID, nil
}

func (r *PostgresRepository) UpdateContainersReturned(ctx context.Context, tx pgx.Tx, detailID uuid.UUID, containersReturned int) error {
	query := `
		UPDATE order_details
		SET containers_returned = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, detailID, containersReturned)
	if err != nil {
		return fmt.Errorf("update containers returned: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrOrderDetailNotFound
	}

	return nil
}
