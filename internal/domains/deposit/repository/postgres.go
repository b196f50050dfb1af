package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"waterstore-backend/internal/domains/deposit/model"
)

// PostgresRepository implements LedgerRepository against PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) LedgerRepository {
	return &PostgresRepository{db: db}
}

// GetBalance returns the current balance, 0 when no entry exists yet.
func (r *PostgresRepository) GetBalance(ctx context.Context, userID, productID uuid.UUID) (int, error) {
	query := `
		SELECT quantity
		FROM container_ledger
		WHERE user_id = $1 AND product_id = $2
	`

	var quantity int
	err := r.db.QueryRow(ctx, query, userID, productID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get ledger balance: %w", err)
	}

	return quantity, nil
}

// GetBalances fetches balances for several products at once. Products
// without an entry are present in the result with balance 0.
func (r *PostgresRepository) GetBalances(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	balances := make(map[uuid.UUID]int, len(productIDs))
	for _, id := range productIDs {
		balances[id] = 0
	}

	if len(productIDs) == 0 {
		return balances, nil
	}

	query := `
		SELECT user_id, product_id, quantity, updated_at
		FROM container_ledger
		WHERE user_id = $1 AND product_id = ANY($2)
	`

	rows, err := r.db.Query(ctx, query, userID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get ledger balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.ContainerLedgerEntry
		if err := rows.Scan(&entry.UserID, &entry.ProductID, &entry.Quantity, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		balances[entry.ProductID] = entry.Quantity
	}

	return balances, rows.Err()
}

// Decrement is the atomic conditional write guarding the non-negativity
// invariant: zero rows affected means the balance was below n.
func (r *PostgresRepository) Decrement(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID, n int) error {
	if n <= 0 {
		return model.ErrInvalidQuantity
	}

	query := `
		UPDATE container_ledger
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2 AND quantity >= $3
	`

	result, err := tx.Exec(ctx, query, userID, productID, n)
	if err != nil {
		return fmt.Errorf("decrement ledger: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrInsufficientContainers
	}

	return nil
}

// Increment upserts the entry, creating it lazily on first credit.
func (r *PostgresRepository) Increment(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID, n int) error {
	if n <= 0 {
		return model.ErrInvalidQuantity
	}

	query := `
		INSERT INTO container_ledger (user_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = container_ledger.quantity + $3, updated_at = NOW()
	`

	if _, err := tx.Exec(ctx, query, userID, productID, n); err != nil {
		return fmt.Errorf("increment ledger: %w", err)
	}

	return nil
}
