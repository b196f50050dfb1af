package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository is the data access contract for the container ledger.
//
// Decrement is the guarded write: it must be atomic and conditional on
// the balance staying non-negative, so two concurrent reservations for
// the same (user, product) can never both succeed past the balance.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID, productID uuid.UUID) (int, error)
	GetBalances(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// Decrement subtracts n from the balance only when the balance is at
	// least n; it reports model.ErrInsufficientContainers otherwise and
	// leaves the row unchanged.
	Decrement(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID, n int) error

	// Increment adds n to the balance, creating the entry lazily on the
	// first deposit-bearing purchase.
	Increment(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID, n int) error
}
