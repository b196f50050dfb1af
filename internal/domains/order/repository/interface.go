package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"waterstore-backend/internal/domains/order/model"
)

// OrderDetailRepository gives the deposit domain access to persisted
// order lines: reading them for totals and writing the driver-reported
// container counts at delivery.
type OrderDetailRepository interface {
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderDetail, error)

	// GetOrderOwner resolves the customer an order belongs to.
	GetOrderOwner(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)

	// UpdateContainersReturned writes the collected container count onto a
	// detail row inside the caller's transaction.
	UpdateContainersReturned(ctx context.Context, tx pgx.Tx, detailID uuid.UUID, containersReturned int) error
}
