package service

import (
	"context"

	"github.com/google/uuid"

	depositModel "waterstore-backend/internal/domains/deposit/model"
	orderModel "waterstore-backend/internal/domains/order/model"
)

type ServiceInterface interface {
	// Calculate is the read-only deposit preview: no ledger mutation.
	Calculate(ctx context.Context, userID uuid.UUID, quantities map[uuid.UUID]int) (*depositModel.DepositCalculation, error)

	// Reserve decrements the ledger for containers consumed at order
	// creation; all products succeed or none do.
	Reserve(ctx context.Context, userID uuid.UUID, containersUsed map[uuid.UUID]int) error

	// Release re-credits reserved containers when an order is cancelled
	// or deleted after reservation.
	Release(ctx context.Context, userID uuid.UUID, details []orderModel.OrderDetail) error

	// CreditCollected records the driver-reported collected containers at
	// delivery: detail rows get the actual count, the ledger gains credit.
	CreditCollected(ctx context.Context, userID uuid.UUID, details []orderModel.OrderDetail, collected []depositModel.CollectedItem) error
}
