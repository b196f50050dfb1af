package repository

import (
	"context"

	"github.com/google/uuid"

	"waterstore-backend/internal/domains/user/model"
)

// UserReader is the account lookup used by campaign eligibility checks.
type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetCompletedOrderCount backs the first-order-only campaign rule.
	GetCompletedOrderCount(ctx context.Context, userID uuid.UUID) (int, error)
}
