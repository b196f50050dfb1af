package repository

import (
	"context"

	"github.com/google/uuid"

	"waterstore-backend/internal/domains/catalog/model"
)

// ProductReader is the catalog lookup the pricing engine depends on.
type ProductReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.Product, error)
}
