package service

import (
	"context"

	"github.com/shopspring/decimal"

	"waterstore-backend/internal/domains/promo/model"
)

type ServiceInterface interface {
	// Customer-facing
	ValidatePromo(ctx context.Context, req *model.ValidatePromoRequest) (*model.ValidationResult, error)
	ApplyPromo(ctx context.Context, req *model.ApplyPromoRequest) (*model.ApplyResult, error)

	// Admin methods
	CreatePromo(ctx context.Context, req *model.CreatePromoRequest) (*model.Promo, error)
	UpdatePromoStatus(ctx context.Context, id string, status model.Status) error

	// Internal methods (called by the pricing engine and the worker)
	GetPromoByCode(ctx context.Context, code string) (*model.Promo, error)
	CalculateDiscount(promo *model.Promo, orderAmount decimal.Decimal) decimal.Decimal
	ExpireSweep(ctx context.Context) (int64, error)
}
