package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	catalogModel "waterstore-backend/internal/domains/catalog/model"
	catalogRepo "waterstore-backend/internal/domains/catalog/repository"
	"waterstore-backend/internal/domains/deposit/model"
	"waterstore-backend/internal/domains/deposit/repository"
	orderModel "waterstore-backend/internal/domains/order/model"
	orderRepo "waterstore-backend/internal/domains/order/repository"
	"waterstore-backend/internal/shared/money"
	"waterstore-backend/pkg/database"
	"waterstore-backend/pkg/logger"
)

// depositService owns the container ledger and the deposit arithmetic.
type depositService struct {
	ledger  repository.LedgerRepository
	catalog catalogRepo.ProductReader
	orders  orderRepo.OrderDetailRepository
	tx      database.Runner
}

func NewDepositService(
	ledger repository.LedgerRepository,
	catalog catalogRepo.ProductReader,
	orders orderRepo.OrderDetailRepository,
	tx database.Runner,
) ServiceInterface {
	return &depositService{
		ledger:  ledger,
		catalog: catalog,
		orders:  orders,
		tx:      tx,
	}
}

// -------------------------------------------------------------------
// DEPOSIT CALCULATION (READ-ONLY)
// -------------------------------------------------------------------

// Calculate computes, per product, how many of the ordered units can be
// covered by banked empties and what refund that is worth.
//
// For each product:
//   - availableContainers = current ledger balance (0 without an entry)
//   - containersUsed      = min(availableContainers, orderedQuantity)
//   - depositRefund       = round2(depositPerUnit × containersUsed)
//
// The ledger is only read here; reservation is a separate explicit step
// so a price preview never mutates state.
func (s *depositService) Calculate(ctx context.Context, userID uuid.UUID, quantities map[uuid.UUID]int) (*model.DepositCalculation, error) {
	productIDs := make([]uuid.UUID, 0, len(quantities))
	for id, qty := range quantities {
		if qty <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		productIDs = append(productIDs, id)
	}
	// Stable output order regardless of map iteration.
	sort.Slice(productIDs, func(i, j int) bool {
		return productIDs[i].String() < productIDs[j].String()
	})

	balances, err := s.ledger.GetBalances(ctx, userID, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get ledger balances: %w", err)
	}

	products, err := s.catalog.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	calc := &model.DepositCalculation{
		Products:             make([]model.ProductDeposit, 0, len(productIDs)),
		TotalDepositRefunded: decimal.Zero,
	}

	for _, productID := range productIDs {
		product, ok := products[productID]
		if !ok {
			return nil, catalogModel.ErrProductNotFound
		}

		ordered := quantities[productID]
		available := balances[productID]

		used := available
		if ordered < used {
			used = ordered
		}

		refund := money.Round2(money.Mul(product.DepositAmount, used))

		calc.Products = append(calc.Products, model.ProductDeposit{
			ProductID:           productID,
			OrderedQuantity:     ordered,
			AvailableContainers: available,
			ContainersUsed:      used,
			DepositPerUnit:      product.DepositAmount,
			DepositRefund:       refund,
		})

		calc.TotalContainersUsed += used
		calc.TotalDepositRefunded = calc.TotalDepositRefunded.Add(refund)
	}

	return calc, nil
}

// -------------------------------------------------------------------
// LEDGER MUTATIONS
// -------------------------------------------------------------------

// Reserve consumes banked containers at order creation. Runs in one
// transaction: a balance raced below the preview fails the whole
// reservation with ErrInsufficientContainers.
func (s *depositService) Reserve(ctx context.Context, userID uuid.UUID, containersUsed map[uuid.UUID]int) error {
	return s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for productID, n := range containersUsed {
			if n <= 0 {
				continue
			}
			if err := s.ledger.Decrement(ctx, tx, userID, productID, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// Release re-credits reserved containers after an order is cancelled.
func (s *depositService) Release(ctx context.Context, userID uuid.UUID, details []orderModel.OrderDetail) error {
	return s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for _, d := range details {
			if d.ContainersReturned <= 0 {
				continue
			}
			if err := s.ledger.Increment(ctx, tx, userID, d.ProductID, d.ContainersReturned); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreditCollected applies the driver's collection report at delivery.
//
// Collection is decoupled from the reservation made at order time: the
// customer may hand over more or fewer bottles than estimated. Whatever
// the driver reports per product is written onto the matching detail row
// and added to the ledger as fresh credit.
func (s *depositService) CreditCollected(ctx context.Context, userID uuid.UUID, details []orderModel.OrderDetail, collected []model.CollectedItem) error {
	collectedByProduct := make(map[uuid.UUID]int, len(collected))
	for _, item := range collected {
		if item.Quantity < 0 {
			return model.ErrInvalidQuantity
		}
		collectedByProduct[item.ProductID] += item.Quantity
	}

	// Every reported product must belong to the order.
	known := make(map[uuid.UUID]bool, len(details))
	for _, d := range details {
		known[d.ProductID] = true
	}
	for productID := range collectedByProduct {
		if !known[productID] {
			return orderModel.ErrOrderDetailNotFound
		}
	}

	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		for _, d := range details {
			qty := collectedByProduct[d.ProductID]

			if err := s.orders.UpdateContainersReturned(ctx, tx, d.ID, qty); err != nil {
				return err
			}

			if qty > 0 {
				if err := s.ledger.Increment(ctx, tx, userID, d.ProductID, qty); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("credited collected containers", map[string]interface{}{
		"user_id": userID,
		"details": len(details),
	})

	return nil
}
