package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	catalogModel "waterstore-backend/internal/domains/catalog/model"
	"waterstore-backend/internal/domains/deposit/model"
	orderModel "waterstore-backend/internal/domains/order/model"
	"waterstore-backend/pkg/database"
)

// -------------------------------------------------------------------
// FAKES
// -------------------------------------------------------------------

type ledgerKey struct {
	user    uuid.UUID
	product uuid.UUID
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[ledgerKey]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[ledgerKey]int)}
}

func (f *fakeLedger) set(user, product uuid.UUID, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[ledgerKey{user, product}] = n
}

func (f *fakeLedger) GetBalance(ctx context.Context, userID, productID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[ledgerKey{userID, productID}], nil
}

func (f *fakeLedger) GetBalances(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]int, len(productIDs))
	for _, id := range productIDs {
		out[id] = f.balances[ledgerKey{userID, id}]
	}
	return out, nil
}

func (f *fakeLedger) Decrement(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := ledgerKey{userID, productID}
	if f.balances[key] < n {
		return model.ErrInsufficientContainers
	}
	f.balances[key] -= n
	return nil
}

func (f *fakeLedger) Increment(ctx context.Context, tx pgx.Tx, userID, productID uuid.UUID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[ledgerKey{userID, productID}] += n
	return nil
}

type fakeCatalog struct {
	products map[uuid.UUID]*catalogModel.Product
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*catalogModel.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, catalogModel.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalogModel.Product, error) {
	out := make(map[uuid.UUID]*catalogModel.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeOrders struct {
	mu       sync.Mutex
	owner    uuid.UUID
	details  []orderModel.OrderDetail
	returned map[uuid.UUID]int
}

func (f *fakeOrders) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]orderModel.OrderDetail, error) {
	return f.details, nil
}

func (f *fakeOrders) GetOrderOwner(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	if f.owner == uuid.Nil {
		return uuid.Nil, orderModel.ErrOrderNotFound
	}
	return f.owner, nil
}

func (f *fakeOrders) UpdateContainersReturned(ctx context.Context, tx pgx.Tx, detailID uuid.UUID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.returned == nil {
		f.returned = make(map[uuid.UUID]int)
	}
	f.returned[detailID] = n
	return nil
}

// fakeRunner executes the transactional closure directly; the fakes
// above ignore the tx handle.
type fakeRunner struct{}

func (fakeRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

func activeProduct(price, deposit string) *catalogModel.Product {
	return &catalogModel.Product{
		ID:            uuid.New(),
		Name:          "19L bottle",
		SellPrice:     decimal.RequireFromString(price),
		DepositAmount: decimal.RequireFromString(deposit),
		Status:        catalogModel.ProductStatusActive,
	}
}

// -------------------------------------------------------------------
// CALCULATE
// -------------------------------------------------------------------

func TestCalculateUsesMinOfBalanceAndOrdered(t *testing.T) {
	userID := uuid.New()
	product := activeProduct("2.50", "0.20")

	ledger := newFakeLedger()
	ledger.set(userID, product.ID, 3)

	svc := NewDepositService(ledger, &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{product.ID: product}}, &fakeOrders{}, fakeRunner{})

	calc, err := svc.Calculate(context.Background(), userID, map[uuid.UUID]int{product.ID: 5})
	require.NoError(t, err)
	require.Len(t, calc.Products, 1)

	line := calc.Products[0]
	require.Equal(t, 5, line.OrderedQuantity)
	require.Equal(t, 3, line.AvailableContainers)
	require.Equal(t, 3, line.ContainersUsed)
	require.Equal(t, "0.60", line.DepositRefund.StringFixed(2))
	require.Equal(t, 3, calc.TotalContainersUsed)
	require.Equal(t, "0.60", calc.TotalDepositRefunded.StringFixed(2))
}

func TestCalculateBalanceExceedsOrdered(t *testing.T) {
	userID := uuid.New()
	product := activeProduct("2.50", "0.20")

	ledger := newFakeLedger()
	ledger.set(userID, product.ID, 10)

	svc := NewDepositService(ledger, &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{product.ID: product}}, &fakeOrders{}, fakeRunner{})

	calc, err := svc.Calculate(context.Background(), userID, map[uuid.UUID]int{product.ID: 4})
	require.NoError(t, err)
	require.Equal(t, 4, calc.Products[0].ContainersUsed)

	// The preview must not touch the ledger.
	balance, _ := ledger.GetBalance(context.Background(), userID, product.ID)
	require.Equal(t, 10, balance)
}

func TestCalculateZeroBalanceWithoutEntry(t *testing.T) {
	userID := uuid.New()
	product := activeProduct("2.50", "0.20")

	svc := NewDepositService(newFakeLedger(), &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{product.ID: product}}, &fakeOrders{}, fakeRunner{})

	calc, err := svc.Calculate(context.Background(), userID, map[uuid.UUID]int{product.ID: 2})
	require.NoError(t, err)
	require.Equal(t, 0, calc.Products[0].ContainersUsed)
	require.True(t, calc.TotalDepositRefunded.IsZero())
}

func TestCalculateRejectsNonPositiveQuantity(t *testing.T) {
	product := activeProduct("2.50", "0.20")
	svc := NewDepositService(newFakeLedger(), &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{product.ID: product}}, &fakeOrders{}, fakeRunner{})

	_, err := svc.Calculate(context.Background(), uuid.New(), map[uuid.UUID]int{product.ID: 0})
	require.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestCalculateUnknownProduct(t *testing.T) {
	svc := NewDepositService(newFakeLedger(), &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{}}, &fakeOrders{}, fakeRunner{})

	_, err := svc.Calculate(context.Background(), uuid.New(), map[uuid.UUID]int{uuid.New(): 1})
	require.ErrorIs(t, err, catalogModel.ErrProductNotFound)
}

// -------------------------------------------------------------------
// RESERVE / RELEASE
// -------------------------------------------------------------------

func TestReserveDecrementsBalances(t *testing.T) {
	userID := uuid.New()
	product := activeProduct("2.50", "0.20")

	ledger := newFakeLedger()
	ledger.set(userID, product.ID, 5)

	svc := NewDepositService(ledger, &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{product.ID: product}}, &fakeOrders{}, fakeRunner{})

	err := svc.Reserve(context.Background(), userID, map[uuid.UUID]int{product.ID: 3})
	require.NoError(t, err)

	balance, _ := ledger.GetBalance(context.Background(), userID, product.ID)
	require.Equal(t, 2, balance)
}

func TestReserveFailsWhenBalanceRacedBelow(t *testing.T) {
	userID := uuid.New()
	product := activeProduct("2.50", "0.20")

	ledger := newFakeLedger()
	ledger.set(userID, product.ID, 2)

	svc := NewDepositService(ledger, &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{product.ID: product}}, &fakeOrders{}, fakeRunner{})

	err := svc.Reserve(context.Background(), userID, map[uuid.UUID]int{product.ID: 3})
	require.ErrorIs(t, err, model.ErrInsufficientContainers)
}

func TestReleaseRecreditsReturnedContainers(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()

	ledger := newFakeLedger()
	svc := NewDepositService(ledger, &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{}}, &fakeOrders{}, fakeRunner{})

	details := []orderModel.OrderDetail{
		{ID: uuid.New(), ProductID: productID, Quantity: 5, ContainersReturned: 3},
		{ID: uuid.New(), ProductID: uuid.New(), Quantity: 2, ContainersReturned: 0},
	}

	require.NoError(t, svc.Release(context.Background(), userID, details))

	balance, _ := ledger.GetBalance(context.Background(), userID, productID)
	require.Equal(t, 3, balance)
}

// -------------------------------------------------------------------
// CREDIT COLLECTED
// -------------------------------------------------------------------

func TestCreditCollectedWritesDetailsAndLedger(t *testing.T) {
	userID := uuid.New()
	productA := uuid.New()
	productB := uuid.New()

	detailA := orderModel.OrderDetail{ID: uuid.New(), ProductID: productA, Quantity: 5}
	detailB := orderModel.OrderDetail{ID: uuid.New(), ProductID: productB, Quantity: 2}

	orders := &fakeOrders{details: []orderModel.OrderDetail{detailA, detailB}}
	ledger := newFakeLedger()

	svc := NewDepositService(ledger, &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{}}, orders, fakeRunner{})

	err := svc.CreditCollected(context.Background(), userID, orders.details, []model.CollectedItem{
		{ProductID: productA, Quantity: 4},
	})
	require.NoError(t, err)

	// Driver collected 4 for A, nothing for B. Both rows are written so
	// the estimate never survives as a phantom actual.
	require.Equal(t, 4, orders.returned[detailA.ID])
	require.Equal(t, 0, orders.returned[detailB.ID])

	balanceA, _ := ledger.GetBalance(context.Background(), userID, productA)
	balanceB, _ := ledger.GetBalance(context.Background(), userID, productB)
	require.Equal(t, 4, balanceA)
	require.Equal(t, 0, balanceB)
}

func TestCreditCollectedRejectsNegativeQuantity(t *testing.T) {
	svc := NewDepositService(newFakeLedger(), &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{}}, &fakeOrders{}, fakeRunner{})

	err := svc.CreditCollected(context.Background(), uuid.New(), nil, []model.CollectedItem{
		{ProductID: uuid.New(), Quantity: -1},
	})
	require.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestCreditCollectedRejectsForeignProduct(t *testing.T) {
	productID := uuid.New()
	details := []orderModel.OrderDetail{{ID: uuid.New(), ProductID: productID, Quantity: 1}}

	svc := NewDepositService(newFakeLedger(), &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{}}, &fakeOrders{details: details}, fakeRunner{})

	err := svc.CreditCollected(context.Background(), uuid.New(), details, []model.CollectedItem{
		{ProductID: uuid.New(), Quantity: 1},
	})
	require.ErrorIs(t, err, orderModel.ErrOrderDetailNotFound)
}
