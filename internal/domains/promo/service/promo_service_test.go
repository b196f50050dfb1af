package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"waterstore-backend/internal/domains/promo/model"
	"waterstore-backend/pkg/database"
)

// -------------------------------------------------------------------
// FAKES
// -------------------------------------------------------------------

type usageKey struct {
	promo uuid.UUID
	user  uuid.UUID
}

// fakePromoRepo mirrors the atomic counter semantics of the Postgres
// implementation under a mutex, so concurrency tests exercise the same
// exactly-one-winner behavior.
type fakePromoRepo struct {
	mu          sync.Mutex
	promos      map[uuid.UUID]*model.Promo
	byCode      map[string]uuid.UUID
	usageCounts map[usageKey]int
	usages      []*model.PromoUsage
	expired     []uuid.UUID
}

func newFakePromoRepo(promos ...*model.Promo) *fakePromoRepo {
	f := &fakePromoRepo{
		promos:      make(map[uuid.UUID]*model.Promo),
		byCode:      make(map[string]uuid.UUID),
		usageCounts: make(map[usageKey]int),
	}
	for _, p := range promos {
		f.promos[p.ID] = p
		f.byCode[p.Code] = p.ID
	}
	return f
}

func (f *fakePromoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Promo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promos[id]
	if !ok {
		return nil, model.ErrPromoNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePromoRepo) FindByCode(ctx context.Context, code string) (*model.Promo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byCode[code]
	if !ok {
		return nil, model.ErrPromoNotFound
	}
	cp := *f.promos[id]
	return &cp, nil
}

func (f *fakePromoRepo) CheckCodeExists(ctx context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byCode[code]
	return ok, nil
}

func (f *fakePromoRepo) GetUserUsageCount(ctx context.Context, promoID, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usageCounts[usageKey{promoID, userID}], nil
}

func (f *fakePromoRepo) Create(ctx context.Context, promo *model.Promo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byCode[promo.Code]; ok {
		return model.ErrDuplicateCode
	}
	f.promos[promo.ID] = promo
	f.byCode[promo.Code] = promo.ID
	return nil
}

func (f *fakePromoRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promos[id]
	if !ok {
		return model.ErrPromoNotFound
	}
	p.Status = status
	return nil
}

func (f *fakePromoRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.promos[id]; ok && p.Status != model.StatusExpired {
		p.Status = model.StatusExpired
		f.expired = append(f.expired, id)
	}
	return nil
}

func (f *fakePromoRepo) MarkAllExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for _, p := range f.promos {
		if p.Status == model.StatusActive && now.After(p.ValidTo) {
			p.Status = model.StatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakePromoRepo) CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.PromoUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usages = append(f.usages, usage)
	f.usageCounts[usageKey{usage.PromoID, usage.UserID}]++
	return nil
}

func (f *fakePromoRepo) IncrementUses(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promos[promoID]
	if !ok {
		return false, nil
	}
	if p.MaxTotalUses != nil && p.CurrentTotalUses >= *p.MaxTotalUses {
		return false, nil
	}
	p.CurrentTotalUses++
	return true, nil
}

type fakeRunner struct{}

func (fakeRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

func activePromo(code string) *model.Promo {
	return &model.Promo{
		ID:             uuid.New(),
		Code:           code,
		DiscountType:   model.DiscountTypePercentage,
		DiscountValue:  dec("10"),
		MinOrderAmount: dec("0"),
		ValidFrom:      time.Now().Add(-time.Hour),
		ValidTo:        time.Now().Add(time.Hour),
		Status:         model.StatusActive,
		Version:        1,
	}
}

// -------------------------------------------------------------------
// VALIDATE
// -------------------------------------------------------------------

func TestValidateEligiblePromo(t *testing.T) {
	promo := activePromo("SUMMER10")
	svc := NewPromoService(newFakePromoRepo(promo), fakeRunner{}, nil)

	result, err := svc.ValidatePromo(context.Background(), &model.ValidatePromoRequest{
		Code:        "summer10",
		OrderAmount: dec("100.00"),
		UserID:      uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, result.IsValid)
	require.True(t, result.UserCanUse)
	require.Equal(t, "10.00", result.EstimatedDiscount.StringFixed(2))
}

func TestValidateUnknownCodeIsInvalidNotError(t *testing.T) {
	svc := NewPromoService(newFakePromoRepo(), fakeRunner{}, nil)

	result, err := svc.ValidatePromo(context.Background(), &model.ValidatePromoRequest{
		Code:        "NOPE99",
		OrderAmount: dec("100.00"),
		UserID:      uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.NotEmpty(t, result.Message)
	require.True(t, result.EstimatedDiscount.IsZero())
}

func TestValidateMinOrderNotMet(t *testing.T) {
	promo := activePromo("BIGONLY")
	promo.MinOrderAmount = dec("20.00")
	svc := NewPromoService(newFakePromoRepo(promo), fakeRunner{}, nil)

	result, err := svc.ValidatePromo(context.Background(), &model.ValidatePromoRequest{
		Code:        "BIGONLY",
		OrderAmount: dec("15.00"),
		UserID:      uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.True(t, result.EstimatedDiscount.IsZero())
}

func TestValidateAutoExpiresStaleActiveRow(t *testing.T) {
	promo := activePromo("OLDCODE")
	promo.ValidFrom = time.Now().Add(-48 * time.Hour)
	promo.ValidTo = time.Now().Add(-24 * time.Hour)

	repo := newFakePromoRepo(promo)
	svc := NewPromoService(repo, fakeRunner{}, nil)

	result, err := svc.ValidatePromo(context.Background(), &model.ValidatePromoRequest{
		Code:        "OLDCODE",
		OrderAmount: dec("100.00"),
		UserID:      uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)

	// The stale status cache was corrected as a side effect.
	require.Contains(t, repo.expired, promo.ID)
}

func TestValidatePerUserLimit(t *testing.T) {
	promo := activePromo("ONCEEACH")
	limit := 1
	promo.MaxUsesPerUser = &limit

	repo := newFakePromoRepo(promo)
	userID := uuid.New()
	repo.usageCounts[usageKey{promo.ID, userID}] = 1

	svc := NewPromoService(repo, fakeRunner{}, nil)

	result, err := svc.ValidatePromo(context.Background(), &model.ValidatePromoRequest{
		Code:        "ONCEEACH",
		OrderAmount: dec("50.00"),
		UserID:      userID,
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.False(t, result.UserCanUse)
	require.Equal(t, 1, result.UserUsageCount)
}

// -------------------------------------------------------------------
// APPLY
// -------------------------------------------------------------------

func TestApplyRecordsUsageAndIncrementsCounter(t *testing.T) {
	promo := activePromo("TAKE10")
	repo := newFakePromoRepo(promo)
	svc := NewPromoService(repo, fakeRunner{}, nil)

	userID := uuid.New()
	orderID := uuid.New()

	result, err := svc.ApplyPromo(context.Background(), &model.ApplyPromoRequest{
		Code:        "TAKE10",
		OrderID:     orderID,
		OrderAmount: dec("100.00"),
		UserID:      userID,
	})
	require.NoError(t, err)
	require.Equal(t, "10.00", result.DiscountApplied.StringFixed(2))
	require.Equal(t, "90.00", result.FinalAmount.StringFixed(2))

	require.Len(t, repo.usages, 1)
	require.Equal(t, orderID, repo.usages[0].OrderID)
	require.Equal(t, 1, repo.promos[promo.ID].CurrentTotalUses)
}

func TestApplyReturnsTypedErrorForIneligiblePromo(t *testing.T) {
	promo := activePromo("BIGONLY")
	promo.MinOrderAmount = dec("20.00")
	svc := NewPromoService(newFakePromoRepo(promo), fakeRunner{}, nil)

	_, err := svc.ApplyPromo(context.Background(), &model.ApplyPromoRequest{
		Code:        "BIGONLY",
		OrderID:     uuid.New(),
		OrderAmount: dec("15.00"),
		UserID:      uuid.New(),
	})
	require.ErrorIs(t, err, model.ErrMinOrderNotMet)
}

func TestConcurrentAppliesNeverOversellGlobalCap(t *testing.T) {
	promo := activePromo("LASTONE")
	max := 1
	promo.MaxTotalUses = &max

	repo := newFakePromoRepo(promo)
	svc := NewPromoService(repo, fakeRunner{}, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyPromo(context.Background(), &model.ApplyPromoRequest{
				Code:        "LASTONE",
				OrderID:     uuid.New(),
				OrderAmount: dec("50.00"),
				UserID:      uuid.New(),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, model.ErrTotalLimitExceeded)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, repo.promos[promo.ID].CurrentTotalUses)
}

// -------------------------------------------------------------------
// CREATE
// -------------------------------------------------------------------

func TestCreatePromoNormalizesAndPersists(t *testing.T) {
	repo := newFakePromoRepo()
	svc := NewPromoService(repo, fakeRunner{}, nil)

	promo, err := svc.CreatePromo(context.Background(), &model.CreatePromoRequest{
		Code:          "  welcome5 ",
		DiscountType:  "fixed_amount",
		DiscountValue: 5,
		ValidFrom:     time.Now().Format(time.RFC3339),
		ValidTo:       time.Now().Add(720 * time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, "WELCOME5", promo.Code)
	require.Equal(t, model.StatusActive, promo.Status)
}

func TestCreatePromoRejectsDuplicateCode(t *testing.T) {
	promo := activePromo("TAKEN1")
	svc := NewPromoService(newFakePromoRepo(promo), fakeRunner{}, nil)

	_, err := svc.CreatePromo(context.Background(), &model.CreatePromoRequest{
		Code:          "TAKEN1",
		DiscountType:  "percentage",
		DiscountValue: 10,
		ValidFrom:     time.Now().Format(time.RFC3339),
		ValidTo:       time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.ErrorIs(t, err, model.ErrDuplicateCode)
}

func TestCreatePromoRejectsPercentageAbove9999(t *testing.T) {
	svc := NewPromoService(newFakePromoRepo(), fakeRunner{}, nil)

	_, err := svc.CreatePromo(context.Background(), &model.CreatePromoRequest{
		Code:          "TOOBIG",
		DiscountType:  "percentage",
		DiscountValue: 100,
		ValidFrom:     time.Now().Format(time.RFC3339),
		ValidTo:       time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Error(t, err)
}
