package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"waterstore-backend/internal/domains/campaign/model"
	catalogModel "waterstore-backend/internal/domains/catalog/model"
	userModel "waterstore-backend/internal/domains/user/model"
	"waterstore-backend/pkg/database"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// -------------------------------------------------------------------
// FAKES
// -------------------------------------------------------------------

type usageKey struct {
	campaign uuid.UUID
	user     uuid.UUID
}

type fakeCampaignRepo struct {
	mu          sync.Mutex
	campaigns   map[uuid.UUID]*model.Campaign
	byCode      map[string]uuid.UUID
	usageCounts map[usageKey]int
	usages      []*model.CampaignUsage
	expired     []uuid.UUID
}

func newFakeCampaignRepo(campaigns ...*model.Campaign) *fakeCampaignRepo {
	f := &fakeCampaignRepo{
		campaigns:   make(map[uuid.UUID]*model.Campaign),
		byCode:      make(map[string]uuid.UUID),
		usageCounts: make(map[usageKey]int),
	}
	for _, c := range campaigns {
		f.campaigns[c.ID] = c
		f.byCode[c.Code] = c.ID
	}
	return f
}

func (f *fakeCampaignRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, model.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaignRepo) FindByCode(ctx context.Context, code string) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byCode[code]
	if !ok {
		return nil, model.ErrCampaignNotFound
	}
	cp := *f.campaigns[id]
	return &cp, nil
}

func (f *fakeCampaignRepo) CheckCodeExists(ctx context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byCode[code]
	return ok, nil
}

func (f *fakeCampaignRepo) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []*model.Campaign
	for _, c := range f.campaigns {
		if c.Status == model.StatusActive {
			cp := *c
			active = append(active, &cp)
		}
	}
	return active, nil
}

func (f *fakeCampaignRepo) GetUserUsageCount(ctx context.Context, campaignID, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usageCounts[usageKey{campaignID, userID}], nil
}

func (f *fakeCampaignRepo) Create(ctx context.Context, campaign *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byCode[campaign.Code]; ok {
		return model.ErrDuplicateCode
	}
	f.campaigns[campaign.ID] = campaign
	f.byCode[campaign.Code] = campaign.ID
	return nil
}

func (f *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return model.ErrCampaignNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeCampaignRepo) MarkExpired(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[id]; ok && c.Status != model.StatusExpired {
		c.Status = model.StatusExpired
		f.expired = append(f.expired, id)
	}
	return nil
}

func (f *fakeCampaignRepo) MarkAllExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for _, c := range f.campaigns {
		if c.Status == model.StatusActive && now.After(c.ValidTo) {
			c.Status = model.StatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeCampaignRepo) CreateUsage(ctx context.Context, tx pgx.Tx, usage *model.CampaignUsage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usages = append(f.usages, usage)
	f.usageCounts[usageKey{usage.CampaignID, usage.UserID}]++
	return nil
}

func (f *fakeCampaignRepo) IncrementUses(ctx context.Context, tx pgx.Tx, campaignID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[campaignID]
	if !ok {
		return false, nil
	}
	if c.MaxTotalUses != nil && c.CurrentTotalUses >= *c.MaxTotalUses {
		return false, nil
	}
	c.CurrentTotalUses++
	return true, nil
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
	out := make(map[uuid.UUID]*catalogModel.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeUsers struct {
	users           map[uuid.UUID]*userModel.User
	completedOrders map[uuid.UUID]int
}

func (f *fakeUsers) GetUser(ctx context.Context, id uuid.UUID) (*userModel.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return &userModel.User{ID: id, RegistrationDate: time.Now().Add(-365 * 24 * time.Hour), IsActive: true}, nil
}

func (f *fakeUsers) GetCompletedOrderCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.completedOrders[userID], nil
}

type fakeRunner struct{}

func (fakeRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// -------------------------------------------------------------------
// FIXTURES
// -------------------------------------------------------------------

func activeProduct(price string) *catalogModel.Product {
	return &catalogModel.Product{
		ID:        uuid.New(),
		Name:      "Spring Water 19L",
		SellPrice: dec(price),
		Status:    catalogModel.ProductStatusActive,
	}
}

// buy3Get1 wires a buy-3-get-1 campaign over fresh trigger and reward
// products, returning the service with everything registered.
func buy3Get1() (*model.Campaign, *catalogModel.Product, *catalogModel.Product, *fakeCampaignRepo, *fakeCatalog, *fakeUsers) {
	buy := activeProduct("2.50")
	free := activeProduct("2.50")
	campaign := &model.Campaign{
		ID:            uuid.New(),
		Code:          "BUY3GET1",
		Name:          "Buy 3 Get 1 Free",
		BuyProductID:  buy.ID,
		BuyQuantity:   3,
		FreeProductID: free.ID,
		FreeQuantity:  1,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidTo:       time.Now().Add(time.Hour),
		Status:        model.StatusActive,
		Version:       1,
	}
	repo := newFakeCampaignRepo(campaign)
	catalog := &fakeCatalog{products: map[uuid.UUID]*catalogModel.Product{
		buy.ID:  buy,
		free.ID: free,
	}}
	users := &fakeUsers{
		users:           make(map[uuid.UUID]*userModel.User),
		completedOrders: make(map[uuid.UUID]int),
	}
	return campaign, buy, free, repo, catalog, users
}

func newService(repo *fakeCampaignRepo, catalog *fakeCatalog, users *fakeUsers) ServiceInterface {
	return NewCampaignService(repo, catalog, users, fakeRunner{}, nil)
}

// -------------------------------------------------------------------
// VALIDATE
// -------------------------------------------------------------------

func TestValidateMultiplierFloors(t *testing.T) {
	campaign, buy, free, repo, catalog, users := buy3Get1()
	campaign.BuyQuantity = 2
	svc := newService(repo, catalog, users)

	// 5 trigger units against buy-2 earns exactly 2 rewards.
	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "buy3get1",
		Items:  []model.BasketItemRef{{ProductID: buy.ID, Quantity: 5}},
		UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, result.IsValid)
	require.Equal(t, 2, result.Multiplier)
	require.Equal(t, 2, result.FreeUnits)
	require.Equal(t, free.ID, result.FreeProductID)
	require.Equal(t, "5.00", result.FreeValue.StringFixed(2))
}

func TestValidateTriggerNotMet(t *testing.T) {
	_, buy, _, repo, catalog, users := buy3Get1()
	svc := newService(repo, catalog, users)

	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "BUY3GET1",
		Items:  []model.BasketItemRef{{ProductID: buy.ID, Quantity: 2}},
		UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.Equal(t, 0, result.Multiplier)
}

func TestValidateExhaustedCampaignReportsLimitBeforeTrigger(t *testing.T) {
	campaign, buy, _, repo, catalog, users := buy3Get1()
	max := 10
	campaign.MaxTotalUses = &max
	campaign.CurrentTotalUses = 10
	svc := newService(repo, catalog, users)

	// Trigger quantity is also short; the usage cap must win.
	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "BUY3GET1",
		Items:  []model.BasketItemRef{{ProductID: buy.ID, Quantity: 1}},
		UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.Equal(t, "Campaign usage limit has been reached", result.Message)
}

func TestValidateOnlyTriggerProductCounts(t *testing.T) {
	_, _, _, repo, catalog, users := buy3Get1()
	svc := newService(repo, catalog, users)

	// Same price, different product: does not trigger the campaign.
	other := activeProduct("2.50")
	catalog.products[other.ID] = other

	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "BUY3GET1",
		Items:  []model.BasketItemRef{{ProductID: other.ID, Quantity: 6}},
		UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
}

func TestValidatePromoConflict(t *testing.T) {
	campaign, buy, _, repo, catalog, users := buy3Get1()
	campaign.RequiresPromoAbsence = true
	svc := newService(repo, catalog, users)

	items := []model.BasketItemRef{{ProductID: buy.ID, Quantity: 3}}

	withPromo, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code: "BUY3GET1", Items: items, HasPromo: true, UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, withPromo.IsValid)

	withoutPromo, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code: "BUY3GET1", Items: items, HasPromo: false, UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, withoutPromo.IsValid)
}

func TestValidateFirstOrderOnly(t *testing.T) {
	campaign, buy, _, repo, catalog, users := buy3Get1()
	campaign.FirstOrderOnly = true
	svc := newService(repo, catalog, users)

	returning := uuid.New()
	users.completedOrders[returning] = 3

	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "BUY3GET1",
		Items:  []model.BasketItemRef{{ProductID: buy.ID, Quantity: 3}},
		UserID: returning,
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
}

func TestValidateRegistrationAge(t *testing.T) {
	campaign, buy, _, repo, catalog, users := buy3Get1()
	minDays := 30
	campaign.MinDaysSinceRegistration = &minDays
	svc := newService(repo, catalog, users)

	newcomer := uuid.New()
	users.users[newcomer] = &userModel.User{
		ID:               newcomer,
		RegistrationDate: time.Now().Add(-5 * 24 * time.Hour),
		IsActive:         true,
	}

	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "BUY3GET1",
		Items:  []model.BasketItemRef{{ProductID: buy.ID, Quantity: 3}},
		UserID: newcomer,
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
}

func TestValidateFreeProductGone(t *testing.T) {
	_, buy, free, repo, catalog, users := buy3Get1()
	free.Status = catalogModel.ProductStatusInactive
	svc := newService(repo, catalog, users)

	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "BUY3GET1",
		Items:  []model.BasketItemRef{{ProductID: buy.ID, Quantity: 3}},
		UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.NotEmpty(t, result.Message)
}

func TestValidateAutoExpiresStaleActiveRow(t *testing.T) {
	campaign, buy, _, repo, catalog, users := buy3Get1()
	campaign.ValidFrom = time.Now().Add(-48 * time.Hour)
	campaign.ValidTo = time.Now().Add(-24 * time.Hour)
	svc := newService(repo, catalog, users)

	result, err := svc.ValidateCampaign(context.Background(), &model.ValidateCampaignRequest{
		Code:   "BUY3GET1",
		Items:  []model.BasketItemRef{{ProductID: buy.ID, Quantity: 3}},
		UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	require.Contains(t, repo.expired, campaign.ID)
}

// -------------------------------------------------------------------
// ELIGIBLE CAMPAIGNS
// -------------------------------------------------------------------

func TestEligibleCampaignsCoalescesFreeProducts(t *testing.T) {
	campaign, buy, free, repo, catalog, users := buy3Get1()

	// Second campaign rewards the same product from a different trigger.
	otherBuy := activeProduct("4.00")
	catalog.products[otherBuy.ID] = otherBuy
	second := &model.Campaign{
		ID:            uuid.New(),
		Code:          "BULK6",
		Name:          "Bulk Six Pack",
		BuyProductID:  otherBuy.ID,
		BuyQuantity:   6,
		FreeProductID: free.ID,
		FreeQuantity:  2,
		ValidFrom:     campaign.ValidFrom,
		ValidTo:       campaign.ValidTo,
		Status:        model.StatusActive,
		Version:       1,
	}
	require.NoError(t, repo.Create(context.Background(), second))

	svc := newService(repo, catalog, users)

	result, err := svc.GetEligibleCampaigns(context.Background(), &model.EligibleCampaignsRequest{
		Items: []model.BasketItemRef{
			{ProductID: buy.ID, Quantity: 3},
			{ProductID: otherBuy.ID, Quantity: 6},
		},
		UserID: uuid.New(),
	})
	require.NoError(t, err)
	require.Len(t, result.Campaigns, 2)
	for _, entry := range result.Campaigns {
		require.True(t, entry.WillBeApplied)
	}

	// 1 unit from the first campaign plus 2 from the second, same product.
	require.Len(t, result.FreeProducts, 1)
	require.Equal(t, free.ID, result.FreeProducts[0].ProductID)
	require.Equal(t, 3, result.FreeProducts[0].Quantity)
	require.Equal(t, "7.50", result.FreeProducts[0].Value.StringFixed(2))
	require.Equal(t, "7.50", result.TotalCampaignDiscount.StringFixed(2))
}

func TestEligibleCampaignsReportsNotAppliedReason(t *testing.T) {
	campaign, buy, _, repo, catalog, users := buy3Get1()
	campaign.RequiresPromoAbsence = true
	svc := newService(repo, catalog, users)

	result, err := svc.GetEligibleCampaigns(context.Background(), &model.EligibleCampaignsRequest{
		Items:        []model.BasketItemRef{{ProductID: buy.ID, Quantity: 3}},
		WillUsePromo: true,
		UserID:       uuid.New(),
	})
	require.NoError(t, err)
	require.Len(t, result.Campaigns, 1)
	require.False(t, result.Campaigns[0].WillBeApplied)
	require.NotEmpty(t, result.Campaigns[0].NotAppliedReason)
	require.Empty(t, result.FreeProducts)
	require.True(t, result.TotalCampaignDiscount.IsZero())
}

// -------------------------------------------------------------------
// APPLY
// -------------------------------------------------------------------

func TestApplyRecordsUsageAndIncrementsCounter(t *testing.T) {
	campaign, buy, free, repo, catalog, users := buy3Get1()
	svc := newService(repo, catalog, users)

	orderID := uuid.New()
	result, err := svc.ApplyCampaign(context.Background(), &model.ApplyCampaignRequest{
		Code:    "BUY3GET1",
		OrderID: orderID,
		Items:   []model.BasketItemRef{{ProductID: buy.ID, Quantity: 6}},
		UserID:  uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, free.ID, result.FreeProductID)
	require.Equal(t, 2, result.FreeUnits)
	require.Equal(t, "5.00", result.FreeValue.StringFixed(2))

	require.Len(t, repo.usages, 1)
	require.Equal(t, orderID, repo.usages[0].OrderID)
	require.Equal(t, 1, repo.campaigns[campaign.ID].CurrentTotalUses)
}

func TestApplyReturnsTypedErrorWhenTriggerNotMet(t *testing.T) {
	_, buy, _, repo, catalog, users := buy3Get1()
	svc := newService(repo, catalog, users)

	_, err := svc.ApplyCampaign(context.Background(), &model.ApplyCampaignRequest{
		Code:    "BUY3GET1",
		OrderID: uuid.New(),
		Items:   []model.BasketItemRef{{ProductID: buy.ID, Quantity: 1}},
		UserID:  uuid.New(),
	})
	require.ErrorIs(t, err, model.ErrTriggerNotMet)
}

func TestConcurrentAppliesNeverOversellGlobalCap(t *testing.T) {
	campaign, buy, _, repo, catalog, users := buy3Get1()
	max := 1
	campaign.MaxTotalUses = &max
	svc := newService(repo, catalog, users)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyCampaign(context.Background(), &model.ApplyCampaignRequest{
				Code:    "BUY3GET1",
				OrderID: uuid.New(),
				Items:   []model.BasketItemRef{{ProductID: buy.ID, Quantity: 3}},
				UserID:  uuid.New(),
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
	require.Equal(t, 1, repo.campaigns[campaign.ID].CurrentTotalUses)
}

// -------------------------------------------------------------------
// CREATE
// -------------------------------------------------------------------

func TestCreateCampaignRejectsUnknownBuyProduct(t *testing.T) {
	_, _, free, repo, catalog, users := buy3Get1()
	svc := newService(repo, catalog, users)

	_, err := svc.CreateCampaign(context.Background(), &model.CreateCampaignRequest{
		Code:          "NEWDEAL",
		Name:          "New Deal",
		BuyProductID:  uuid.NewString(),
		BuyQuantity:   2,
		FreeProductID: free.ID.String(),
		FreeQuantity:  1,
		ValidFrom:     time.Now().Format(time.RFC3339),
		ValidTo:       time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Error(t, err)
}

func TestCreateCampaignRejectsDuplicateCode(t *testing.T) {
	_, buy, free, repo, catalog, users := buy3Get1()
	svc := newService(repo, catalog, users)

	_, err := svc.CreateCampaign(context.Background(), &model.CreateCampaignRequest{
		Code:          "buy3get1",
		Name:          "Copycat",
		BuyProductID:  buy.ID.String(),
		BuyQuantity:   3,
		FreeProductID: free.ID.String(),
		FreeQuantity:  1,
		ValidFrom:     time.Now().Format(time.RFC3339),
		ValidTo:       time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.ErrorIs(t, err, model.ErrDuplicateCode)
}
