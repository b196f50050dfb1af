package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"waterstore-backend/internal/domains/campaign/model"
	"waterstore-backend/internal/domains/campaign/repository"
	catalogModel "waterstore-backend/internal/domains/catalog/model"
	catalogRepo "waterstore-backend/internal/domains/catalog/repository"
	userRepo "waterstore-backend/internal/domains/user/repository"
	"waterstore-backend/internal/shared/money"
	"waterstore-backend/pkg/cache"
	"waterstore-backend/pkg/database"
	"waterstore-backend/pkg/logger"
)

const (
	activeCampaignsCacheKey = "campaigns:active"
	campaignCacheTTL        = time.Minute
)

// campaignService handles business logic for buy-X-get-Y campaigns
type campaignService struct {
	repo    repository.CampaignRepository
	catalog catalogRepo.ProductReader
	users   userRepo.UserReader
	runner  database.Runner
	cache   cache.Cache
}

// NewCampaignService creates a new service instance
func NewCampaignService(
	repo repository.CampaignRepository,
	catalog catalogRepo.ProductReader,
	users userRepo.UserReader,
	runner database.Runner,
	c cache.Cache,
) ServiceInterface {
	return &campaignService{
		repo:    repo,
		catalog: catalog,
		users:   users,
		runner:  runner,
		cache:   c,
	}
}

// -------------------------------------------------------------------
// ELIGIBILITY
// -------------------------------------------------------------------

// triggerQuantity sums the basket quantity of the campaign's trigger
// product. Lines for the same product are aggregated; a different
// product never qualifies, whatever its price.
func triggerQuantity(campaign *model.Campaign, items []model.BasketItemRef) int {
	total := 0
	for _, item := range items {
		if item.ProductID == campaign.BuyProductID {
			total += item.Quantity
		}
	}
	return total
}

// checkEligibility runs every gate a campaign must pass for one user and
// basket. Returns the reward multiplier with the first typed error hit,
// in a fixed check order.
func (s *campaignService) checkEligibility(
	ctx context.Context,
	campaign *model.Campaign,
	userID uuid.UUID,
	items []model.BasketItemRef,
	hasPromo bool,
) (int, error) {
	now := time.Now()

	// Step 1: lifecycle
	switch campaign.Status {
	case model.StatusInactive:
		return 0, model.ErrCampaignNotActive
	case model.StatusExpired:
		return 0, model.ErrCampaignExpired
	}

	// Step 2: validity window, both ends inclusive
	if now.Before(campaign.ValidFrom) {
		return 0, model.ErrCampaignNotStarted
	}
	if campaign.IsExpiredAt(now) {
		if err := s.repo.MarkExpired(ctx, campaign.ID); err != nil {
			logger.Warn("failed to mark campaign expired", map[string]interface{}{
				"campaign_id": campaign.ID.String(),
				"error":       err.Error(),
			})
		}
		return 0, model.ErrCampaignExpired
	}

	// Step 3: global usage cap
	if campaign.IsGlobalLimitReached() {
		return 0, model.ErrTotalLimitExceeded
	}

	// Step 4: per-user usage cap
	if campaign.MaxUsesPerUser != nil {
		usageCount, err := s.repo.GetUserUsageCount(ctx, campaign.ID, userID)
		if err != nil {
			return 0, fmt.Errorf("get campaign usage count: %w", err)
		}
		if usageCount >= *campaign.MaxUsesPerUser {
			return 0, model.ErrUserLimitExceeded
		}
	}

	// Step 5: trigger product threshold
	multiplier := campaign.Multiplier(triggerQuantity(campaign, items))
	if multiplier == 0 {
		return 0, model.ErrTriggerNotMet
	}

	// Step 6: promo exclusivity
	if campaign.RequiresPromoAbsence && hasPromo {
		return multiplier, model.ErrPromoConflict
	}

	// Step 7: user conditions
	if campaign.FirstOrderOnly {
		completed, err := s.users.GetCompletedOrderCount(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("get completed order count: %w", err)
		}
		if completed > 0 {
			return multiplier, model.ErrFirstOrderOnly
		}
	}

	if campaign.MinDaysSinceRegistration != nil {
		user, err := s.users.GetUser(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("get user: %w", err)
		}
		if user.DaysSinceRegistration(now) < *campaign.MinDaysSinceRegistration {
			return multiplier, model.ErrRegistrationTooRecent
		}
	}

	return multiplier, nil
}

// isEligibilityError reports whether err is a business outcome rather
// than an infrastructure failure.
func isEligibilityError(err error) bool {
	switch {
	case errors.Is(err, model.ErrCampaignNotFound),
		errors.Is(err, model.ErrCampaignNotActive),
		errors.Is(err, model.ErrCampaignNotStarted),
		errors.Is(err, model.ErrCampaignExpired),
		errors.Is(err, model.ErrTriggerNotMet),
		errors.Is(err, model.ErrFirstOrderOnly),
		errors.Is(err, model.ErrRegistrationTooRecent),
		errors.Is(err, model.ErrPromoConflict),
		errors.Is(err, model.ErrFreeProductGone),
		errors.Is(err, model.ErrUserLimitExceeded),
		errors.Is(err, model.ErrTotalLimitExceeded):
		return true
	}
	return false
}

// freeValue prices the reward: free units valued at the free product's
// current sell price, rounded half-up to 2 decimals.
func freeValue(product *catalogModel.Product, freeUnits int) decimal.Decimal {
	return money.Round2(money.Mul(product.SellPrice, freeUnits))
}

// -------------------------------------------------------------------
// VALIDATE CAMPAIGN (PREVIEW, READ-ONLY)
// -------------------------------------------------------------------

// ValidateCampaign checks one campaign against a basket without
// consuming anything. Business failures come back as an invalid result
// with a message, never as an error.
func (s *campaignService) ValidateCampaign(
	ctx context.Context,
	req *model.ValidateCampaignRequest,
) (*model.ValidationResult, error) {
	req.NormalizeCode()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	campaign, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, model.ErrCampaignNotFound) {
			return &model.ValidationResult{
				IsValid:   false,
				Message:   userMessage(err),
				FreeValue: decimal.Zero,
			}, nil
		}
		return nil, err
	}

	multiplier, eligErr := s.checkEligibility(ctx, campaign, req.UserID, req.Items, req.HasPromo)
	if eligErr != nil {
		if isEligibilityError(eligErr) {
			return &model.ValidationResult{
				IsValid:       false,
				Message:       userMessage(eligErr),
				Multiplier:    multiplier,
				FreeProductID: campaign.FreeProductID,
				FreeValue:     decimal.Zero,
			}, nil
		}
		return nil, eligErr
	}

	freeProduct, err := s.catalog.GetProduct(ctx, campaign.FreeProductID)
	if err != nil || !freeProduct.IsActive() {
		if err != nil && !errors.Is(err, catalogModel.ErrProductNotFound) {
			return nil, err
		}
		return &model.ValidationResult{
			IsValid:       false,
			Message:       userMessage(model.ErrFreeProductGone),
			Multiplier:    multiplier,
			FreeProductID: campaign.FreeProductID,
			FreeValue:     decimal.Zero,
		}, nil
	}

	freeUnits := multiplier * campaign.FreeQuantity
	return &model.ValidationResult{
		IsValid:       true,
		Multiplier:    multiplier,
		FreeProductID: campaign.FreeProductID,
		FreeUnits:     freeUnits,
		FreeValue:     freeValue(freeProduct, freeUnits),
	}, nil
}

// -------------------------------------------------------------------
// BATCH EVALUATION
// -------------------------------------------------------------------

// GetEligibleCampaigns evaluates every active campaign against one
// basket in a single pass.
//
// Business flow:
// 1. Load active campaigns (cached)
// 2. Batch-fetch the free products referenced by any of them
// 3. Run the full eligibility chain per campaign; failures become
//    per-campaign reasons, never errors
// 4. Coalesce free units of the same product across campaigns and sum
//    the total discount
func (s *campaignService) GetEligibleCampaigns(
	ctx context.Context,
	req *model.EligibleCampaignsRequest,
) (*model.EligibleCampaignsResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	campaigns, err := s.listActiveCached(ctx)
	if err != nil {
		return nil, err
	}

	result := &model.EligibleCampaignsResult{
		Campaigns:             []model.EligibleCampaign{},
		FreeProducts:          []model.FreeProductSummary{},
		TotalCampaignDiscount: decimal.Zero,
	}
	if len(campaigns) == 0 {
		return result, nil
	}

	// Step 2: one catalog round-trip for all rewards
	freeIDs := make([]uuid.UUID, 0, len(campaigns))
	seen := make(map[uuid.UUID]bool, len(campaigns))
	for _, c := range campaigns {
		if !seen[c.FreeProductID] {
			seen[c.FreeProductID] = true
			freeIDs = append(freeIDs, c.FreeProductID)
		}
	}
	freeProducts, err := s.catalog.GetProducts(ctx, freeIDs)
	if err != nil {
		return nil, fmt.Errorf("get free products: %w", err)
	}

	summaries := make(map[uuid.UUID]*model.FreeProductSummary)

	for _, campaign := range campaigns {
		entry := model.EligibleCampaign{
			CampaignID:    campaign.ID,
			Code:          campaign.Code,
			Name:          campaign.Name,
			FreeProductID: campaign.FreeProductID,
			FreeValue:     decimal.Zero,
		}

		multiplier, eligErr := s.checkEligibility(ctx, campaign, req.UserID, req.Items, req.WillUsePromo)
		entry.Multiplier = multiplier
		if eligErr != nil {
			if !isEligibilityError(eligErr) {
				return nil, eligErr
			}
			entry.NotAppliedReason = userMessage(eligErr)
			result.Campaigns = append(result.Campaigns, entry)
			continue
		}

		freeProduct, ok := freeProducts[campaign.FreeProductID]
		if !ok || !freeProduct.IsActive() {
			entry.NotAppliedReason = userMessage(model.ErrFreeProductGone)
			result.Campaigns = append(result.Campaigns, entry)
			continue
		}

		freeUnits := multiplier * campaign.FreeQuantity
		value := freeValue(freeProduct, freeUnits)

		entry.WillBeApplied = true
		entry.FreeUnits = freeUnits
		entry.FreeValue = value
		result.Campaigns = append(result.Campaigns, entry)

		// Step 4: coalesce by free product
		if summary, ok := summaries[campaign.FreeProductID]; ok {
			summary.Quantity += freeUnits
			summary.Value = summary.Value.Add(value)
		} else {
			summaries[campaign.FreeProductID] = &model.FreeProductSummary{
				ProductID: campaign.FreeProductID,
				Quantity:  freeUnits,
				Value:     value,
			}
		}
		result.TotalCampaignDiscount = result.TotalCampaignDiscount.Add(value)
	}

	for _, summary := range summaries {
		result.FreeProducts = append(result.FreeProducts, *summary)
	}
	sort.Slice(result.FreeProducts, func(i, j int) bool {
		return result.FreeProducts[i].ProductID.String() < result.FreeProducts[j].ProductID.String()
	})

	return result, nil
}

// listActiveCached serves batch evaluation through the cache
func (s *campaignService) listActiveCached(ctx context.Context) ([]*model.Campaign, error) {
	var cached []*model.Campaign
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, activeCampaignsCacheKey, &cached)
		if err != nil {
			logger.Warn("campaign cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if hit {
			return cached, nil
		}
	}

	campaigns, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, activeCampaignsCacheKey, campaigns, campaignCacheTTL); err != nil {
			logger.Warn("campaign cache write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return campaigns, nil
}

// -------------------------------------------------------------------
// APPLY CAMPAIGN (CONSUMES USAGE)
// -------------------------------------------------------------------

// ApplyCampaign re-validates the campaign and records the usage
// atomically. Same transactional shape as a promo apply: usage insert
// plus a conditional counter bump, exactly one winner for the last slot.
func (s *campaignService) ApplyCampaign(
	ctx context.Context,
	req *model.ApplyCampaignRequest,
) (*model.ApplyResult, error) {
	req.NormalizeCode()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	campaign, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	multiplier, err := s.checkEligibility(ctx, campaign, req.UserID, req.Items, req.HasPromo)
	if err != nil {
		return nil, err
	}

	freeProduct, err := s.catalog.GetProduct(ctx, campaign.FreeProductID)
	if err != nil {
		if errors.Is(err, catalogModel.ErrProductNotFound) {
			return nil, model.ErrFreeProductGone
		}
		return nil, err
	}
	if !freeProduct.IsActive() {
		return nil, model.ErrFreeProductGone
	}

	freeUnits := multiplier * campaign.FreeQuantity
	value := freeValue(freeProduct, freeUnits)

	usage := &model.CampaignUsage{
		ID:         uuid.New(),
		CampaignID: campaign.ID,
		UserID:     req.UserID,
		OrderID:    req.OrderID,
		FreeUnits:  freeUnits,
		FreeValue:  value,
	}

	err = s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateUsage(ctx, tx, usage); err != nil {
			return err
		}

		ok, err := s.repo.IncrementUses(ctx, tx, campaign.ID)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrTotalLimitExceeded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)

	logger.Info("campaign applied", map[string]interface{}{
		"campaign_id": campaign.ID.String(),
		"user_id":     req.UserID.String(),
		"order_id":    req.OrderID.String(),
		"free_units":  freeUnits,
		"free_value":  value.String(),
	})

	return &model.ApplyResult{
		CampaignID:    campaign.ID,
		FreeProductID: campaign.FreeProductID,
		FreeUnits:     freeUnits,
		FreeValue:     value,
	}, nil
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

// CreateCampaign creates a new campaign
func (s *campaignService) CreateCampaign(
	ctx context.Context,
	req *model.CreateCampaignRequest,
) (*model.Campaign, error) {
	req.NormalizeCode()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.CheckCodeExists(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrDuplicateCode
	}

	campaign, err := req.ToCampaign()
	if err != nil {
		return nil, err
	}

	// Both products must exist up front; the free product must also be
	// sellable or the reward could never be fulfilled.
	if _, err := s.catalog.GetProduct(ctx, campaign.BuyProductID); err != nil {
		return nil, err
	}
	freeProduct, err := s.catalog.GetProduct(ctx, campaign.FreeProductID)
	if err != nil {
		return nil, err
	}
	if !freeProduct.IsActive() {
		return nil, catalogModel.ErrProductInactive
	}

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	logger.Info("campaign created", map[string]interface{}{
		"campaign_id": campaign.ID.String(),
		"code":        campaign.Code,
		"name":        campaign.Name,
	})
	return campaign, nil
}

// UpdateCampaignStatus manually activates or deactivates a campaign
func (s *campaignService) UpdateCampaignStatus(ctx context.Context, id string, status model.Status) error {
	campaignID, err := uuid.Parse(id)
	if err != nil {
		return model.ErrCampaignNotFound
	}
	if !status.IsValid() {
		return model.ErrInvalidStatus
	}

	if err := s.repo.UpdateStatus(ctx, campaignID, status); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// -------------------------------------------------------------------
// INTERNAL
// -------------------------------------------------------------------

// ExpireSweep is called by the background worker to expire stale rows
func (s *campaignService) ExpireSweep(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkAllExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(ctx)
		logger.Info("expired campaigns swept", map[string]interface{}{"count": n})
	}
	return n, nil
}

func (s *campaignService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeCampaignsCacheKey); err != nil {
		logger.Warn("campaign cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// userMessage maps a typed eligibility error to the message shown to
// the customer.
func userMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrCampaignNotFound):
		return "Campaign not found"
	case errors.Is(err, model.ErrCampaignNotActive):
		return "Campaign is not active"
	case errors.Is(err, model.ErrCampaignNotStarted):
		return "Campaign has not started yet"
	case errors.Is(err, model.ErrCampaignExpired):
		return "Campaign has ended"
	case errors.Is(err, model.ErrTriggerNotMet):
		return "Basket does not contain enough of the qualifying product"
	case errors.Is(err, model.ErrFirstOrderOnly):
		return "Campaign is only available on your first order"
	case errors.Is(err, model.ErrRegistrationTooRecent):
		return "Your account has not been registered long enough for this campaign"
	case errors.Is(err, model.ErrPromoConflict):
		return "Campaign cannot be combined with a promo code"
	case errors.Is(err, model.ErrFreeProductGone):
		return "The free product for this campaign is currently unavailable"
	case errors.Is(err, model.ErrUserLimitExceeded):
		return "You have already used this campaign the maximum number of times"
	case errors.Is(err, model.ErrTotalLimitExceeded):
		return "Campaign usage limit has been reached"
	default:
		return "Campaign cannot be applied"
	}
}
