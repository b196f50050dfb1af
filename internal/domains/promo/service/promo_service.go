package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"waterstore-backend/internal/domains/promo/model"
	"waterstore-backend/internal/domains/promo/repository"
	"waterstore-backend/pkg/cache"
	"waterstore-backend/pkg/database"
	"waterstore-backend/pkg/logger"
)

const promoCacheTTL = time.Minute

// promoService handles business logic for promo codes
type promoService struct {
	repo       repository.PromoRepository
	calculator *DiscountCalculator
	runner     database.Runner
	cache      cache.Cache
}

// NewPromoService creates a new service instance
func NewPromoService(
	repo repository.PromoRepository,
	runner database.Runner,
	c cache.Cache,
) ServiceInterface {
	return &promoService{
		repo:       repo,
		calculator: NewDiscountCalculator(),
		runner:     runner,
		cache:      c,
	}
}

func promoCacheKey(code string) string {
	return "promo:code:" + code
}

// -------------------------------------------------------------------
// ELIGIBILITY
// -------------------------------------------------------------------

// checkEligibility runs every gate a promo must pass for one user and
// order amount. Returns the user's prior usage count together with the
// first typed error hit, in a fixed check order so callers report a
// stable reason.
func (s *promoService) checkEligibility(
	ctx context.Context,
	promo *model.Promo,
	userID uuid.UUID,
	orderAmount decimal.Decimal,
) (int, error) {
	now := time.Now()

	// Step 1: lifecycle. The persisted status is only trusted when it
	// says inactive or expired; active rows are still checked against
	// the window below.
	switch promo.Status {
	case model.StatusInactive:
		return 0, model.ErrPromoNotActive
	case model.StatusExpired:
		return 0, model.ErrPromoExpired
	}

	// Step 2: validity window, both ends inclusive
	if now.Before(promo.ValidFrom) {
		return 0, model.ErrPromoNotStarted
	}
	if promo.IsExpiredAt(now) {
		// Correct the stale status cache. Failure here never blocks the
		// caller; the worker sweep catches it later.
		if err := s.repo.MarkExpired(ctx, promo.ID); err != nil {
			logger.Warn("failed to mark promo expired", map[string]interface{}{
				"promo_id": promo.ID.String(),
				"error":    err.Error(),
			})
		}
		return 0, model.ErrPromoExpired
	}

	// Step 3: global usage cap
	if promo.IsGlobalLimitReached() {
		return 0, model.ErrTotalLimitExceeded
	}

	// Step 4: per-user usage cap
	usageCount, err := s.repo.GetUserUsageCount(ctx, promo.ID, userID)
	if err != nil {
		return 0, fmt.Errorf("get user usage count: %w", err)
	}
	if promo.MaxUsesPerUser != nil && usageCount >= *promo.MaxUsesPerUser {
		return usageCount, model.ErrUserLimitExceeded
	}

	// Step 5: order amount threshold
	if orderAmount.LessThan(promo.MinOrderAmount) {
		return usageCount, model.ErrMinOrderNotMet
	}

	return usageCount, nil
}

// isEligibilityError reports whether err is a business outcome rather
// than an infrastructure failure.
func isEligibilityError(err error) bool {
	switch {
	case errors.Is(err, model.ErrPromoNotFound),
		errors.Is(err, model.ErrPromoNotActive),
		errors.Is(err, model.ErrPromoNotStarted),
		errors.Is(err, model.ErrPromoExpired),
		errors.Is(err, model.ErrMinOrderNotMet),
		errors.Is(err, model.ErrUserLimitExceeded),
		errors.Is(err, model.ErrTotalLimitExceeded):
		return true
	}
	return false
}

// -------------------------------------------------------------------
// VALIDATE PROMO (PREVIEW, READ-ONLY)
// -------------------------------------------------------------------

// ValidatePromo checks a code against an order amount without consuming
// anything. Business failures come back as an invalid result with a
// message, never as an error.
func (s *promoService) ValidatePromo(
	ctx context.Context,
	req *model.ValidatePromoRequest,
) (*model.ValidationResult, error) {
	req.NormalizeCode()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	promo, err := s.findByCodeCached(ctx, req.Code)
	if err != nil {
		if errors.Is(err, model.ErrPromoNotFound) {
			return &model.ValidationResult{
				IsValid:           false,
				Message:           userMessage(err),
				EstimatedDiscount: decimal.Zero,
			}, nil
		}
		return nil, err
	}

	usageCount, eligErr := s.checkEligibility(ctx, promo, req.UserID, req.OrderAmount)
	if eligErr != nil {
		if isEligibilityError(eligErr) {
			return &model.ValidationResult{
				IsValid:           false,
				Message:           userMessage(eligErr),
				EstimatedDiscount: decimal.Zero,
				UserCanUse:        !errors.Is(eligErr, model.ErrUserLimitExceeded),
				UserUsageCount:    usageCount,
			}, nil
		}
		return nil, eligErr
	}

	return &model.ValidationResult{
		IsValid:           true,
		EstimatedDiscount: s.calculator.Calculate(promo, req.OrderAmount),
		UserCanUse:        true,
		UserUsageCount:    usageCount,
	}, nil
}

// findByCodeCached serves preview reads through the cache. Apply paths
// always go straight to the database.
func (s *promoService) findByCodeCached(ctx context.Context, code string) (*model.Promo, error) {
	key := promoCacheKey(code)

	var cached model.Promo
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("promo cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		} else if hit {
			return &cached, nil
		}
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, promo, promoCacheTTL); err != nil {
			logger.Warn("promo cache write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return promo, nil
}

// -------------------------------------------------------------------
// APPLY PROMO (CONSUMES USAGE)
// -------------------------------------------------------------------

// ApplyPromo re-validates the code and records the usage atomically.
//
// Business flow:
// 1. Fresh read of the promo (never the cache)
// 2. Full eligibility re-check, typed errors propagate to the caller
// 3. One transaction: insert usage record + conditional counter bump
// 4. The counter bump carries the global cap in its WHERE clause, so of
//    N concurrent applies racing for the last slot exactly one commits
func (s *promoService) ApplyPromo(
	ctx context.Context,
	req *model.ApplyPromoRequest,
) (*model.ApplyResult, error) {
	req.NormalizeCode()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	promo, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	if _, err := s.checkEligibility(ctx, promo, req.UserID, req.OrderAmount); err != nil {
		return nil, err
	}

	discount := s.calculator.Calculate(promo, req.OrderAmount)

	usage := &model.PromoUsage{
		ID:              uuid.New(),
		PromoID:         promo.ID,
		UserID:          req.UserID,
		OrderID:         req.OrderID,
		DiscountApplied: discount,
	}

	err = s.runner.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateUsage(ctx, tx, usage); err != nil {
			return err
		}

		ok, err := s.repo.IncrementUses(ctx, tx, promo.ID)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race for the last slot; roll the usage back too.
			return model.ErrTotalLimitExceeded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, promo.Code)

	logger.Info("promo applied", map[string]interface{}{
		"promo_id": promo.ID.String(),
		"code":     promo.Code,
		"user_id":  req.UserID.String(),
		"order_id": req.OrderID.String(),
		"discount": discount.String(),
	})

	return &model.ApplyResult{
		PromoID:         promo.ID,
		Code:            promo.Code,
		DiscountApplied: discount,
		FinalAmount:     req.OrderAmount.Sub(discount),
	}, nil
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

// CreatePromo creates a new promo code
func (s *promoService) CreatePromo(
	ctx context.Context,
	req *model.CreatePromoRequest,
) (*model.Promo, error) {
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

	promo, err := req.ToPromo()
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, err
	}

	logger.Info("promo created", map[string]interface{}{
		"promo_id": promo.ID.String(),
		"code":     promo.Code,
	})
	return promo, nil
}

// UpdatePromoStatus manually activates or deactivates a promo
func (s *promoService) UpdatePromoStatus(ctx context.Context, id string, status model.Status) error {
	promoID, err := uuid.Parse(id)
	if err != nil {
		return model.ErrPromoNotFound
	}
	if !status.IsValid() {
		return model.ErrInvalidStatus
	}

	promo, err := s.repo.FindByID(ctx, promoID)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateStatus(ctx, promoID, status); err != nil {
		return err
	}
	s.invalidate(ctx, promo.Code)
	return nil
}

// -------------------------------------------------------------------
// INTERNAL
// -------------------------------------------------------------------

// GetPromoByCode fetches a promo for internal callers
func (s *promoService) GetPromoByCode(ctx context.Context, code string) (*model.Promo, error) {
	return s.repo.FindByCode(ctx, code)
}

// CalculateDiscount is a wrapper around the calculator for external callers
func (s *promoService) CalculateDiscount(promo *model.Promo, orderAmount decimal.Decimal) decimal.Decimal {
	return s.calculator.Calculate(promo, orderAmount)
}

// ExpireSweep is called by the background worker to expire stale rows
func (s *promoService) ExpireSweep(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkAllExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("expired promos swept", map[string]interface{}{"count": n})
	}
	return n, nil
}

func (s *promoService) invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, promoCacheKey(code)); err != nil {
		logger.Warn("promo cache invalidation failed", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		})
	}
}

// userMessage maps a typed eligibility error to the message shown to
// the customer.
func userMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrPromoNotFound):
		return "Promo code not found"
	case errors.Is(err, model.ErrPromoNotActive):
		return "Promo code is not active"
	case errors.Is(err, model.ErrPromoNotStarted):
		return "Promo code is not valid yet"
	case errors.Is(err, model.ErrPromoExpired):
		return "Promo code has expired"
	case errors.Is(err, model.ErrMinOrderNotMet):
		return "Order amount does not meet the promo minimum"
	case errors.Is(err, model.ErrUserLimitExceeded):
		return "You have already used this promo code the maximum number of times"
	case errors.Is(err, model.ErrTotalLimitExceeded):
		return "Promo code usage limit has been reached"
	default:
		return "Promo code cannot be applied"
	}
}
