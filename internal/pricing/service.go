package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/errors"
)

// Service resolves retail prices against a cached rule set. Rules are
// read-mostly; the cache is refreshed on TTL expiry and invalidated
// explicitly after any rule write.
type Service struct {
	repo *RuleRepository

	mu       sync.Mutex
	rules    []models.PricingRule
	loadedAt time.Time
	ttl      time.Duration
}

func NewService(repo *RuleRepository, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{repo: repo, ttl: cacheTTL}
}

// Rules returns the active rule set, reloading it when the cache is stale.
func (s *Service) Rules(ctx context.Context) ([]models.PricingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rules != nil && time.Since(s.loadedAt) < s.ttl {
		return s.rules, nil
	}

	rules, err := s.repo.ListActiveRules(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeData, err, "pricing: load rules")
	}
	s.rules = rules
	s.loadedAt = time.Now()
	return rules, nil
}

// Invalidate drops the cached rule set. Must be called after any rule write.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.rules = nil
	s.mu.Unlock()
}

// Calculate resolves the retail price for one base price and context.
func (s *Service) Calculate(ctx context.Context, base decimal.Decimal, pctx Context) (decimal.Decimal, error) {
	rules, err := s.Rules(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return Calculate(base, pctx, rules), nil
}

// UpdateOfferRetailPrice recomputes the offer's retail price and applies it
// to the struct only when it differs at two decimals from the stored value.
// The caller persists the offer; the returned flag drives the price-lane
// outbox event.
func (s *Service) UpdateOfferRetailPrice(ctx context.Context, offer *models.Offer, pctx Context) (bool, error) {
	retail, err := s.Calculate(ctx, offer.Price, pctx)
	if err != nil {
		return false, err
	}

	if offer.RetailPrice != nil && offer.RetailPrice.Round(2).Equal(retail) {
		return false, nil
	}
	offer.RetailPrice = &retail
	return true, nil
}

// CalculateBatch prices a batch by running the single-item path per entry,
// so batch and single results can never diverge.
func (s *Service) CalculateBatch(ctx context.Context, bases []decimal.Decimal, pctx Context) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(bases))
	for i, base := range bases {
		retail, err := s.Calculate(ctx, base, pctx)
		if err != nil {
			return nil, err
		}
		out[i] = retail
	}
	return out, nil
}

// CreateRule validates and inserts a rule, then invalidates the cache.
func (s *Service) CreateRule(ctx context.Context, tx *gorm.DB, rule *models.PricingRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	if err := s.repo.WithTx(tx).CreateRule(ctx, rule); err != nil {
		return errors.Wrap(errors.CodeData, err, "pricing: create rule")
	}
	s.Invalidate()
	return nil
}

// UpdateRule validates and saves a rule, then invalidates the cache.
func (s *Service) UpdateRule(ctx context.Context, tx *gorm.DB, rule *models.PricingRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	if err := s.repo.WithTx(tx).SaveRule(ctx, rule); err != nil {
		return errors.Wrap(errors.CodeData, err, "pricing: update rule")
	}
	s.Invalidate()
	return nil
}

// DeleteRule removes a rule, then invalidates the cache.
func (s *Service) DeleteRule(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if err := s.repo.WithTx(tx).DeleteRule(ctx, id); err != nil {
		return errors.Wrap(errors.CodeData, err, "pricing: delete rule")
	}
	s.Invalidate()
	return nil
}

func validateRule(rule *models.PricingRule) error {
	if !rule.Target.IsValid() {
		return errors.New(errors.CodeValidation, "pricing: invalid rule target")
	}
	if !rule.MarkupType.IsValid() {
		return errors.New(errors.CodeValidation, "pricing: invalid markup type")
	}
	if !rule.Rounding.IsValid() {
		return errors.New(errors.CodeValidation, "pricing: invalid rounding strategy")
	}
	switch rule.Target {
	case enums.TargetSupplier:
		if rule.SupplierID == nil {
			return errors.New(errors.CodeValidation, "pricing: supplier rule without supplier id")
		}
	case enums.TargetBrand:
		if rule.BrandID == nil {
			return errors.New(errors.CodeValidation, "pricing: brand rule without brand id")
		}
	case enums.TargetCategory:
		if rule.CategoryID == nil {
			return errors.New(errors.CodeValidation, "pricing: category rule without category id")
		}
	case enums.TargetFamily:
		if rule.Family == nil {
			return errors.New(errors.CodeValidation, "pricing: family rule without family")
		}
	}
	if rule.MinPrice != nil && rule.MaxPrice != nil && rule.MinPrice.GreaterThan(*rule.MaxPrice) {
		return errors.New(errors.CodeValidation, "pricing: rule min price above max price")
	}
	return nil
}
