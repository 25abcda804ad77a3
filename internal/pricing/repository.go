package pricing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/db/models"
)

// RuleRepository owns the pricing_rules table.
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *RuleRepository) WithTx(tx *gorm.DB) *RuleRepository {
	return &RuleRepository{db: tx}
}

// ListActiveRules loads every active rule. The full set is small enough to
// resolve in memory per offer.
func (r *RuleRepository) ListActiveRules(ctx context.Context) ([]models.PricingRule, error) {
	var rules []models.PricingRule
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority DESC, created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepository) FindRuleByID(ctx context.Context, id uuid.UUID) (*models.PricingRule, error) {
	var rule models.PricingRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepository) CreateRule(ctx context.Context, rule *models.PricingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *RuleRepository) SaveRule(ctx context.Context, rule *models.PricingRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *RuleRepository) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PricingRule{}, "id = ?", id).Error
}
