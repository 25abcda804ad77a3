package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

// Context describes the offer being priced. CategoryID may be nil when the
// record carried no category path.
type Context struct {
	SupplierID uuid.UUID
	BrandID    uuid.UUID
	CategoryID *uuid.UUID
	Family     enums.ProductFamily
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
	tenth   = decimal.NewFromFloat(0.10)
)

// Calculate applies the winning rule to the base price. With no matching
// rule the retail price is the base price rounded to two decimals.
func Calculate(base decimal.Decimal, ctx Context, rules []models.PricingRule) decimal.Decimal {
	rule := ResolveRule(base, ctx, rules)
	if rule == nil {
		return base.Round(2)
	}

	var retail decimal.Decimal
	switch rule.MarkupType {
	case enums.MarkupPercentage:
		retail = base.Mul(one.Add(rule.MarkupValue.Div(hundred)))
	case enums.MarkupFixed:
		retail = base.Add(rule.MarkupValue)
	default:
		retail = base
	}

	return applyRounding(retail, rule.Rounding).Round(2)
}

// ResolveRule picks the highest-priority active rule whose target and price
// bounds match the context, or nil when none do.
func ResolveRule(base decimal.Decimal, ctx Context, rules []models.PricingRule) *models.PricingRule {
	var winner *models.PricingRule
	for i := range rules {
		if !ruleMatches(&rules[i], base, ctx) {
			continue
		}
		if winner == nil || rules[i].Priority > winner.Priority {
			winner = &rules[i]
		}
	}
	return winner
}

func ruleMatches(rule *models.PricingRule, base decimal.Decimal, ctx Context) bool {
	if !rule.Active {
		return false
	}

	switch rule.Target {
	case enums.TargetGlobal:
	case enums.TargetSupplier:
		if rule.SupplierID == nil || *rule.SupplierID != ctx.SupplierID {
			return false
		}
	case enums.TargetBrand:
		if rule.BrandID == nil || *rule.BrandID != ctx.BrandID {
			return false
		}
	case enums.TargetCategory:
		if rule.CategoryID == nil || ctx.CategoryID == nil || *rule.CategoryID != *ctx.CategoryID {
			return false
		}
	case enums.TargetFamily:
		if rule.Family == nil || *rule.Family != ctx.Family {
			return false
		}
	default:
		return false
	}

	if rule.MinPrice != nil && base.LessThan(*rule.MinPrice) {
		return false
	}
	if rule.MaxPrice != nil && base.GreaterThan(*rule.MaxPrice) {
		return false
	}
	return true
}

// applyRounding snaps the price to the rule's grid. The 10/100 steps are in
// minor units: up_10 rounds up to the next 10 cents, up_100 and down_100 to
// the next whole unit.
func applyRounding(v decimal.Decimal, strategy enums.RoundingStrategy) decimal.Decimal {
	switch strategy {
	case enums.RoundUp10:
		return v.Div(tenth).Ceil().Mul(tenth)
	case enums.RoundUp100:
		return v.Ceil()
	case enums.RoundDown100:
		return v.Floor()
	}
	return v
}
