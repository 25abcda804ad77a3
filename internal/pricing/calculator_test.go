package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func globalRule(t *testing.T, markup enums.MarkupType, value string, rounding enums.RoundingStrategy, priority int) models.PricingRule {
	t.Helper()
	return models.PricingRule{
		ID:          uuid.New(),
		Name:        "test rule",
		Target:      enums.TargetGlobal,
		MarkupType:  markup,
		MarkupValue: dec(t, value),
		Priority:    priority,
		Rounding:    rounding,
		Active:      true,
	}
}

func TestCalculateNoRuleReturnsBase(t *testing.T) {
	got := Calculate(dec(t, "99.999"), Context{}, nil)
	assert.Equal(t, "100.00", got.StringFixed(2))

	got = Calculate(dec(t, "49.90"), Context{}, nil)
	assert.Equal(t, "49.90", got.StringFixed(2))
}

func TestCalculateGlobalPercentageWithRounding(t *testing.T) {
	rules := []models.PricingRule{
		globalRule(t, enums.MarkupPercentage, "15", enums.RoundUp100, 0),
	}

	got := Calculate(dec(t, "1000.00"), Context{}, rules)
	assert.Equal(t, "1150.00", got.StringFixed(2))
}

func TestCalculateFixedMarkup(t *testing.T) {
	rules := []models.PricingRule{
		globalRule(t, enums.MarkupFixed, "25.50", enums.RoundNone, 0),
	}

	got := Calculate(dec(t, "100.00"), Context{}, rules)
	assert.Equal(t, "125.50", got.StringFixed(2))
}

func TestCalculateRoundingStrategies(t *testing.T) {
	tests := []struct {
		name     string
		rounding enums.RoundingStrategy
		base     string
		want     string
	}{
		{"none keeps cents", enums.RoundNone, "103.333", "113.67"},
		{"up 10 snaps to next ten cents", enums.RoundUp10, "103.333", "113.70"},
		{"up 100 snaps to next unit", enums.RoundUp100, "103.333", "114.00"},
		{"down 100 snaps to previous unit", enums.RoundDown100, "103.333", "113.00"},
		{"up 100 keeps exact value", enums.RoundUp100, "100.00", "110.00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rules := []models.PricingRule{
				globalRule(t, enums.MarkupPercentage, "10", tc.rounding, 0),
			}
			got := Calculate(dec(t, tc.base), Context{}, rules)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestResolveRuleHighestPriorityWins(t *testing.T) {
	low := globalRule(t, enums.MarkupPercentage, "10", enums.RoundNone, 1)
	high := globalRule(t, enums.MarkupPercentage, "20", enums.RoundNone, 5)
	rules := []models.PricingRule{low, high}

	winner := ResolveRule(dec(t, "100"), Context{}, rules)
	require.NotNil(t, winner)
	assert.Equal(t, high.ID, winner.ID)

	// Priority reorders the winner, never the match set.
	rules[0].Priority, rules[1].Priority = 9, 2
	winner = ResolveRule(dec(t, "100"), Context{}, rules)
	require.NotNil(t, winner)
	assert.Equal(t, low.ID, winner.ID)
}

func TestResolveRuleTargetFiltering(t *testing.T) {
	supplierID := uuid.New()
	brandID := uuid.New()
	categoryID := uuid.New()
	family := enums.FamilyMattress

	ctx := Context{
		SupplierID: supplierID,
		BrandID:    brandID,
		CategoryID: &categoryID,
		Family:     family,
	}

	otherID := uuid.New()
	otherFamily := enums.FamilyPillow

	supplierRule := globalRule(t, enums.MarkupPercentage, "5", enums.RoundNone, 10)
	supplierRule.Target = enums.TargetSupplier
	supplierRule.SupplierID = &supplierID

	wrongSupplier := globalRule(t, enums.MarkupPercentage, "50", enums.RoundNone, 99)
	wrongSupplier.Target = enums.TargetSupplier
	wrongSupplier.SupplierID = &otherID

	brandRule := globalRule(t, enums.MarkupPercentage, "7", enums.RoundNone, 3)
	brandRule.Target = enums.TargetBrand
	brandRule.BrandID = &brandID

	familyRule := globalRule(t, enums.MarkupPercentage, "8", enums.RoundNone, 2)
	familyRule.Target = enums.TargetFamily
	familyRule.Family = &otherFamily

	categoryRule := globalRule(t, enums.MarkupPercentage, "9", enums.RoundNone, 1)
	categoryRule.Target = enums.TargetCategory
	categoryRule.CategoryID = &categoryID

	rules := []models.PricingRule{wrongSupplier, supplierRule, brandRule, familyRule, categoryRule}

	winner := ResolveRule(dec(t, "100"), ctx, rules)
	require.NotNil(t, winner)
	assert.Equal(t, supplierRule.ID, winner.ID)

	// Without a category on the context, category rules never match.
	ctx.CategoryID = nil
	ctx.SupplierID = uuid.New()
	winner = ResolveRule(dec(t, "100"), ctx, rules)
	require.NotNil(t, winner)
	assert.Equal(t, brandRule.ID, winner.ID)
}

func TestResolveRulePriceBounds(t *testing.T) {
	rule := globalRule(t, enums.MarkupPercentage, "10", enums.RoundNone, 0)
	rule.MinPrice = decPtr(t, "50.00")
	rule.MaxPrice = decPtr(t, "500.00")
	rules := []models.PricingRule{rule}

	assert.Nil(t, ResolveRule(dec(t, "49.99"), Context{}, rules))
	assert.NotNil(t, ResolveRule(dec(t, "50.00"), Context{}, rules))
	assert.NotNil(t, ResolveRule(dec(t, "500.00"), Context{}, rules))
	assert.Nil(t, ResolveRule(dec(t, "500.01"), Context{}, rules))
}

func TestResolveRuleSkipsInactive(t *testing.T) {
	rule := globalRule(t, enums.MarkupPercentage, "10", enums.RoundNone, 0)
	rule.Active = false
	assert.Nil(t, ResolveRule(dec(t, "100"), Context{}, []models.PricingRule{rule}))
}

func TestCalculateIsIdempotent(t *testing.T) {
	rules := []models.PricingRule{
		globalRule(t, enums.MarkupPercentage, "17.5", enums.RoundUp10, 0),
	}
	base := dec(t, "333.33")
	ctx := Context{}

	first := Calculate(base, ctx, rules)
	second := Calculate(base, ctx, rules)
	assert.True(t, first.Equal(second))
}
