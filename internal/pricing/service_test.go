package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

func makeDecimals(t *testing.T, values ...string) []decimal.Decimal {
	t.Helper()
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = dec(t, v)
	}
	return out
}

func cachedService(t *testing.T, rules []models.PricingRule) *Service {
	t.Helper()
	svc := NewService(nil, time.Hour)
	svc.rules = rules
	svc.loadedAt = time.Now()
	return svc
}

func TestUpdateOfferRetailPrice(t *testing.T) {
	svc := cachedService(t, []models.PricingRule{
		globalRule(t, enums.MarkupPercentage, "15", enums.RoundUp100, 0),
	})

	offer := &models.Offer{Price: dec(t, "1000.00")}

	changed, err := svc.UpdateOfferRetailPrice(t.Context(), offer, Context{})
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, offer.RetailPrice)
	assert.Equal(t, "1150.00", offer.RetailPrice.StringFixed(2))

	changed, err = svc.UpdateOfferRetailPrice(t.Context(), offer, Context{})
	require.NoError(t, err)
	assert.False(t, changed, "unchanged retail price must not report a change")
}

func TestCalculateBatchMatchesSinglePath(t *testing.T) {
	svc := cachedService(t, []models.PricingRule{
		globalRule(t, enums.MarkupPercentage, "17.5", enums.RoundUp10, 0),
	})

	prices := makeDecimals(t, "10.00", "333.33", "999.99")
	batch, err := svc.CalculateBatch(t.Context(), prices, Context{})
	require.NoError(t, err)
	require.Len(t, batch, len(prices))

	for i, base := range prices {
		single, err := svc.Calculate(t.Context(), base, Context{})
		require.NoError(t, err)
		assert.True(t, batch[i].Equal(single))
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	svc := cachedService(t, []models.PricingRule{})
	svc.Invalidate()
	assert.Nil(t, svc.rules)
}

func TestValidateRule(t *testing.T) {
	valid := globalRule(t, enums.MarkupPercentage, "10", enums.RoundNone, 0)
	assert.NoError(t, validateRule(&valid))

	supplierRule := valid
	supplierRule.Target = enums.TargetSupplier
	assert.Error(t, validateRule(&supplierRule), "supplier rule needs a supplier id")

	bounds := valid
	bounds.MinPrice = decPtr(t, "100.00")
	bounds.MaxPrice = decPtr(t, "50.00")
	assert.Error(t, validateRule(&bounds))

	badTarget := valid
	badTarget.Target = "region"
	assert.Error(t, validateRule(&badTarget))
}
