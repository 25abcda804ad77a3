package goldenrecord

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/db/types"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

func price(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestAggregateOffers(t *testing.T) {
	supplierA, supplierB := uuid.New(), uuid.New()
	offers := []models.Offer{
		{SupplierID: supplierA, Price: price(t, "120.00"), InStock: false},
		{SupplierID: supplierB, Price: price(t, "99.90"), InStock: true},
		{SupplierID: supplierA, Price: price(t, "150.00"), InStock: false},
	}

	min, max, inStock := aggregateOffers(offers)
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.True(t, min.Equal(price(t, "99.90")))
	assert.True(t, max.Equal(price(t, "150.00")))
	assert.True(t, inStock)
	assert.Equal(t, 2, distinctSuppliers(offers))
}

func TestAggregateOffersEmpty(t *testing.T) {
	min, max, inStock := aggregateOffers(nil)
	assert.Nil(t, min)
	assert.Nil(t, max)
	assert.False(t, inStock)
}

func TestMergeAttributesAdoptsWhenEmpty(t *testing.T) {
	model := &models.Model{Family: enums.FamilyMattress}
	incoming := types.AttributeMap{
		"firmness": types.String("medium"),
		"height":   types.Number(22),
	}

	merged, changed := MergeAttributes(model, incoming, false)
	assert.True(t, changed)
	assert.Equal(t, types.String("medium"), merged["firmness"])
	assert.Equal(t, types.Number(22), merged["height"])
}

func TestMergeAttributesFillsGapsOnly(t *testing.T) {
	model := &models.Model{
		Family: enums.FamilyMattress,
		Attributes: types.AttributeMap{
			"firmness": types.String("firm"),
		},
	}
	incoming := types.AttributeMap{
		"firmness": types.String("soft"),
		"height":   types.Number(20),
	}

	merged, changed := MergeAttributes(model, incoming, false)
	assert.True(t, changed)
	assert.Equal(t, types.String("firm"), merged["firmness"], "lower-trust source must not overwrite")
	assert.Equal(t, types.Number(20), merged["height"])
}

func TestMergeAttributesManufacturerOverwrites(t *testing.T) {
	model := &models.Model{
		Family: enums.FamilyMattress,
		Attributes: types.AttributeMap{
			"firmness": types.String("firm"),
		},
	}
	incoming := types.AttributeMap{"firmness": types.String("soft")}

	merged, changed := MergeAttributes(model, incoming, true)
	assert.True(t, changed)
	assert.Equal(t, types.String("soft"), merged["firmness"])
}

func TestMergeAttributesNoOpReportsUnchanged(t *testing.T) {
	model := &models.Model{
		Family: enums.FamilyMattress,
		Attributes: types.AttributeMap{
			"firmness": types.String("firm"),
		},
	}
	incoming := types.AttributeMap{"firmness": types.String("firm")}

	_, changed := MergeAttributes(model, incoming, true)
	assert.False(t, changed)

	_, changed = MergeAttributes(model, incoming, false)
	assert.False(t, changed)
}

func TestMergeAttributesDropsSchemaViolations(t *testing.T) {
	model := &models.Model{Family: enums.FamilyMattress}
	incoming := types.AttributeMap{
		"height":     types.String("twenty"),
		"color_note": types.String("blue"),
	}

	merged, changed := MergeAttributes(model, incoming, true)
	assert.True(t, changed)
	_, exists := merged["height"]
	assert.False(t, exists, "wrong-kind value for a schema key must be dropped")
	assert.Equal(t, types.String("blue"), merged["color_note"], "unknown keys pass through")
}

func TestMergeAttributesSkipsZeroValues(t *testing.T) {
	model := &models.Model{Family: enums.FamilyPillow}
	incoming := types.AttributeMap{"filling": types.String("")}

	_, changed := MergeAttributes(model, incoming, true)
	assert.False(t, changed)
}

func TestUpdateDescription(t *testing.T) {
	merger := NewMerger(nil)

	model := &models.Model{}
	assert.True(t, merger.UpdateDescription(model, "a longer product description", "short"))
	require.NotNil(t, model.Description)
	assert.Equal(t, "a longer product description", *model.Description)

	assert.False(t, merger.UpdateDescription(model, "shorter", "another short"),
		"existing longer description and filled short description must both be kept")
	assert.Equal(t, "a longer product description", *model.Description)
	assert.Equal(t, "short", *model.ShortDescription)

	assert.True(t, merger.UpdateDescription(model, "an even longer product description text", ""))
	assert.Equal(t, "an even longer product description text", *model.Description)
}
