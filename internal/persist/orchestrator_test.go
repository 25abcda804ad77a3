package persist

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/pkg/db/types"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

func TestVariantLabel(t *testing.T) {
	record := catalog.ProductRecord{Attributes: types.AttributeMap{
		"width":  types.Number(80),
		"length": types.Number(200),
	}}
	assert.Equal(t, "80×200", variantLabel(record))

	record = catalog.ProductRecord{Attributes: types.AttributeMap{
		"size": types.String("Queen"),
	}}
	assert.Equal(t, "Queen", variantLabel(record))

	assert.Equal(t, "standard", variantLabel(catalog.ProductRecord{}))

	// A non-numeric width cannot form a size label.
	record = catalog.ProductRecord{Attributes: types.AttributeMap{
		"width":  types.String("80"),
		"length": types.Number(200),
	}}
	assert.Equal(t, "standard", variantLabel(record))
}

func TestVariantAttributesPicksAxesOnly(t *testing.T) {
	record := catalog.ProductRecord{Attributes: types.AttributeMap{
		"width":    types.Number(80),
		"firmness": types.String("firm"),
		"color":    types.String("white"),
	}}

	attrs := variantAttributes(record)
	assert.Len(t, attrs, 2)
	assert.Contains(t, attrs, "width")
	assert.Contains(t, attrs, "color")
	assert.NotContains(t, attrs, "firmness")
}

func TestShortenDescription(t *testing.T) {
	assert.Equal(t, "short text", shortenDescription("  short text "))

	long := strings.Repeat("word ", 60)
	short := shortenDescription(long)
	assert.LessOrEqual(t, len(short), 200)
	assert.False(t, strings.HasSuffix(short, " "))
}

func TestShortenDescriptionKeepsRunesIntact(t *testing.T) {
	// 100 three-byte runes with no spaces: the 200-byte limit falls
	// mid-rune and must back up to a boundary instead of storing a
	// broken fragment.
	long := strings.Repeat("€", 100)
	short := shortenDescription(long)
	assert.True(t, utf8.ValidString(short))
	assert.Equal(t, strings.Repeat("€", 66), short)

	mixed := "Größenangabe " + strings.Repeat("ä", 120)
	short = shortenDescription(mixed)
	assert.True(t, utf8.ValidString(short))
	assert.LessOrEqual(t, len(short), 200)
}

func TestBatchStatsCount(t *testing.T) {
	var stats BatchStats
	stats.count(enums.ActionCreated)
	stats.count(enums.ActionMatched)
	stats.count(enums.ActionMatched)
	stats.count(enums.ActionUpdated)
	stats.Errors++

	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 5, stats.Total())
}
