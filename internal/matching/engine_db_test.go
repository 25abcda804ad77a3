package matching

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("CATALOG_DB_DSN")
	if dsn == "" {
		t.Skip("CATALOG_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func seedBrand(t *testing.T, tx *gorm.DB, name string) models.Brand {
	t.Helper()
	brand := models.Brand{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: catalog.NormalizeName(name) + " " + uuid.NewString(),
	}
	require.NoError(t, tx.Create(&brand).Error)
	return brand
}

func seedModel(t *testing.T, tx *gorm.DB, brandID uuid.UUID, name string) models.Model {
	t.Helper()
	model := models.Model{
		ID:             uuid.New(),
		BrandID:        brandID,
		Family:         enums.FamilyMattress,
		Name:           name,
		NormalizedName: catalog.NormalizeName(name),
		Status:         enums.ModelActive,
	}
	require.NoError(t, tx.Create(&model).Error)
	return model
}

// recordingPicker answers with the candidate matching pickName and keeps the
// offered pool for assertions.
type recordingPicker struct {
	pickName   string
	confidence float64
	seen       []Candidate
}

func (p *recordingPicker) PickCandidate(ctx context.Context, record catalog.ProductRecord, candidates []Candidate) (Pick, error) {
	p.seen = candidates
	for i, c := range candidates {
		if c.Name == p.pickName {
			return Pick{Index: i, Confidence: p.confidence}, nil
		}
	}
	return Pick{Index: -1}, nil
}

func TestMatchPrecedence(t *testing.T) {
	conn := openTestDB(t)

	tx := conn.Begin()
	require.NoError(t, tx.Error)
	defer tx.Rollback()

	logg := logger.New(logger.Options{ServiceName: "matching-test"})
	engine := NewEngine(catalog.NewRepository(tx), nil, logg, 20)

	brand := seedBrand(t, tx, "Acme")
	model := seedModel(t, tx, brand.ID, "Comfort")
	gtin := "4006381333931"
	mpn := "ACM123"
	variant := models.Variant{
		ID:      uuid.New(),
		ModelID: model.ID,
		GTIN:    &gtin,
		MPN:     &mpn,
		Label:   "90×200",
	}
	require.NoError(t, tx.Create(&variant).Error)

	t.Run("gtin wins over everything", func(t *testing.T) {
		res, err := engine.Match(t.Context(), catalog.ProductRecord{
			Name: "Totally Different Name",
			GTIN: "4006381333931",
			MPN:  "OTHER-999",
		}, brand.ID, nil)
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.Equal(t, enums.MatcherGTIN, res.Matcher)
		assert.Equal(t, variant.ID, res.VariantID)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("mpn within brand", func(t *testing.T) {
		res, err := engine.Match(t.Context(), catalog.ProductRecord{
			Name: "Totally Different Name",
			MPN:  "acm-123",
		}, brand.ID, nil)
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.Equal(t, enums.MatcherMPN, res.Matcher)
		assert.Equal(t, model.ID, res.ModelID)
	})

	t.Run("second offer matches by brand and name", func(t *testing.T) {
		res, err := engine.Match(t.Context(), catalog.ProductRecord{
			Name: "Comfort",
		}, brand.ID, nil)
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.Equal(t, enums.MatcherComposite, res.Matcher)
		assert.Equal(t, model.ID, res.ModelID)
		assert.False(t, res.HasVariant())
		assert.GreaterOrEqual(t, res.Confidence, 0.95)
		assert.False(t, res.NeedsReview)
	})

	t.Run("close name lands in review band", func(t *testing.T) {
		res, err := engine.Match(t.Context(), catalog.ProductRecord{
			Name: "Comfort Matratze",
		}, brand.ID, nil)
		require.NoError(t, err)
		if res.Found {
			assert.Equal(t, model.ID, res.ModelID)
			assert.True(t, res.NeedsReview)
		}
	})

	t.Run("unrelated record stays unmatched", func(t *testing.T) {
		res, err := engine.Match(t.Context(), catalog.ProductRecord{
			Name: "Royal Dream Deluxe Edition",
		}, brand.ID, nil)
		require.NoError(t, err)
		assert.False(t, res.Found)
		assert.Equal(t, enums.MatcherNone, res.Matcher)
	})

	t.Run("inference pool includes dissimilar brand siblings", func(t *testing.T) {
		deluxe := seedModel(t, tx, brand.ID, "Royal Dream Deluxe Edition")
		picker := &recordingPicker{pickName: deluxe.Name, confidence: 0.97}
		withPicker := NewEngine(catalog.NewRepository(tx), picker, logg, 20)

		res, err := withPicker.Match(t.Context(), catalog.ProductRecord{
			Name: "RD-2000 Premium",
		}, brand.ID, nil)
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.Equal(t, enums.MatcherInference, res.Matcher)
		assert.Equal(t, deluxe.ID, res.ModelID)
		assert.False(t, res.NeedsReview)

		// The pool is brand-scoped, not similarity-filtered: the dissimilar
		// sibling must have been offered to the picker.
		names := make([]string, 0, len(picker.seen))
		for _, c := range picker.seen {
			names = append(names, c.Name)
		}
		assert.Contains(t, names, deluxe.Name)
	})

	t.Run("mpn of another brand does not match", func(t *testing.T) {
		other := seedBrand(t, tx, "Rival")
		res, err := engine.Match(t.Context(), catalog.ProductRecord{
			Name: "Something Else",
			MPN:  "ACM123",
		}, other.ID, nil)
		require.NoError(t, err)
		assert.False(t, res.Found)
	})
}
