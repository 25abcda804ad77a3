package goldenrecord

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/db/types"
	"github.com/skuforge/catalog-engine/pkg/errors"
)

// Merger recomputes per-variant and per-model aggregates and reconciles
// canonical attributes. Aggregates are always derived in full from the
// current active rows; incremental deltas would drift under concurrent
// writers touching the same model.
type Merger struct {
	repo *catalog.Repository
}

func NewMerger(repo *catalog.Repository) *Merger {
	return &Merger{repo: repo}
}

// WithTx returns a merger bound to the given transaction.
func (m *Merger) WithTx(repo *catalog.Repository) *Merger {
	return &Merger{repo: repo}
}

// RecalculateVariant re-derives a variant's price range and stock flag from
// its active offers and persists the result.
func (m *Merger) RecalculateVariant(ctx context.Context, variantID uuid.UUID) error {
	variant, err := m.repo.FindVariantByID(ctx, variantID)
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "goldenrecord: load variant")
	}

	offers, err := m.repo.ListActiveOffersByVariant(ctx, variantID)
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "goldenrecord: list variant offers")
	}

	min, max, inStock := aggregateOffers(offers)
	variant.BestPrice = min
	variant.MinPrice = min
	variant.MaxPrice = max
	variant.InStock = inStock

	if err := m.repo.SaveVariant(ctx, variant); err != nil {
		return errors.Wrap(errors.CodeData, err, "goldenrecord: save variant")
	}
	return nil
}

// RecalculateModel re-derives a model's price range, stock flag, and
// supplier/variant/offer counts from its active offers and variants.
func (m *Merger) RecalculateModel(ctx context.Context, modelID uuid.UUID) error {
	model, err := m.repo.FindModelByID(ctx, modelID)
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "goldenrecord: load model")
	}

	offers, err := m.repo.ListActiveOffersByModel(ctx, modelID)
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "goldenrecord: list model offers")
	}
	variants, err := m.repo.ListVariantsByModel(ctx, modelID)
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "goldenrecord: list model variants")
	}

	min, max, inStock := aggregateOffers(offers)
	model.MinPrice = min
	model.MaxPrice = max
	model.InStock = inStock
	model.OfferCount = len(offers)
	model.VariantCount = len(variants)
	model.SupplierCount = distinctSuppliers(offers)

	if err := m.repo.SaveModel(ctx, model); err != nil {
		return errors.Wrap(errors.CodeData, err, "goldenrecord: save model")
	}
	return nil
}

func aggregateOffers(offers []models.Offer) (min, max *decimal.Decimal, inStock bool) {
	for i := range offers {
		price := offers[i].Price
		if min == nil || price.LessThan(*min) {
			p := price
			min = &p
		}
		if max == nil || price.GreaterThan(*max) {
			p := price
			max = &p
		}
		if offers[i].InStock {
			inStock = true
		}
	}
	return min, max, inStock
}

func distinctSuppliers(offers []models.Offer) int {
	seen := make(map[uuid.UUID]struct{}, len(offers))
	for i := range offers {
		seen[offers[i].SupplierID] = struct{}{}
	}
	return len(seen)
}

// MergeAttributes reconciles a model's canonical attribute map with a new
// offer's attributes under the trust hierarchy: a manufacturer's values
// overwrite canonical ones, an empty canonical map adopts the new one
// wholesale, and any other source only fills gaps. Values that violate the
// family schema are dropped. The returned map is a fresh copy; changed
// reports whether it differs from the current canonical map.
func MergeAttributes(model *models.Model, incoming types.AttributeMap, isManufacturer bool) (types.AttributeMap, bool) {
	merged := model.Attributes.Clone()
	if merged == nil {
		merged = types.AttributeMap{}
	}

	canonicalEmpty := len(model.Attributes) == 0
	changed := false
	for _, key := range incoming.Keys() {
		value := incoming[key]
		if value.IsZero() || !conformsToSchema(model.Family, key, value) {
			continue
		}

		current, exists := merged[key]
		switch {
		case isManufacturer || canonicalEmpty:
			if !exists || !current.Equal(value) {
				merged[key] = value
				changed = true
			}
		case !exists || current.IsZero():
			merged[key] = value
			changed = true
		}
	}
	return merged, changed
}

// UpdateAttributes applies MergeAttributes to the model in place.
func (m *Merger) UpdateAttributes(model *models.Model, incoming types.AttributeMap, isManufacturer bool) bool {
	merged, changed := MergeAttributes(model, incoming, isManufacturer)
	if changed {
		model.Attributes = merged
	}
	return changed
}

// UpdateDescription keeps the longer of the stored and incoming description
// and fills the short description only when it is empty.
func (m *Merger) UpdateDescription(model *models.Model, description, shortDescription string) bool {
	changed := false
	if description != "" && (model.Description == nil || len(description) > len(*model.Description)) {
		model.Description = &description
		changed = true
	}
	if shortDescription != "" && (model.ShortDescription == nil || *model.ShortDescription == "") {
		model.ShortDescription = &shortDescription
		changed = true
	}
	return changed
}
