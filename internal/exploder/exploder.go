package exploder

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/goldenrecord"
	"github.com/skuforge/catalog-engine/pkg/db"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/db/types"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/errors"
	"github.com/skuforge/catalog-engine/pkg/logger"
	"github.com/skuforge/catalog-engine/pkg/outbox"
)

// Stats reports what one explosion did.
type Stats struct {
	Created    int
	Updated    int
	Deleted    int
	SizesFound int
}

// sizeGroup aggregates every bundle entry sharing one size key across all of
// a model's offers.
type sizeGroup struct {
	key     SizeKey
	best    decimal.Decimal
	min     decimal.Decimal
	max     decimal.Decimal
	inStock bool
}

// Exploder decomposes offers whose per-size variants arrived bundled in a
// JSON list instead of split at ingestion. A maintenance operation run in
// batches, never on the per-record hot path.
type Exploder struct {
	client *db.Client
	repo   *catalog.Repository
	merger *goldenrecord.Merger
	events *outbox.Service
	logg   *logger.Logger
}

func NewExploder(client *db.Client, repo *catalog.Repository, merger *goldenrecord.Merger, events *outbox.Service, logg *logger.Logger) *Exploder {
	return &Exploder{client: client, repo: repo, merger: merger, events: events, logg: logg}
}

// FindCandidateModels lists models worth exploding: multi-size bundles with
// placeholder or priceless variants.
func (e *Exploder) FindCandidateModels(ctx context.Context, limit int) ([]uuid.UUID, error) {
	ids, err := e.repo.ListExplosionCandidates(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeData, err, "exploder: list candidates")
	}
	return ids, nil
}

// ExplodeModel materializes one variant per distinct size found in the
// model's offer bundles, repoints stray offers, and deletes orphaned
// variants, in one transaction.
func (e *Exploder) ExplodeModel(ctx context.Context, modelID uuid.UUID) (Stats, error) {
	var stats Stats
	err := e.client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		stats, err = e.explodeTx(ctx, tx, modelID)
		return err
	})
	return stats, err
}

func (e *Exploder) explodeTx(ctx context.Context, tx *gorm.DB, modelID uuid.UUID) (Stats, error) {
	repo := e.repo.WithTx(tx)
	logCtx := e.logg.WithModelID(ctx, modelID.String())

	offers, err := repo.ListActiveOffersByModel(ctx, modelID)
	if err != nil {
		return Stats{}, errors.Wrap(errors.CodeData, err, "exploder: list offers")
	}

	groups := groupBundleEntries(offers)
	if len(groups) == 0 {
		return Stats{}, nil
	}

	stats := Stats{SizesFound: len(groups)}

	// Cheapest size first; stray offers get repointed to this one.
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].best.Equal(groups[j].best) {
			return groups[i].best.LessThan(groups[j].best)
		}
		if groups[i].key.Width != groups[j].key.Width {
			return groups[i].key.Width < groups[j].key.Width
		}
		return groups[i].key.Length < groups[j].key.Length
	})

	variantIDs := make(map[uuid.UUID]struct{}, len(groups))
	var cheapest uuid.UUID
	for i, group := range groups {
		variant, created, err := e.materializeVariant(ctx, repo, modelID, group)
		if err != nil {
			return Stats{}, err
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
		variantIDs[variant.ID] = struct{}{}
		if i == 0 {
			cheapest = variant.ID
		}
	}

	var strays []uuid.UUID
	for i := range offers {
		if _, ok := variantIDs[offers[i].VariantID]; !ok {
			strays = append(strays, offers[i].ID)
		}
	}
	if len(strays) > 0 {
		// Interim heuristic, not a per-price-point mapping: every stray
		// offer lands on the cheapest materialized variant.
		if err := repo.RepointOffers(ctx, strays, cheapest); err != nil {
			return Stats{}, errors.Wrap(errors.CodeData, err, "exploder: repoint offers")
		}
	}

	deleted, err := repo.DeleteOrphanVariants(ctx, modelID)
	if err != nil {
		return Stats{}, errors.Wrap(errors.CodeData, err, "exploder: delete orphans")
	}
	stats.Deleted = int(deleted)

	// Variant aggregates were just derived from the bundles; a generic
	// recalculation would overwrite them from offer rows. Only the model
	// level is re-derived.
	if err := e.merger.WithTx(repo).RecalculateModel(ctx, modelID); err != nil {
		return Stats{}, err
	}

	err = e.events.Emit(ctx, tx, outbox.Event{
		EntityType: enums.EntityModel,
		EntityID:   modelID,
		ModelID:    modelID,
		Lane:       enums.LaneContent,
		Payload: map[string]any{
			"action": "exploded",
			"sizes":  stats.SizesFound,
		},
	})
	if err != nil {
		return Stats{}, errors.Wrap(errors.CodeData, err, "exploder: emit content event")
	}

	e.logg.Info(e.logg.WithFields(logCtx, map[string]any{
		"sizes":   stats.SizesFound,
		"created": stats.Created,
		"updated": stats.Updated,
		"deleted": stats.Deleted,
	}), "model exploded")
	return stats, nil
}

// groupBundleEntries buckets every parseable bundle entry by size key.
// Unparseable entries are skipped; the rest of their bundle still counts.
func groupBundleEntries(offers []models.Offer) []sizeGroup {
	byKey := map[SizeKey]*sizeGroup{}
	for i := range offers {
		for _, entry := range offers[i].Bundle {
			key, ok := entrySize(entry.Options, entry.Name)
			if !ok {
				continue
			}
			group, exists := byKey[key]
			if !exists {
				byKey[key] = &sizeGroup{
					key:     key,
					best:    entry.Price,
					min:     entry.Price,
					max:     entry.Price,
					inStock: entry.InStock,
				}
				continue
			}
			if entry.Price.LessThan(group.min) {
				group.min = entry.Price
				group.best = entry.Price
			}
			if entry.Price.GreaterThan(group.max) {
				group.max = entry.Price
			}
			if entry.InStock {
				group.inStock = true
			}
		}
	}

	out := make([]sizeGroup, 0, len(byKey))
	for _, group := range byKey {
		out = append(out, *group)
	}
	return out
}

func (e *Exploder) materializeVariant(ctx context.Context, repo *catalog.Repository, modelID uuid.UUID, group sizeGroup) (*models.Variant, bool, error) {
	label := group.key.Label()
	best, min, max := group.best, group.min, group.max

	variant, err := repo.FindVariantByLabel(ctx, modelID, label)
	if err != nil {
		return nil, false, errors.Wrap(errors.CodeData, err, "exploder: variant lookup")
	}

	if variant == nil {
		variant = &models.Variant{
			ModelID: modelID,
			Label:   label,
			Attributes: types.AttributeMap{
				"width":  types.Number(float64(group.key.Width)),
				"length": types.Number(float64(group.key.Length)),
			},
			BestPrice: &best,
			MinPrice:  &min,
			MaxPrice:  &max,
			InStock:   group.inStock,
		}
		if err := repo.CreateVariant(ctx, variant); err != nil {
			return nil, false, errors.Wrap(errors.CodeData, err, "exploder: create variant")
		}
		return variant, true, nil
	}

	variant.BestPrice = &best
	variant.MinPrice = &min
	variant.MaxPrice = &max
	variant.InStock = group.inStock
	if err := repo.SaveVariant(ctx, variant); err != nil {
		return nil, false, errors.Wrap(errors.CodeData, err, "exploder: update variant")
	}
	return variant, false, nil
}
