package persist

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/goldenrecord"
	"github.com/skuforge/catalog-engine/internal/matching"
	"github.com/skuforge/catalog-engine/internal/media"
	"github.com/skuforge/catalog-engine/internal/pricing"
	"github.com/skuforge/catalog-engine/pkg/db"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/db/types"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/errors"
	"github.com/skuforge/catalog-engine/pkg/logger"
	"github.com/skuforge/catalog-engine/pkg/outbox"
)

// Result reports what one persisted record did to the catalog.
type Result struct {
	Action      enums.PersistAction
	ModelID     uuid.UUID
	VariantID   uuid.UUID
	OfferID     uuid.UUID
	Matcher     enums.Matcher
	Confidence  float64
	NeedsReview bool
}

// Orchestrator is the transaction boundary of the engine: it matches one
// record, applies every catalog mutation it implies, and queues the outbox
// events, all in one transaction per record. The match itself runs before
// the write transaction opens so the inference fallback never holds locks.
type Orchestrator struct {
	client    *db.Client
	repo      *catalog.Repository
	lookups   *catalog.Lookups
	engine    *matching.Engine
	merger    *goldenrecord.Merger
	pricer    *pricing.Service
	events    *outbox.Service
	registrar *media.Registrar
	logg      *logger.Logger
}

func NewOrchestrator(
	client *db.Client,
	repo *catalog.Repository,
	lookups *catalog.Lookups,
	engine *matching.Engine,
	merger *goldenrecord.Merger,
	pricer *pricing.Service,
	events *outbox.Service,
	registrar *media.Registrar,
	logg *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		client:    client,
		repo:      repo,
		lookups:   lookups,
		engine:    engine,
		merger:    merger,
		pricer:    pricer,
		events:    events,
		registrar: registrar,
		logg:      logg,
	}
}

// PersistRecord consolidates one normalized supplier record into the
// catalog. Everything after the match either fully applies or rolls back.
func (o *Orchestrator) PersistRecord(ctx context.Context, record catalog.ProductRecord, supplierID, sessionID uuid.UUID) (Result, error) {
	if err := record.Validate(); err != nil {
		return Result{}, errors.Wrap(errors.CodeValidation, err, "persist: invalid record")
	}

	supplier, err := o.lookups.Supplier(ctx, supplierID)
	if err != nil {
		return Result{}, errors.Wrap(errors.CodeData, err, "persist: load supplier")
	}

	brandID, err := o.lookups.ResolveBrand(ctx, record.Manufacturer)
	if err != nil {
		return Result{}, err
	}
	family := catalog.DetectFamily(record.CategoryPath, record.Name)
	categoryID, err := o.lookups.ResolveCategory(ctx, record.CategoryPath, family)
	if err != nil {
		return Result{}, err
	}

	// Read phase. The inference fallback may block on an external call, so
	// the match is resolved before the write transaction opens.
	match, err := o.engine.Match(ctx, record, brandID, categoryID)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = o.client.WithTx(ctx, func(tx *gorm.DB) error {
		result, err = o.persistTx(ctx, tx, record, supplier, brandID, categoryID, family, match, sessionID)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (o *Orchestrator) persistTx(
	ctx context.Context,
	tx *gorm.DB,
	record catalog.ProductRecord,
	supplier *models.Supplier,
	brandID uuid.UUID,
	categoryID *uuid.UUID,
	family enums.ProductFamily,
	match matching.Result,
	sessionID uuid.UUID,
) (Result, error) {
	repo := o.repo.WithTx(tx)
	merger := o.merger.WithTx(repo)

	model, modelCreated, err := o.resolveModel(ctx, repo, record, brandID, categoryID, family, match)
	if err != nil {
		return Result{}, err
	}

	variantID, variantCreated, err := o.resolveVariant(ctx, repo, record, model.ID, match)
	if err != nil {
		return Result{}, err
	}

	offer, offerChange, err := o.upsertOffer(ctx, repo, record, supplier.ID, model, variantID, sessionID)
	if err != nil {
		return Result{}, err
	}

	pctx := pricing.Context{
		SupplierID: supplier.ID,
		BrandID:    model.BrandID,
		CategoryID: model.CategoryID,
		Family:     model.Family,
	}
	retailChanged, err := o.pricer.UpdateOfferRetailPrice(ctx, offer, pctx)
	if err != nil {
		return Result{}, err
	}

	if err := o.saveOffer(ctx, repo, offer, offerChange.inserted); err != nil {
		return Result{}, err
	}

	attrsChanged := merger.UpdateAttributes(model, record.Attributes, supplier.IsManufacturer)
	descChanged := merger.UpdateDescription(model, record.Description, shortenDescription(record.Description))
	if err := repo.SaveModel(ctx, model); err != nil {
		return Result{}, errors.Wrap(errors.CodeData, err, "persist: save model")
	}

	if err := merger.RecalculateVariant(ctx, variantID); err != nil {
		return Result{}, err
	}
	if err := merger.RecalculateModel(ctx, model.ID); err != nil {
		return Result{}, err
	}

	flags := eventFlags{
		modelCreated:   modelCreated,
		modelChanged:   attrsChanged || descChanged,
		variantCreated: variantCreated,
		retailChanged:  retailChanged,
	}
	if err := o.emitEvents(ctx, tx, model, offer, variantID, offerChange, flags); err != nil {
		return Result{}, err
	}

	if err := o.registrar.WithTx(tx).RegisterImages(ctx, enums.EntityModel, model.ID, record.ImageURLs); err != nil {
		return Result{}, err
	}

	action := enums.ActionUpdated
	switch {
	case modelCreated:
		action = enums.ActionCreated
	case offerChange.inserted:
		action = enums.ActionMatched
	}

	return Result{
		Action:      action,
		ModelID:     model.ID,
		VariantID:   variantID,
		OfferID:     offer.ID,
		Matcher:     match.Matcher,
		Confidence:  match.Confidence,
		NeedsReview: match.NeedsReview,
	}, nil
}

func (o *Orchestrator) resolveModel(
	ctx context.Context,
	repo *catalog.Repository,
	record catalog.ProductRecord,
	brandID uuid.UUID,
	categoryID *uuid.UUID,
	family enums.ProductFamily,
	match matching.Result,
) (*models.Model, bool, error) {
	if match.Found {
		model, err := repo.FindModelByID(ctx, match.ModelID)
		if err != nil {
			return nil, false, errors.Wrap(errors.CodeData, err, "persist: load matched model")
		}
		if match.NeedsReview {
			model.NeedsReview = true
		}
		return model, false, nil
	}

	model := &models.Model{
		BrandID:        brandID,
		CategoryID:     categoryID,
		Family:         family,
		Name:           record.Name,
		NormalizedName: catalog.NormalizeName(record.Name),
		Attributes:     types.AttributeMap{},
		Status:         enums.ModelActive,
	}
	if err := repo.CreateModel(ctx, model); err != nil {
		return nil, false, errors.Wrap(errors.CodeData, err, "persist: create model")
	}
	return model, true, nil
}

func (o *Orchestrator) resolveVariant(
	ctx context.Context,
	repo *catalog.Repository,
	record catalog.ProductRecord,
	modelID uuid.UUID,
	match matching.Result,
) (uuid.UUID, bool, error) {
	if match.HasVariant() {
		return match.VariantID, false, nil
	}

	label := variantLabel(record)
	if existing, err := repo.FindVariantByLabel(ctx, modelID, label); err != nil {
		return uuid.Nil, false, errors.Wrap(errors.CodeData, err, "persist: variant lookup")
	} else if existing != nil {
		return existing.ID, false, nil
	}

	variant := &models.Variant{
		ModelID:    modelID,
		Label:      label,
		Attributes: variantAttributes(record),
		InStock:    record.InStock,
	}
	if gtin, ok := matching.NormalizeGTIN(record.GTIN); ok {
		variant.GTIN = &gtin
	}
	if mpn := catalog.CleanMPN(record.MPN); mpn != "" {
		variant.MPN = &mpn
	}
	if err := repo.CreateVariant(ctx, variant); err != nil {
		return uuid.Nil, false, errors.Wrap(errors.CodeData, err, "persist: create variant")
	}
	return variant.ID, true, nil
}

type offerChange struct {
	inserted       bool
	priceChanged   bool
	stockChanged   bool
	contentChanged bool
	oldPrice       *string
	oldRetail      *string
	oldInStock     bool
}

// upsertOffer creates or updates the (supplier, SKU) row. The SELECT FOR
// UPDATE in FindOfferBySupplierSKU serializes concurrent imports of the same
// SKU on the row lock.
func (o *Orchestrator) upsertOffer(
	ctx context.Context,
	repo *catalog.Repository,
	record catalog.ProductRecord,
	supplierID uuid.UUID,
	model *models.Model,
	variantID uuid.UUID,
	sessionID uuid.UUID,
) (*models.Offer, offerChange, error) {
	existing, err := repo.FindOfferBySupplierSKU(ctx, supplierID, record.SupplierSKU)
	if err != nil {
		return nil, offerChange{}, errors.Wrap(errors.CodeData, err, "persist: offer lookup")
	}

	checksum := record.Checksum()
	session := sessionID

	if existing == nil {
		offer := &models.Offer{
			ModelID:       model.ID,
			VariantID:     variantID,
			SupplierID:    supplierID,
			SupplierSKU:   record.SupplierSKU,
			Price:         record.Price,
			InStock:       record.InStock,
			Attributes:    record.Attributes,
			Bundle:        record.Bundle,
			Checksum:      checksum,
			ImageURLs:     pq.StringArray(record.ImageURLs),
			Active:        true,
			LastSessionID: &session,
		}
		return offer, offerChange{inserted: true, priceChanged: true, stockChanged: record.InStock}, nil
	}

	change := offerChange{
		priceChanged: !existing.Price.Equal(record.Price),
		stockChanged: existing.InStock != record.InStock,
		oldInStock:   existing.InStock,
	}
	change.contentChanged = existing.Checksum != checksum && !change.priceChanged && !change.stockChanged

	if change.priceChanged {
		old := existing.Price.StringFixed(2)
		change.oldPrice = &old
		prev := existing.Price
		existing.PreviousPrice = &prev
		existing.Price = record.Price
	}
	if existing.RetailPrice != nil {
		old := existing.RetailPrice.StringFixed(2)
		change.oldRetail = &old
	}

	existing.InStock = record.InStock
	existing.Attributes = record.Attributes
	existing.Bundle = record.Bundle
	existing.ImageURLs = pq.StringArray(record.ImageURLs)
	existing.Checksum = checksum
	existing.Active = true
	existing.LastSessionID = &session
	return existing, change, nil
}

func (o *Orchestrator) saveOffer(ctx context.Context, repo *catalog.Repository, offer *models.Offer, inserted bool) error {
	var err error
	if inserted {
		err = repo.CreateOffer(ctx, offer)
	} else {
		err = repo.SaveOffer(ctx, offer)
	}
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "persist: save offer")
	}
	return nil
}

// eventFlags collects what changed during one persist so emitEvents can
// decide which lanes and entities get a row.
type eventFlags struct {
	modelCreated   bool
	modelChanged   bool
	variantCreated bool
	retailChanged  bool
}

func (o *Orchestrator) emitEvents(
	ctx context.Context,
	tx *gorm.DB,
	model *models.Model,
	offer *models.Offer,
	variantID uuid.UUID,
	change offerChange,
	flags eventFlags,
) error {
	if flags.modelCreated || flags.modelChanged {
		action := "updated"
		if flags.modelCreated {
			action = "created"
		}
		err := o.events.Emit(ctx, tx, outbox.Event{
			EntityType: enums.EntityModel,
			EntityID:   model.ID,
			ModelID:    model.ID,
			Lane:       enums.LaneContent,
			Payload: map[string]any{
				"action": action,
				"name":   model.Name,
				"family": model.Family,
			},
		})
		if err != nil {
			return errors.Wrap(errors.CodeData, err, "persist: emit model event")
		}
	}

	if flags.variantCreated {
		err := o.events.Emit(ctx, tx, outbox.Event{
			EntityType: enums.EntityVariant,
			EntityID:   variantID,
			ModelID:    model.ID,
			Lane:       enums.LaneContent,
			Payload: map[string]any{
				"action": "created",
			},
		})
		if err != nil {
			return errors.Wrap(errors.CodeData, err, "persist: emit variant event")
		}
	}

	if change.inserted || change.contentChanged {
		action := "updated"
		if change.inserted {
			action = "created"
		}
		err := o.events.Emit(ctx, tx, outbox.Event{
			EntityType: enums.EntityOffer,
			EntityID:   offer.ID,
			ModelID:    model.ID,
			Lane:       enums.LaneContent,
			Payload: map[string]any{
				"action":       action,
				"supplier_sku": offer.SupplierSKU,
			},
		})
		if err != nil {
			return errors.Wrap(errors.CodeData, err, "persist: emit offer event")
		}
	}

	if change.inserted || change.priceChanged || flags.retailChanged {
		payload := outbox.PricePayload{
			OldPrice: change.oldPrice,
			NewPrice: offer.Price.StringFixed(2),
		}
		if flags.retailChanged {
			payload.OldRetailPrice = change.oldRetail
		}
		if offer.RetailPrice != nil {
			retail := offer.RetailPrice.StringFixed(2)
			payload.NewRetailPrice = &retail
		}
		err := o.events.Emit(ctx, tx, outbox.Event{
			EntityType: enums.EntityOffer,
			EntityID:   offer.ID,
			ModelID:    model.ID,
			Lane:       enums.LanePrice,
			Payload:    payload,
		})
		if err != nil {
			return errors.Wrap(errors.CodeData, err, "persist: emit price event")
		}
	}

	if change.stockChanged {
		err := o.events.Emit(ctx, tx, outbox.Event{
			EntityType: enums.EntityOffer,
			EntityID:   offer.ID,
			ModelID:    model.ID,
			Lane:       enums.LaneStock,
			Payload: outbox.StockPayload{
				OldInStock: change.oldInStock,
				NewInStock: offer.InStock,
			},
		})
		if err != nil {
			return errors.Wrap(errors.CodeData, err, "persist: emit stock event")
		}
	}
	return nil
}

// variantAxes lists the attribute keys that distinguish variants within a
// model.
var variantAxes = []string{"width", "length", "height", "color", "size"}

func variantAttributes(record catalog.ProductRecord) types.AttributeMap {
	attrs := types.AttributeMap{}
	for _, key := range variantAxes {
		if value, ok := record.Attributes[key]; ok && !value.IsZero() {
			attrs[key] = value
		}
	}
	return attrs
}

// variantLabel derives the human-readable label the exploder also matches
// on: "80×200" when width and length are known, otherwise a size attribute
// or the generic placeholder.
func variantLabel(record catalog.ProductRecord) string {
	width, wok := record.Attributes["width"]
	length, lok := record.Attributes["length"]
	if wok && lok && width.Kind == types.KindNumber && length.Kind == types.KindNumber {
		return fmt.Sprintf("%d×%d", int(width.Num), int(length.Num))
	}
	if size, ok := record.Attributes["size"]; ok && size.Kind == types.KindString && size.Str != "" {
		return size.Str
	}
	return "standard"
}

func shortenDescription(description string) string {
	const maxLen = 200
	description = strings.TrimSpace(description)
	if len(description) <= maxLen {
		return description
	}
	end := maxLen
	for end > 0 && !utf8.RuneStart(description[end]) {
		end--
	}
	cut := description[:end]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
