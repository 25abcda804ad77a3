package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skuforge/catalog-engine/pkg/db/models"
)

// Repository wires together the catalog persistence helpers for models,
// variants, and offers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindModelByID loads a model without associations.
func (r *Repository) FindModelByID(ctx context.Context, id uuid.UUID) (*models.Model, error) {
	var model models.Model
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &model, nil
}

// FindModelDetail loads a model with its brand and category for readiness
// evaluation.
func (r *Repository) FindModelDetail(ctx context.Context, id uuid.UUID) (*models.Model, error) {
	var model models.Model
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// CreateModel inserts a new model row.
func (r *Repository) CreateModel(ctx context.Context, model *models.Model) error {
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveModel updates an existing model row.
func (r *Repository) SaveModel(ctx context.Context, model *models.Model) error {
	return r.db.WithContext(ctx).Save(model).Error
}

// FindModelByBrandAndName returns the model for the (brand, normalized name)
// pair, or nil when none exists.
func (r *Repository) FindModelByBrandAndName(ctx context.Context, brandID uuid.UUID, normalizedName string) (*models.Model, error) {
	var model models.Model
	err := r.db.WithContext(ctx).
		Where("brand_id = ? AND normalized_name = ?", brandID, normalizedName).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// ListModelsByBrand returns active models of a brand, used as the composite
// matcher's candidate pool.
func (r *Repository) ListModelsByBrand(ctx context.Context, brandID uuid.UUID) ([]models.Model, error) {
	var rows []models.Model
	err := r.db.WithContext(ctx).
		Where("brand_id = ? AND status = ?", brandID, "active").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// ListInferenceCandidates returns up to limit active models sharing the
// brand and, when known, the category. This is the candidate set handed to the
// external entity-resolution fallback.
func (r *Repository) ListInferenceCandidates(ctx context.Context, brandID uuid.UUID, categoryID *uuid.UUID, limit int) ([]models.Model, error) {
	qb := r.db.WithContext(ctx).
		Where("brand_id = ? AND status = ?", brandID, "active")
	if categoryID != nil {
		qb = qb.Where("category_id = ?", *categoryID)
	}
	var rows []models.Model
	err := qb.Order("offer_count DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// FindVariantByID loads a variant.
func (r *Repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	if err := r.db.WithContext(ctx).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// CreateVariant inserts a new variant row.
func (r *Repository) CreateVariant(ctx context.Context, variant *models.Variant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

// SaveVariant updates an existing variant row.
func (r *Repository) SaveVariant(ctx context.Context, variant *models.Variant) error {
	return r.db.WithContext(ctx).Save(variant).Error
}

// FindVariantByGTIN returns the variant carrying the normalized trade
// identifier, or nil.
func (r *Repository) FindVariantByGTIN(ctx context.Context, gtin string) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).Where("gtin = ?", gtin).First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantByMPN returns a variant with the cleaned part number under the
// given brand's models, or nil.
func (r *Repository) FindVariantByMPN(ctx context.Context, brandID uuid.UUID, mpn string) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).
		Joins("JOIN catalog_models m ON m.id = variants.model_id").
		Where("m.brand_id = ? AND variants.mpn = ?", brandID, mpn).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// FindVariantByLabel returns the model's variant with the given label, or nil.
func (r *Repository) FindVariantByLabel(ctx context.Context, modelID uuid.UUID, label string) (*models.Variant, error) {
	var variant models.Variant
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND label = ?", modelID, label).
		First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// ListVariantsByModel returns all variants of a model.
func (r *Repository) ListVariantsByModel(ctx context.Context, modelID uuid.UUID) ([]models.Variant, error) {
	var rows []models.Variant
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("label ASC").
		Find(&rows).Error
	return rows, err
}

// DeleteOrphanVariants removes the model's variants that no offer references
// and reports how many were deleted.
func (r *Repository) DeleteOrphanVariants(ctx context.Context, modelID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("model_id = ? AND NOT EXISTS (SELECT 1 FROM offers o WHERE o.variant_id = variants.id)", modelID).
		Delete(&models.Variant{})
	return res.RowsAffected, res.Error
}

// ListExplosionCandidates returns models whose active offers carry a
// multi-size bundle while their variants are still unexploded placeholders
// or have no computed price.
func (r *Repository) ListExplosionCandidates(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT o.model_id
		FROM offers o
		WHERE o.active
		  AND jsonb_array_length(o.raw_bundle) > 1
		  AND EXISTS (
			SELECT 1 FROM variants v
			WHERE v.model_id = o.model_id
			  AND (v.label = 'standard' OR v.best_price IS NULL)
		  )
		LIMIT ?`, limit).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FindOfferBySupplierSKU locks and returns the offer for the unique
// (supplier, SKU) pair, or nil. The row lock serializes concurrent upserts of
// the same offer.
func (r *Repository) FindOfferBySupplierSKU(ctx context.Context, supplierID uuid.UUID, sku string) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("supplier_id = ? AND supplier_sku = ?", supplierID, sku).
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// CreateOffer inserts a new offer row.
func (r *Repository) CreateOffer(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

// SaveOffer updates an existing offer row.
func (r *Repository) SaveOffer(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Save(offer).Error
}

// ListActiveOffersByVariant returns the active offers referencing a variant.
func (r *Repository) ListActiveOffersByVariant(ctx context.Context, variantID uuid.UUID) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND active = ?", variantID, true).
		Find(&rows).Error
	return rows, err
}

// ListActiveOffersByModel returns the active offers of a model.
func (r *Repository) ListActiveOffersByModel(ctx context.Context, modelID uuid.UUID) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND active = ?", modelID, true).
		Find(&rows).Error
	return rows, err
}

// RepointOffers moves the given offers to a new variant.
func (r *Repository) RepointOffers(ctx context.Context, offerIDs []uuid.UUID, variantID uuid.UUID) error {
	if len(offerIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Offer{}).
		Where("id IN ?", offerIDs).
		Update("variant_id", variantID).Error
}

// DeactivateMissingOffers flags a supplier's offers inactive when they were
// not seen in the given import session.
func (r *Repository) DeactivateMissingOffers(ctx context.Context, supplierID, sessionID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Offer{}).
		Where("supplier_id = ? AND active = ? AND (last_session_id IS NULL OR last_session_id <> ?)",
			supplierID, true, sessionID).
		Update("active", false)
	return res.RowsAffected, res.Error
}
