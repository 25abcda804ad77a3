package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skuforge/catalog-engine/internal/repo"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/errors"
)

// Registrar records source image URLs for the download pipeline. The unique
// (entity, url) index plus an ON CONFLICT DO NOTHING insert makes repeated
// registration of the same URL a no-op instead of an error.
type Registrar struct {
	repo.Base
}

func NewRegistrar(db *gorm.DB) *Registrar {
	return &Registrar{Base: repo.NewBase(db)}
}

// WithTx returns a registrar bound to the provided transaction.
func (r *Registrar) WithTx(tx *gorm.DB) *Registrar {
	return &Registrar{Base: repo.NewBase(tx)}
}

// RegisterImages registers the URLs in order, skipping empties and
// duplicates within the slice. Position reflects first appearance.
func (r *Registrar) RegisterImages(ctx context.Context, entityType enums.OutboxEntityType, entityID uuid.UUID, urls []string) error {
	rows := make([]models.ProductImage, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		rows = append(rows, models.ProductImage{
			EntityType: entityType,
			EntityID:   entityID,
			URL:        url,
			Position:   len(rows),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	err := r.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "media: register images")
	}
	return nil
}

// ListImages returns the registered URLs for an entity in position order.
func (r *Registrar) ListImages(ctx context.Context, entityType enums.OutboxEntityType, entityID uuid.UUID) ([]models.ProductImage, error) {
	var rows []models.ProductImage
	err := r.DB(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeData, err, "media: list images")
	}
	return rows, nil
}

// CountImages returns the number of registered images for an entity.
func (r *Registrar) CountImages(ctx context.Context, entityType enums.OutboxEntityType, entityID uuid.UUID) (int, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.ProductImage{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(errors.CodeData, err, "media: count images")
	}
	return int(count), nil
}
