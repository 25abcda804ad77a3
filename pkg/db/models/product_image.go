package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

// ProductImage registers a source image URL for an entity. The unique index
// over (entity_type, entity_id, url) makes registration idempotent; the
// download/transcode pipeline consumes these rows elsewhere.
type ProductImage struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntityType enums.OutboxEntityType `gorm:"column:entity_type;type:entity_type;not null;uniqueIndex:ux_product_images_entity_url"`
	EntityID   uuid.UUID              `gorm:"column:entity_id;type:uuid;not null;uniqueIndex:ux_product_images_entity_url"`
	URL        string                 `gorm:"column:url;not null;uniqueIndex:ux_product_images_entity_url"`
	Position   int                    `gorm:"column:position;not null;default:0"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}
