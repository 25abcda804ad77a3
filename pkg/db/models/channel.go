package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

// SalesChannel is a downstream destination for catalog projections. Outbox
// fan-out creates one event per active channel.
type SalesChannel struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string    `gorm:"column:code;not null;uniqueIndex:ux_sales_channels_code"`
	Name      string    `gorm:"column:name;not null"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ChannelRequirement is the per-channel, per-family mandatory-field policy
// used by the readiness scorer. A nil family acts as the wildcard fallback.
type ChannelRequirement struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChannelID             uuid.UUID            `gorm:"column:channel_id;type:uuid;not null"`
	Family                *enums.ProductFamily `gorm:"column:family;type:product_family"`
	MinImages             int                  `gorm:"column:min_images;not null;default:0"`
	MinDescriptionLength  int                  `gorm:"column:min_description_length;not null;default:0"`
	RequireBarcode        bool                 `gorm:"column:require_barcode;not null;default:false"`
	RequireBrand          bool                 `gorm:"column:require_brand;not null;default:false"`
	RequirePrice          bool                 `gorm:"column:require_price;not null;default:false"`
	RequiredAttributes    pq.StringArray       `gorm:"column:required_attributes;type:text[];not null;default:ARRAY[]::text[]"`
	RecommendedAttributes pq.StringArray       `gorm:"column:recommended_attributes;type:text[];not null;default:ARRAY[]::text[]"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// ReadinessRecord caches the last readiness evaluation per (model, channel).
type ReadinessRecord struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ModelID       uuid.UUID      `gorm:"column:model_id;type:uuid;not null;uniqueIndex:ux_readiness_model_channel"`
	ChannelID     uuid.UUID      `gorm:"column:channel_id;type:uuid;not null;uniqueIndex:ux_readiness_model_channel"`
	IsReady       bool           `gorm:"column:is_ready;not null;default:false"`
	Score         int            `gorm:"column:score;not null;default:0"`
	MissingFields pq.StringArray `gorm:"column:missing_fields;type:text[];not null;default:ARRAY[]::text[]"`
	EvaluatedAt   time.Time      `gorm:"column:evaluated_at;not null"`
}
