package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skuforge/catalog-engine/pkg/db/types"
)

// Variant is one sellable configuration of a Model, distinguished by its
// variant-attribute map (width, length, color, ...). GTIN is globally unique
// when present.
type Variant struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ModelID    uuid.UUID          `gorm:"column:model_id;type:uuid;not null"`
	GTIN       *string            `gorm:"column:gtin;uniqueIndex:ux_variants_gtin"`
	MPN        *string            `gorm:"column:mpn"`
	Attributes types.AttributeMap `gorm:"column:attributes;type:jsonb;not null;default:'{}'"`
	Label      string             `gorm:"column:label;not null"`
	BestPrice  *decimal.Decimal   `gorm:"column:best_price;type:numeric(12,2)"`
	MinPrice   *decimal.Decimal   `gorm:"column:min_price;type:numeric(12,2)"`
	MaxPrice   *decimal.Decimal   `gorm:"column:max_price;type:numeric(12,2)"`
	InStock    bool               `gorm:"column:in_stock;not null;default:false"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
