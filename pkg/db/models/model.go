package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skuforge/catalog-engine/pkg/db/types"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

// Model is the brand+name-level product abstraction that owns variants and
// offers. One row per identified product; deactivated, never deleted.
type Model struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BrandID          uuid.UUID           `gorm:"column:brand_id;type:uuid;not null"`
	CategoryID       *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	Family           enums.ProductFamily `gorm:"column:family;type:product_family;not null;default:'unknown'"`
	Name             string              `gorm:"column:name;not null"`
	NormalizedName   string              `gorm:"column:normalized_name;not null"`
	Description      *string             `gorm:"column:description"`
	ShortDescription *string             `gorm:"column:short_description"`
	Attributes       types.AttributeMap  `gorm:"column:attributes;type:jsonb;not null;default:'{}'"`
	MinPrice         *decimal.Decimal    `gorm:"column:min_price;type:numeric(12,2)"`
	MaxPrice         *decimal.Decimal    `gorm:"column:max_price;type:numeric(12,2)"`
	InStock          bool                `gorm:"column:in_stock;not null;default:false"`
	SupplierCount    int                 `gorm:"column:supplier_count;not null;default:0"`
	VariantCount     int                 `gorm:"column:variant_count;not null;default:0"`
	OfferCount       int                 `gorm:"column:offer_count;not null;default:0"`
	Status           enums.ModelStatus   `gorm:"column:status;type:model_status;not null;default:'active'"`
	NeedsReview      bool                `gorm:"column:needs_review;not null;default:false"`
	Brand            *Brand              `gorm:"foreignKey:BrandID"`
	Category         *Category           `gorm:"foreignKey:CategoryID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Model) TableName() string { return "catalog_models" }
