package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/skuforge/catalog-engine/pkg/db/types"
)

// Offer is one supplier's listing of one Variant. Upserted on every import of
// the (supplier, SKU) pair; deactivated when the supplier stops listing it.
type Offer struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ModelID       uuid.UUID           `gorm:"column:model_id;type:uuid;not null"`
	VariantID     uuid.UUID           `gorm:"column:variant_id;type:uuid;not null"`
	SupplierID    uuid.UUID           `gorm:"column:supplier_id;type:uuid;not null;uniqueIndex:ux_offers_supplier_sku"`
	SupplierSKU   string              `gorm:"column:supplier_sku;not null;uniqueIndex:ux_offers_supplier_sku"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	PreviousPrice *decimal.Decimal    `gorm:"column:previous_price;type:numeric(12,2)"`
	RetailPrice   *decimal.Decimal    `gorm:"column:retail_price;type:numeric(12,2)"`
	InStock       bool                `gorm:"column:in_stock;not null;default:false"`
	Attributes    types.AttributeMap  `gorm:"column:attributes;type:jsonb;not null;default:'{}'"`
	Bundle        types.VariantBundle `gorm:"column:raw_bundle;type:jsonb;not null;default:'[]'"`
	Checksum      string              `gorm:"column:checksum;not null;default:''"`
	ImageURLs     pq.StringArray      `gorm:"column:image_urls;type:text[];not null;default:ARRAY[]::text[]"`
	Active        bool                `gorm:"column:active;not null;default:true"`
	LastSessionID *uuid.UUID          `gorm:"column:last_session_id;type:uuid"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
