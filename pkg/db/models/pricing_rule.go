package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

// PricingRule is a markup policy keyed by target. Among all rules matching an
// offer's pricing context the highest priority wins.
type PricingRule struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                 `gorm:"column:name;not null"`
	Target      enums.RuleTarget       `gorm:"column:target;type:rule_target;not null"`
	SupplierID  *uuid.UUID             `gorm:"column:supplier_id;type:uuid"`
	BrandID     *uuid.UUID             `gorm:"column:brand_id;type:uuid"`
	CategoryID  *uuid.UUID             `gorm:"column:category_id;type:uuid"`
	Family      *enums.ProductFamily   `gorm:"column:family;type:product_family"`
	MarkupType  enums.MarkupType       `gorm:"column:markup_type;type:markup_type;not null"`
	MarkupValue decimal.Decimal        `gorm:"column:markup_value;type:numeric(12,4);not null"`
	Priority    int                    `gorm:"column:priority;not null;default:0"`
	MinPrice    *decimal.Decimal       `gorm:"column:min_price;type:numeric(12,2)"`
	MaxPrice    *decimal.Decimal       `gorm:"column:max_price;type:numeric(12,2)"`
	Rounding    enums.RoundingStrategy `gorm:"column:rounding;type:rounding_strategy;not null;default:'none'"`
	Active      bool                   `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
