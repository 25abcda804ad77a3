package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

// Supplier is one source of product records. IsManufacturer gates the golden
// record trust hierarchy: a manufacturer's attributes overwrite canonical
// values outright.
type Supplier struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string    `gorm:"column:code;not null;uniqueIndex:ux_suppliers_code"`
	Name           string    `gorm:"column:name;not null"`
	IsManufacturer bool      `gorm:"column:is_manufacturer;not null;default:false"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Brand is the manufacturer-level reference resolved from a record's
// manufacturer string.
type Brand struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	NormalizedName string    `gorm:"column:normalized_name;not null;uniqueIndex:ux_brands_normalized_name"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Category is a node of the category tree, carrying the slash-separated path
// the family detector works on.
type Category struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string               `gorm:"column:name;not null"`
	Path      string               `gorm:"column:path;not null;uniqueIndex:ux_categories_path"`
	Family    *enums.ProductFamily `gorm:"column:family;type:product_family"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
