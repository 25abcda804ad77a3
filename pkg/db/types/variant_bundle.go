package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// BundleEntry is one raw variant row as received from a supplier, before
// explosion. Options carries the supplier's variant axes verbatim.
type BundleEntry struct {
	Options map[string]string `json:"options"`
	Price   decimal.Decimal   `json:"price"`
	InStock bool              `json:"inStock"`
	SKU     string            `json:"sku,omitempty"`
	Name    string            `json:"name,omitempty"`
}

// VariantBundle is the jsonb column holding the unexploded variant rows of an
// offer.
type VariantBundle []BundleEntry

// Value implements driver.Valuer for the jsonb column.
func (b VariantBundle) Value() (driver.Value, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner for the jsonb column.
func (b *VariantBundle) Scan(src any) error {
	if src == nil {
		*b = nil
		return nil
	}
	var data []byte
	switch typed := src.(type) {
	case []byte:
		data = typed
	case string:
		data = []byte(typed)
	default:
		return fmt.Errorf("cannot scan %T into VariantBundle", src)
	}
	if len(data) == 0 {
		*b = nil
		return nil
	}
	return json.Unmarshal(data, b)
}
