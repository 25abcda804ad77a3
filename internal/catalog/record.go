package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/skuforge/catalog-engine/pkg/db/types"
)

// ProductRecord is one normalized supplier record as produced by the
// ingestion pipeline. The engine does not care how it was parsed.
type ProductRecord struct {
	SupplierSKU  string              `validate:"required"`
	Name         string              `validate:"required"`
	Manufacturer string              `validate:"required"`
	CategoryPath string              ``
	GTIN         string              ``
	MPN          string              ``
	Price        decimal.Decimal     `validate:"required"`
	InStock      bool                ``
	Description  string              ``
	Attributes   types.AttributeMap  ``
	ImageURLs    []string            `validate:"dive,url"`
	Bundle       types.VariantBundle ``
}

var recordValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the record carries the minimum fields the engine needs.
func (r ProductRecord) Validate() error {
	if err := recordValidator.Struct(r); err != nil {
		return err
	}
	return nil
}

// Checksum is a stable digest over the record's content, used to detect
// no-op re-imports of the same SKU.
func (r ProductRecord) Checksum() string {
	h := sha256.New()
	h.Write([]byte(r.SupplierSKU))
	h.Write([]byte{0})
	h.Write([]byte(r.Name))
	h.Write([]byte{0})
	h.Write([]byte(r.Manufacturer))
	h.Write([]byte{0})
	h.Write([]byte(r.CategoryPath))
	h.Write([]byte{0})
	h.Write([]byte(r.GTIN))
	h.Write([]byte{0})
	h.Write([]byte(r.MPN))
	h.Write([]byte{0})
	h.Write([]byte(r.Price.StringFixed(2)))
	h.Write([]byte{0})
	if r.InStock {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write([]byte(r.Description))
	h.Write([]byte{0})

	keys := r.Attributes.Keys()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		if data, err := json.Marshal(r.Attributes[k]); err == nil {
			h.Write(data)
		}
		h.Write([]byte{0})
	}

	urls := append([]string(nil), r.ImageURLs...)
	sort.Strings(urls)
	for _, u := range urls {
		h.Write([]byte(u))
		h.Write([]byte{0})
	}

	if data, err := json.Marshal(r.Bundle); err == nil {
		h.Write(data)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// CleanMPN strips separators and whitespace so part numbers from different
// suppliers compare equal.
func CleanMPN(mpn string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '.', '/':
			return -1
		}
		return r
	}, strings.TrimSpace(mpn))
	return strings.ToUpper(cleaned)
}
