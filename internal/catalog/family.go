package catalog

import (
	"strings"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

// familyKeywords maps category-path fragments to product families. Checked in
// order so the more specific fragments win over generic ones.
var familyKeywords = []struct {
	keyword string
	family  enums.ProductFamily
}{
	{"slatted", enums.FamilySlattedFrame},
	{"lattenrost", enums.FamilySlattedFrame},
	{"topper", enums.FamilyTopper},
	{"mattress", enums.FamilyMattress},
	{"matratze", enums.FamilyMattress},
	{"pillow", enums.FamilyPillow},
	{"kissen", enums.FamilyPillow},
	{"duvet", enums.FamilyDuvet},
	{"bettdecke", enums.FamilyDuvet},
	{"bed", enums.FamilyBed},
	{"bett", enums.FamilyBed},
}

// DetectFamily derives the product family from a category path and, as a
// fallback, the product name.
func DetectFamily(categoryPath, name string) enums.ProductFamily {
	for _, source := range []string{categoryPath, name} {
		lowered := strings.ToLower(source)
		if lowered == "" {
			continue
		}
		for _, entry := range familyKeywords {
			if strings.Contains(lowered, entry.keyword) {
				return entry.family
			}
		}
	}
	return enums.FamilyUnknown
}
