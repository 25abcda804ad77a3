package goldenrecord

import (
	"github.com/skuforge/catalog-engine/pkg/db/types"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

// familySchemas pins the value kind of well-known attribute keys per product
// family. Keys outside the schema are accepted as-is; suppliers send far more
// attributes than we can enumerate, and the flexible map is the point.
var familySchemas = map[enums.ProductFamily]map[string]types.AttributeKind{
	enums.FamilyMattress: {
		"width":           types.KindNumber,
		"length":          types.KindNumber,
		"height":          types.KindNumber,
		"firmness":        types.KindString,
		"core_material":   types.KindString,
		"cover_material":  types.KindString,
		"removable_cover": types.KindBool,
		"max_load_kg":     types.KindNumber,
		"certifications":  types.KindStringList,
	},
	enums.FamilyPillow: {
		"width":    types.KindNumber,
		"length":   types.KindNumber,
		"height":   types.KindNumber,
		"filling":  types.KindString,
		"washable": types.KindBool,
	},
	enums.FamilyBed: {
		"width":          types.KindNumber,
		"length":         types.KindNumber,
		"frame_material": types.KindString,
		"color":          types.KindString,
		"headboard":      types.KindBool,
	},
	enums.FamilySlattedFrame: {
		"width":      types.KindNumber,
		"length":     types.KindNumber,
		"slat_count": types.KindNumber,
		"adjustable": types.KindBool,
	},
	enums.FamilyTopper: {
		"width":           types.KindNumber,
		"length":          types.KindNumber,
		"height":          types.KindNumber,
		"core_material":   types.KindString,
		"removable_cover": types.KindBool,
	},
	enums.FamilyDuvet: {
		"width":    types.KindNumber,
		"length":   types.KindNumber,
		"filling":  types.KindString,
		"warmth":   types.KindString,
		"washable": types.KindBool,
	},
}

// conformsToSchema reports whether a value may enter the canonical map for
// the given family. Unknown keys pass; known keys must carry the pinned kind.
func conformsToSchema(family enums.ProductFamily, key string, value types.AttributeValue) bool {
	schema, ok := familySchemas[family]
	if !ok {
		return true
	}
	kind, ok := schema[key]
	if !ok {
		return true
	}
	return value.Kind == kind
}
