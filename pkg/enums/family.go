package enums

import "fmt"

// ProductFamily maps to the product_family enum in Postgres.
type ProductFamily string

const (
	FamilyMattress     ProductFamily = "mattress"
	FamilyPillow       ProductFamily = "pillow"
	FamilyBed          ProductFamily = "bed"
	FamilySlattedFrame ProductFamily = "slatted_frame"
	FamilyTopper       ProductFamily = "topper"
	FamilyDuvet        ProductFamily = "duvet"
	FamilyAccessory    ProductFamily = "accessory"
	FamilyUnknown      ProductFamily = "unknown"
)

var validFamilies = []ProductFamily{
	FamilyMattress,
	FamilyPillow,
	FamilyBed,
	FamilySlattedFrame,
	FamilyTopper,
	FamilyDuvet,
	FamilyAccessory,
	FamilyUnknown,
}

// IsValid reports whether the value matches the canonical product_family enum.
func (f ProductFamily) IsValid() bool {
	for _, candidate := range validFamilies {
		if candidate == f {
			return true
		}
	}
	return false
}

func (f ProductFamily) String() string { return string(f) }

// ParseProductFamily converts raw input into ProductFamily.
func ParseProductFamily(value string) (ProductFamily, error) {
	for _, candidate := range validFamilies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product family %q", value)
}
