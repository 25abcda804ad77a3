package catalog

import (
	"testing"

	"github.com/skuforge/catalog-engine/pkg/enums"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Comfort", "acme comfort"},
		{"  ACME   Comfort  ", "acme comfort"},
		{"Acmé-Comfort 90x200", "acme comfort 90x200"},
		{"Röwa / Basic", "rowa basic"},
		{"", ""},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanMPN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ab-123.x", "AB123X"},
		{"  AB 123/X ", "AB123X"},
		{"ab_123", "AB123"},
	}
	for _, tc := range cases {
		if got := CleanMPN(tc.in); got != tc.want {
			t.Errorf("CleanMPN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDetectFamily(t *testing.T) {
	cases := []struct {
		path string
		name string
		want enums.ProductFamily
	}{
		{"Home/Mattresses/Cold Foam", "", enums.FamilyMattress},
		{"Schlafen/Matratzen", "", enums.FamilyMattress},
		{"Home/Beds", "", enums.FamilyBed},
		{"Zubehör/Lattenroste", "", enums.FamilySlattedFrame},
		{"", "Acme Comfort Topper 90x200", enums.FamilyTopper},
		{"Misc", "Gift Card", enums.FamilyUnknown},
	}
	for _, tc := range cases {
		if got := DetectFamily(tc.path, tc.name); got != tc.want {
			t.Errorf("DetectFamily(%q, %q) = %s, want %s", tc.path, tc.name, got, tc.want)
		}
	}
}

func TestRecordChecksumStable(t *testing.T) {
	record := ProductRecord{
		SupplierSKU:  "SKU-1",
		Name:         "Acme Comfort",
		Manufacturer: "Acme",
		Price:        mustDecimal(t, "199.90"),
		InStock:      true,
	}
	first := record.Checksum()
	second := record.Checksum()
	if first != second {
		t.Fatal("checksum must be deterministic")
	}

	record.Price = mustDecimal(t, "209.90")
	if record.Checksum() == first {
		t.Fatal("checksum must change when content changes")
	}
}
