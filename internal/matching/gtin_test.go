package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGTIN(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"valid ean13", "4006381333931", "4006381333931", true},
		{"valid ean13 with spaces", " 4006381 333931 ", "4006381333931", true},
		{"valid ean13 with dashes", "4-006381-333931", "4006381333931", true},
		{"valid ean8 padded to 13", "96385074", "0000096385074", true},
		{"valid upc padded to 13", "036000291452", "0036000291452", true},
		{"valid gtin14 stays 14", "10614141000415", "10614141000415", true},
		{"bad check digit", "4006381333932", "", false},
		{"too short", "1234567", "", false},
		{"wrong length", "12345678901", "", false},
		{"non numeric", "40063813339AB", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeGTIN(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
