package exploder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSizeKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  SizeKey
		ok    bool
	}{
		{"plain x", "80x200", SizeKey{80, 200}, true},
		{"multiplication sign", "90×200", SizeKey{90, 200}, true},
		{"asterisk", "140*200", SizeKey{140, 200}, true},
		{"spaces around separator", "100 x 220", SizeKey{100, 220}, true},
		{"embedded in free text", "Comfort Matratze 160x200 cm H3", SizeKey{160, 200}, true},
		{"width below bound", "20x200", SizeKey{}, false},
		{"length above bound", "90x500", SizeKey{}, false},
		{"no size at all", "Comfort Deluxe", SizeKey{}, false},
		{"first valid pair wins", "25x90 and 80x200", SizeKey{80, 200}, true},
		{"empty", "", SizeKey{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseSizeKey(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSizeKeyLabel(t *testing.T) {
	assert.Equal(t, "80×200", SizeKey{80, 200}.Label())
}

func TestEntrySizePrefersSizeOption(t *testing.T) {
	size, ok := entrySize(map[string]string{"Size": "80x200", "Color": "white"}, "Comfort 90x200")
	assert.True(t, ok)
	assert.Equal(t, SizeKey{80, 200}, size)

	size, ok = entrySize(map[string]string{"Größe": "140x200"}, "")
	assert.True(t, ok)
	assert.Equal(t, SizeKey{140, 200}, size)

	// Any option value is scanned before falling back to the name.
	size, ok = entrySize(map[string]string{"Variante": "90x200 H3"}, "Comfort")
	assert.True(t, ok)
	assert.Equal(t, SizeKey{90, 200}, size)

	size, ok = entrySize(map[string]string{"Color": "white"}, "Comfort 100x200")
	assert.True(t, ok)
	assert.Equal(t, SizeKey{100, 200}, size)

	_, ok = entrySize(map[string]string{"Color": "white"}, "Comfort")
	assert.False(t, ok)
}
