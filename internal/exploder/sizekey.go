package exploder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dimensions outside these bounds are treated as false positives, e.g. a
// "365 nights trial" fragment in a product name.
const (
	minDimensionCM = 30
	maxDimensionCM = 400
)

var sizePattern = regexp.MustCompile(`(\d{2,3})\s*[x\x{00d7}*]\s*(\d{2,3})`)

// SizeKey identifies one width×length combination.
type SizeKey struct {
	Width  int
	Length int
}

// Label renders the canonical human-readable variant label.
func (k SizeKey) Label() string {
	return fmt.Sprintf("%d×%d", k.Width, k.Length)
}

// ParseSizeKey extracts a width×length pair from a size string or free text,
// tolerating the separators "x", "×", and "*". Returns false when no pair
// within the sanity bounds is present.
func ParseSizeKey(s string) (SizeKey, bool) {
	for _, match := range sizePattern.FindAllStringSubmatch(s, -1) {
		width, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		length, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		if width < minDimensionCM || width > maxDimensionCM {
			continue
		}
		if length < minDimensionCM || length > maxDimensionCM {
			continue
		}
		return SizeKey{Width: width, Length: length}, true
	}
	return SizeKey{}, false
}

// entrySize pulls the size out of a bundle entry: a size-ish option first,
// then any option value, then the entry name as free text.
func entrySize(options map[string]string, name string) (SizeKey, bool) {
	for key, value := range options {
		if isSizeOption(key) {
			if size, ok := ParseSizeKey(value); ok {
				return size, true
			}
		}
	}
	for _, value := range options {
		if size, ok := ParseSizeKey(value); ok {
			return size, true
		}
	}
	return ParseSizeKey(name)
}

func isSizeOption(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "size", "größe", "groesse", "abmessung", "maße", "masse":
		return true
	}
	return false
}
