package matching

import "strings"

// NormalizeGTIN validates a global trade item number (EAN-8, UPC-A, EAN-13,
// GTIN-14) and normalizes it to 13 or 14 digits. Returns false for anything
// that is not a well-formed identifier with a correct check digit.
func NormalizeGTIN(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch len(cleaned) {
	case 8, 12, 13, 14:
	default:
		return "", false
	}

	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", false
		}
	}

	if !validCheckDigit(cleaned) {
		return "", false
	}

	if len(cleaned) < 13 {
		cleaned = strings.Repeat("0", 13-len(cleaned)) + cleaned
	}
	return cleaned, true
}

// validCheckDigit verifies the GS1 modulo-10 check digit: weights alternate
// 3 and 1 starting from the digit next to the check digit.
func validCheckDigit(code string) bool {
	sum := 0
	weight := 3
	for i := len(code) - 2; i >= 0; i-- {
		sum += int(code[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	check := (10 - sum%10) % 10
	return check == int(code[len(code)-1]-'0')
}
