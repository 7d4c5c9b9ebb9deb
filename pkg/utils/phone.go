package utils

import (
	"strings"
	"unicode"
)

// NormalizePhone moves a free-form phone number toward E.164.
// Ten-digit numbers are assumed to be US/Canada and get a leading 1.
// Anything without digits normalizes to the empty string.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}

	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			digits.WriteRune(r)
		}
	}

	normalized := digits.String()
	if normalized == "" {
		return ""
	}

	if len(normalized) == 10 {
		normalized = "1" + normalized
	}

	return "+" + normalized
}
