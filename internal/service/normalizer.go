package service

import (
	"strings"
	"unicode"
)

// Alphanumeric sender IDs are capped at 11 characters by the GSM spec.
const maxSenderIDLength = 11

// NormalizeIdentifier canonicalizes a raw sender or recipient identifier.
//
// Anything containing a letter is treated as an alphanumeric sender ID: all
// non-alphanumeric characters are stripped, the rest is uppercased, and the
// result is truncated to 11 characters, with no further validation.
// Everything else is treated as a phone number: all characters except digits
// are dropped and a leading "+" is ensured. Pure function; never fails, may
// return "".
func NormalizeIdentifier(raw string) string {
	hasLetter := strings.IndexFunc(raw, unicode.IsLetter) >= 0

	if hasLetter {
		var b strings.Builder
		for _, r := range raw {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(unicode.ToUpper(r))
			}
		}
		id := []rune(b.String())
		if len(id) > maxSenderIDLength {
			id = id[:maxSenderIDLength]
		}
		return string(id)
	}

	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return "+" + digits.String()
}
