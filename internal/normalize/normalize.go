// Package normalize canonicalizes phone numbers, property types and area names
// so different spellings collapse to one token before storage keying or search.
package normalize

import (
	"strings"
	"unicode"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

// Fold applies the Arabic text folding used by every comparison in this
// package: trim, collapse whitespace, drop tatweel and diacritics, unify alef
// forms, ى→ي, ة→ه and lower-case Latin.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == 'ـ':
			continue
		case r >= 0x064B && r <= 0x0652, r == 0x0670:
			continue
		case r == 'أ' || r == 'إ' || r == 'آ' || r == 'ٱ':
			r = 'ا'
		case r == 'ى':
			r = 'ي'
		case r == 'ة':
			r = 'ه'
		case unicode.IsSpace(r):
			if !space && b.Len() > 0 {
				b.WriteRune(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(b.String())
}

// Phone returns the canonical key for a phone number: digits only, no leading
// 00 or +, Saudi local forms promoted to 966.
func Phone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")

	switch {
	case len(digits) == 10 && strings.HasPrefix(digits, "05"):
		digits = "966" + digits[1:]
	case len(digits) == 9 && strings.HasPrefix(digits, "5"):
		digits = "966" + digits
	}

	if len(digits) < 9 || len(digits) > 15 {
		return "", entity.ErrInvalidPhone
	}
	return digits, nil
}

// Words splits folded text on whitespace.
func Words(s string) []string {
	return strings.Fields(Fold(s))
}

// ContainsEither reports whether a contains b or b contains a after folding.
// Empty inputs never match.
func ContainsEither(a, b string) bool {
	fa, fb := Fold(a), Fold(b)
	if fa == "" || fb == "" {
		return false
	}
	return strings.Contains(fa, fb) || strings.Contains(fb, fa)
}
