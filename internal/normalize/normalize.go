// Package normalize provides utilities for normalizing and sanitizing catalog input.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ISBN strips hyphens, spaces and other separators from an ISBN and upper-cases
// a trailing check character. "978-0-441-01359-3" -> "9780441013593".
// The result is not checked; use ValidISBN for that.
func ISBN(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// ValidISBN reports whether s (already normalized) is a well-formed ISBN-10
// or ISBN-13 with a correct check digit.
func ValidISBN(s string) bool {
	switch len(s) {
	case 10:
		return validISBN10(s)
	case 13:
		return validISBN13(s)
	default:
		return false
	}
}

func validISBN10(s string) bool {
	sum := 0
	for i := range 10 {
		c := s[i]
		var v int
		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(s string) bool {
	sum := 0
	for i := range 13 {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		v := int(c - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}

// Email trims and lower-cases an email address.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Text trims surrounding whitespace, drops null bytes and composes unicode so
// that visually identical titles compare equal.
func Text(raw string) string {
	return norm.NFC.String(strings.TrimSpace(sanitizeString(raw)))
}

// Fold returns a search key for s: accents removed, lower-cased, whitespace collapsed.
// "Émile Zola" -> "emile zola".
func Fold(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeString removes null bytes, which break SQLite text comparisons and JSON.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
