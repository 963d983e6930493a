// Package normalize canonicalizes the identity fields typed into the intake
// forms and validates Ecuadorian identity documents.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonDigits = regexp.MustCompile(`\D+`)

// ID strips every non-digit character.
func ID(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// Phone strips non-digits and keeps the last 10 digits when there are at
// least 10, which drops country prefixes such as 593.
func Phone(s string) string {
	d := ID(s)
	if len(d) >= 10 {
		return d[len(d)-10:]
	}
	return d
}

// Email trims and lowercases an address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Text trims, uppercases, strips accents (Á→A, Ü→U, Ñ→N, ...) and collapses
// internal whitespace. It is the comparison key for headers, locations and
// free-text search.
func Text(s string) string {
	s = stripAccents(strings.ToUpper(s))
	return strings.Join(strings.Fields(s), " ")
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
