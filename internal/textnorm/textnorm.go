// Package textnorm folds and cases Portuguese text for matching and display.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics so "NITERÓI" and "niteroi" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Title title-cases s using Brazilian Portuguese rules.
func Title(s string) string {
	return cases.Title(language.BrazilianPortuguese).String(strings.ToLower(s))
}
