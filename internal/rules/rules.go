// Package rules evaluates ordered keyword tables where the first matching row wins.
package rules

import (
	"strings"

	"github.com/avvvet/deliverybuddy/internal/textnorm"
)

// Rule maps a keyword pattern to a result tag.
type Rule struct {
	Pattern string
	Tag     string
}

// Table is an ordered rule list. Row order is priority order.
type Table []Rule

// Group builds rows sharing one tag, in the given keyword order.
func Group(tag string, patterns ...string) Table {
	t := make(Table, 0, len(patterns))
	for _, p := range patterns {
		t = append(t, Rule{Pattern: p, Tag: tag})
	}
	return t
}

// Concat joins tables preserving order.
func Concat(tables ...Table) Table {
	var out Table
	for _, t := range tables {
		out = append(out, t...)
	}
	return out
}

// Match returns the tag of the first row whose pattern occurs in text. Matching is
// case and accent insensitive.
func (t Table) Match(text string) (string, bool) {
	r, ok := t.MatchRule(text)
	return r.Tag, ok
}

// MatchRule is Match returning the whole winning row.
func (t Table) MatchRule(text string) (Rule, bool) {
	folded := textnorm.Fold(text)
	for _, r := range t {
		if strings.Contains(folded, textnorm.Fold(r.Pattern)) {
			return r, true
		}
	}
	return Rule{}, false
}

// Patterns lists the patterns that map to tag.
func (t Table) Patterns(tag string) []string {
	var out []string
	for _, r := range t {
		if r.Tag == tag {
			out = append(out, r.Pattern)
		}
	}
	return out
}
