package store

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MatchFunc reports whether a recipe name satisfies a search query.
// An empty query must match every name.
type MatchFunc func(name, query string) bool

// SubstringMatch is a case-insensitive substring match.
func SubstringMatch(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// FuzzyMatch matches when the query's characters appear in order in the name,
// ignoring case and diacritics ("crm brl" matches "Crème brûlée").
func FuzzyMatch(name, query string) bool {
	if query == "" {
		return true
	}
	return fuzzy.MatchNormalizedFold(strings.ReplaceAll(query, " ", ""), name)
}

// MatcherForMode returns the matcher for a configured search mode.
// Unknown modes fall back to substring matching.
func MatcherForMode(mode string) MatchFunc {
	switch strings.ToLower(mode) {
	case "fuzzy":
		return FuzzyMatch
	default:
		return SubstringMatch
	}
}
