// Package match resolves a requested class name against the names scraped
// from the course list. Strategies are tried in order; the first hit wins.
package match

import "strings"

// strategy attempts to resolve query against candidates. It returns the
// selected candidate (with the candidate's original casing) and whether it
// matched.
type strategy func(query string, candidates []string) (string, bool)

// strategies in priority order. Earlier entries are stricter; reordering
// changes matching semantics. The containment strategies require a unique
// qualifying candidate: when several candidates would satisfy one, that
// strategy yields nothing instead of guessing, and resolution falls through.
var strategies = []strategy{
	exactMatch,
	exactFoldMatch,
	uniqueContainment(func(query, candidate string) bool {
		return strings.Contains(candidate, query)
	}),
	uniqueContainment(func(query, candidate string) bool {
		return strings.Contains(query, candidate)
	}),
	uniqueContainment(containsAllTokens),
}

// Match returns the candidate selected for query, or ("", false) when no
// strategy resolves.
func Match(query string, candidates []string) (string, bool) {
	if query == "" || len(candidates) == 0 {
		return "", false
	}
	for _, s := range strategies {
		if name, ok := s(query, candidates); ok {
			return name, true
		}
	}
	return "", false
}

func exactMatch(query string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if c == query {
			return c, true
		}
	}
	return "", false
}

func exactFoldMatch(query string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if strings.EqualFold(c, query) {
			return c, true
		}
	}
	return "", false
}

// uniqueContainment builds a strategy from a case-insensitive predicate.
// Exactly one qualifying candidate is a match; zero or several is not.
func uniqueContainment(pred func(query, candidate string) bool) strategy {
	return func(query string, candidates []string) (string, bool) {
		q := strings.ToLower(query)
		var found string
		count := 0
		for _, c := range candidates {
			if pred(q, strings.ToLower(c)) {
				found = c
				if count++; count > 1 {
					return "", false
				}
			}
		}
		return found, count == 1
	}
}

// containsAllTokens reports whether candidate contains every
// whitespace-delimited token of query.
func containsAllTokens(query, candidate string) bool {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		if !strings.Contains(candidate, tok) {
			return false
		}
	}
	return true
}
