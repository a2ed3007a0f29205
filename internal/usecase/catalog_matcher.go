package usecase

import (
	"log"
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/cavtal/backend/internal/domain"
)

// fuzzyAcceptThreshold is the minimum weighted-ratio score (0-100 scale) for
// a fuzzy catalog match to be accepted. A score of exactly 70 passes; 69 is
// rejected. Chosen empirically as the recall/false-positive tradeoff for the
// inventory catalog.
const fuzzyAcceptThreshold = 70

// MatcherConfig holds configuration for the catalog matcher
type MatcherConfig struct {
	EnableDebugLogging bool
}

// CatalogMatcher matches free-text product names against a read-only catalog
// snapshot. Exact normalized-name match wins first; weighted-ratio fuzzy
// scoring over canonical names is the fallback.
type CatalogMatcher struct {
	entries            []domain.CatalogEntry
	enableDebugLogging bool
}

// NewCatalogMatcher builds a matcher from raw (name, code) pairs, normalizing
// each name once at load time. Pairs with an empty name or code are dropped.
// Catalog order is preserved; ties on exact match break in favor of the first
// entry, so duplicate normalized names for different codes are a data-quality
// issue upstream, not a matcher concern.
func NewCatalogMatcher(items []domain.CatalogItem, config MatcherConfig) *CatalogMatcher {
	entries := make([]domain.CatalogEntry, 0, len(items))
	for _, item := range items {
		if item.ItemName == "" || item.Code == "" {
			continue
		}
		entries = append(entries, domain.CatalogEntry{
			CanonicalName:  item.ItemName,
			NormalizedName: NormalizeName(item.ItemName),
			Code:           item.Code,
		})
	}

	return &CatalogMatcher{
		entries:            entries,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Size returns the number of loaded catalog entries.
func (m *CatalogMatcher) Size() int {
	return len(m.entries)
}

// Codes returns the set of distinct product codes in the catalog. Used to
// reject codes invented by the model fallback.
func (m *CatalogMatcher) Codes() map[string]bool {
	codes := make(map[string]bool, len(m.entries))
	for i := range m.entries {
		codes[m.entries[i].Code] = true
	}
	return codes
}

// PickBestEntry returns the best catalog entry for a query, or nil when no
// entry is confident enough.
//
// Phase 1 compares normalized forms for an exact hit, which avoids fuzzy
// scoring cost and false positives from near-duplicate names. Phase 2 scores
// the raw query against every canonical name with a weighted ratio and keeps
// the maximum, gated by fuzzyAcceptThreshold.
func (m *CatalogMatcher) PickBestEntry(query string) *domain.CatalogEntry {
	normQuery := NormalizeName(query)
	for i := range m.entries {
		if m.entries[i].NormalizedName == normQuery {
			if m.enableDebugLogging {
				log.Printf("[MATCH] Exact normalized match for %q: %q (%s)",
					query, m.entries[i].CanonicalName, m.entries[i].Code)
			}
			return &m.entries[i]
		}
	}

	bestIdx := -1
	bestScore := -1
	for i := range m.entries {
		score := fuzzy.WRatio(query, m.entries[i].CanonicalName)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return nil
	}

	if m.enableDebugLogging {
		log.Printf("[MATCH] Best fuzzy candidate for %q: %q (score %d)",
			query, m.entries[bestIdx].CanonicalName, bestScore)
	}

	if !acceptFuzzyScore(bestScore) {
		return nil
	}
	return &m.entries[bestIdx]
}

// acceptFuzzyScore gates a fuzzy result: a score of exactly the threshold is
// accepted, one below it is rejected.
func acceptFuzzyScore(score int) bool {
	return score >= fuzzyAcceptThreshold
}

// SuggestTopMatches returns up to k entries ranked by descending fuzzy score.
// Unlike PickBestEntry it applies no threshold: callers wanting suggestions
// rather than a single decision see low-scoring candidates too.
func (m *CatalogMatcher) SuggestTopMatches(query string, k int) []domain.MatchSuggestion {
	if k <= 0 || len(m.entries) == 0 {
		return nil
	}

	suggestions := make([]domain.MatchSuggestion, 0, len(m.entries))
	for i := range m.entries {
		suggestions = append(suggestions, domain.MatchSuggestion{
			Name:  m.entries[i].CanonicalName,
			Score: fuzzy.WRatio(query, m.entries[i].CanonicalName),
		})
	}

	sort.SliceStable(suggestions, func(a, b int) bool {
		return suggestions[a].Score > suggestions[b].Score
	})

	if k < len(suggestions) {
		suggestions = suggestions[:k]
	}
	return suggestions
}
