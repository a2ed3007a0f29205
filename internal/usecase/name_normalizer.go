package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// NormalizeName canonicalizes free text for catalog comparison: lowercase,
// every character outside [a-z0-9 ] replaced with a space, whitespace runs
// collapsed, ends trimmed. Pure function; idempotent.
//
// The same function is applied to catalog entries at load time and to queries
// at lookup time. Any divergence between the two sides is a correctness bug,
// so there is exactly one implementation.
func NormalizeName(text string) string {
	lowered := strings.ToLower(text)
	lowered = nonAlphanumericRegex.ReplaceAllString(lowered, " ")
	lowered = multipleSpacesRegex.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(lowered)
}
