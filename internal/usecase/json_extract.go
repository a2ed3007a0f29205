package usecase

import "regexp"

// jsonBlockRegex matches the first brace-delimited span in free-form model
// output, greedy across newlines (first "{" through last "}"). The contract
// is deliberately narrow: no tolerant-JSON repair, no multi-object handling.
var jsonBlockRegex = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSONBlock pulls the brace-delimited substring out of raw model text.
// Returns ok=false when no such span exists; validity of the JSON inside is
// the caller's problem (parse failures degrade, they never propagate).
func extractJSONBlock(raw string) (string, bool) {
	block := jsonBlockRegex.FindString(raw)
	if block == "" {
		return "", false
	}
	return block, true
}
