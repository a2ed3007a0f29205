package usecase

import (
	"regexp"

	"github.com/cavtal/backend/internal/domain"
)

// codePrefixRegex captures the maximal leading digit run before the first
// hyphen of an NNC code, e.g. "7" from "7-A01".
var codePrefixRegex = regexp.MustCompile(`^(\d+)-`)

// subsidyByPrefix maps a code's leading numeral to its subsidy tier.
// The taxonomy is closed: 2, 3 and 4 all collapse to Low, and any digit
// outside the table (0, 6, 9, multi-digit runs) yields no tier rather than a
// guess. Additions must be explicit.
var subsidyByPrefix = map[string]domain.SubsidyTier{
	"7": domain.TierHigh,
	"1": domain.TierMedium,
	"2": domain.TierLow,
	"3": domain.TierLow,
	"4": domain.TierLow,
	"5": domain.TierCountryFood,
	"8": domain.TierSeasonalSurface,
}

// ClassifySubsidy derives the subsidy tier from a product code's leading
// numeral. Total over all string inputs: malformed codes and unknown numerals
// return ok=false, never an error.
func ClassifySubsidy(code string) (domain.SubsidyTier, bool) {
	m := codePrefixRegex.FindStringSubmatch(code)
	if m == nil {
		return "", false
	}
	tier, ok := subsidyByPrefix[m[1]]
	return tier, ok
}
