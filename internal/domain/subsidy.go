package domain

// SubsidyTier is one of the fixed NNC subsidy categories. The set is closed:
// new tiers require a change to the classifier table, they are never inferred.
type SubsidyTier string

const (
	TierHigh            SubsidyTier = "High"
	TierMedium          SubsidyTier = "Medium"
	TierLow             SubsidyTier = "Low"
	TierCountryFood     SubsidyTier = "Country Food"
	TierSeasonalSurface SubsidyTier = "Seasonal Surface"
)

// ParseSubsidyTier maps a wire string back to a known tier.
// Returns false for anything outside the closed set.
func ParseSubsidyTier(s string) (SubsidyTier, bool) {
	switch SubsidyTier(s) {
	case TierHigh, TierMedium, TierLow, TierCountryFood, TierSeasonalSurface:
		return SubsidyTier(s), true
	}
	return "", false
}
