package scoring

// Tier is one qualitative score bucket.
type Tier struct {
	Name           string
	Threshold      float64
	Emoji          string
	Recommendation string
}

// DefaultTiers is ordered highest threshold first; Classify takes the first
// tier whose threshold the score meets. Keep it a slice: tier lookup depends
// on evaluation order, so a map would be wrong here.
var DefaultTiers = []Tier{
	{Name: "SUPER_DEAL", Threshold: 36, Emoji: "💎", Recommendation: "💎 Unmissable! An exceptional deal, grab it now!"},
	{Name: "GREAT_DEAL", Threshold: 26, Emoji: "🔥", Recommendation: "🔥 Great deal! Highly recommended!"},
	{Name: "GOOD_DEAL", Threshold: 16, Emoji: "👍", Recommendation: "👍 Good price, worth considering!"},
	{Name: "OK_DEAL", Threshold: 0, Emoji: "😐", Recommendation: "😐 Decent deal, worth it if you want the game."},
}

// TiersWithThresholds returns the default tier ladder with its cut-offs
// replaced by the configured values. Callers must pass one threshold per
// default tier, highest first; config validation enforces both.
func TiersWithThresholds(thresholds []float64) []Tier {
	tiers := make([]Tier, len(DefaultTiers))
	copy(tiers, DefaultTiers)
	for i := range tiers {
		tiers[i].Threshold = thresholds[i]
	}
	return tiers
}

// Classify maps a score to a tier, scanning tiers from the highest threshold
// down. Scores below every threshold (the malus can push a score negative)
// clamp to the last, lowest tier.
func Classify(score float64, tiers []Tier) Tier {
	for _, t := range tiers {
		if score >= t.Threshold {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// ClassifyDefault classifies against DefaultTiers.
func ClassifyDefault(score float64) Tier {
	return Classify(score, DefaultTiers)
}
