package scoring

import (
	"math"
	"time"

	"github.com/brisly/deals-bot/internal/config"
	"github.com/brisly/deals-bot/internal/models"
)

// MaxScore is the upper bound of the final score. There is deliberately no
// lower bound: a weak deal with the new-release malus can score below zero
// (the classifier clamps it into the lowest tier).
const MaxScore = 45

const (
	// neutralMetacritic is used (on the 0-10 component scale) when a deal
	// has no critic score.
	neutralMetacritic = 5
	// neutralPopularity is the placeholder until a real wishlist/sales
	// signal is wired in via PopularityFunc.
	neutralPopularity = 2.5

	historicalLowBonus = 5
	aaaBonus           = 2
	newReleaseMalus    = -1
)

// PopularityFunc supplies the popularity component (0-10 scale) for a deal.
// It returns false when no signal is available.
type PopularityFunc func(models.Deal) (float64, bool)

// Scorer computes a desirability score for each deal. It is pure: no I/O,
// deterministic for a given construction.
type Scorer struct {
	weights          config.Weights
	newReleaseCutoff int
	popularity       PopularityFunc
	tiers            []Tier
}

// NewScorer builds a scorer. The new-release malus applies to titles released
// in or after the year of now; pass the scheduler's clock time so tests can
// pin it.
func NewScorer(weights config.Weights, now time.Time) *Scorer {
	return &Scorer{
		weights:          weights,
		newReleaseCutoff: now.Year(),
		tiers:            DefaultTiers,
	}
}

// WithPopularity installs an external popularity signal.
func (s *Scorer) WithPopularity(fn PopularityFunc) *Scorer {
	s.popularity = fn
	return s
}

// WithTiers replaces the classification ladder, for configured thresholds.
func (s *Scorer) WithTiers(tiers []Tier) *Scorer {
	s.tiers = tiers
	return s
}

// Score computes the score and its component breakdown for one deal.
func (s *Scorer) Score(deal models.Deal) models.ScoreResult {
	components := map[string]float64{
		"metacritic":  s.metacriticComponent(deal),
		"discount":    discountComponent(deal),
		"price_value": priceComponent(deal),
		"popularity":  s.popularityComponent(deal),
	}

	var bonus float64
	if deal.HistoricalLow {
		bonus += historicalLowBonus
	}
	if deal.AAA {
		bonus += aaaBonus
	}
	if deal.ReleaseYear >= s.newReleaseCutoff {
		bonus += newReleaseMalus
	}

	weighted := components["metacritic"]*s.weights.Metacritic +
		components["discount"]*s.weights.Discount +
		components["price_value"]*s.weights.PriceValue +
		components["popularity"]*s.weights.Popularity

	final := math.Min(MaxScore, weighted*3+bonus)

	tier := Classify(final, s.tiers)
	return models.ScoreResult{
		Score:          round1(final),
		Components:     components,
		Bonus:          bonus,
		Tier:           tier.Name,
		Emoji:          tier.Emoji,
		Recommendation: tier.Recommendation,
	}
}

func (s *Scorer) metacriticComponent(deal models.Deal) float64 {
	if deal.MetacriticScore > 0 {
		return float64(deal.MetacriticScore) / 100 * 10
	}
	return neutralMetacritic
}

func discountComponent(deal models.Deal) float64 {
	return math.Min(float64(deal.DiscountPercent)/10, 10)
}

// priceComponent is a decreasing step function of the discounted price:
// cheap games are worth more points regardless of discount depth.
func priceComponent(deal models.Deal) float64 {
	price := deal.DiscountedPrice
	switch {
	case price <= 5:
		return 10
	case price <= 10:
		return 9
	case price <= 15:
		return 8
	case price <= 20:
		return 7
	case price <= 30:
		return 6
	case price <= 40:
		return 5
	case price <= 50:
		return 4
	default:
		return math.Max(0, 10-price/10)
	}
}

func (s *Scorer) popularityComponent(deal models.Deal) float64 {
	if s.popularity != nil {
		if v, ok := s.popularity(deal); ok {
			return v
		}
	}
	return neutralPopularity
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
