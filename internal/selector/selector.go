package selector

import (
	"sort"

	"github.com/brisly/deals-bot/internal/dedup"
	"github.com/brisly/deals-bot/internal/models"
)

// Options are the quality thresholds a deal must clear before ranking.
type Options struct {
	MinDiscount   int
	MinScore      float64
	MinMetacritic int
	MaxPrice      float64
	SessionCap    int
}

// Select filters the admitted deals against the quality thresholds, ranks
// them and truncates to the session cap.
//
// Ordering is deterministic: score descending, then discount percent
// descending, then identity key ascending.
func Select(deals []models.ScoredDeal, opts Options) []models.ScoredDeal {
	selected := make([]models.ScoredDeal, 0, len(deals))
	for _, d := range deals {
		if passes(d, opts) {
			selected = append(selected, d)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.Score.Score != b.Score.Score {
			return a.Score.Score > b.Score.Score
		}
		if a.Deal.DiscountPercent != b.Deal.DiscountPercent {
			return a.Deal.DiscountPercent > b.Deal.DiscountPercent
		}
		return dedup.Identity(a.Deal) < dedup.Identity(b.Deal)
	})

	if opts.SessionCap > 0 && len(selected) > opts.SessionCap {
		selected = selected[:opts.SessionCap]
	}
	return selected
}

func passes(d models.ScoredDeal, opts Options) bool {
	if d.Deal.DiscountPercent < opts.MinDiscount {
		return false
	}
	if d.Score.Score < opts.MinScore {
		return false
	}
	// A zero critic score means unknown, which is allowed through.
	if d.Deal.MetacriticScore > 0 && d.Deal.MetacriticScore < opts.MinMetacritic {
		return false
	}
	if opts.MaxPrice > 0 && d.Deal.DiscountedPrice > opts.MaxPrice {
		return false
	}
	return true
}
