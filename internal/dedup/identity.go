package dedup

import (
	"strings"

	"github.com/brisly/deals-bot/internal/models"
)

// Identity derives the stable deduplication key for a deal, e.g.
// "cyberpunk-2077-steam-instant_gaming". Two records with the same title,
// platform and source are the same offer even if their prices differ.
//
// The format is part of the persisted-state contract: changing the
// normalization here invalidates every stored publication record.
func Identity(deal models.Deal) string {
	title := strings.ReplaceAll(strings.ToLower(deal.Title), " ", "-")
	title = strings.ReplaceAll(title, ":", "")
	platform := strings.ToLower(deal.Platform)
	source := strings.ToLower(deal.Source)
	return title + "-" + platform + "-" + source
}
