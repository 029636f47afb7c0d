package models

import (
	"errors"
	"time"
)

// ErrStoreUnavailable is returned when the backing store cannot be reached.
// A run that hits it aborts; the scheduling loop retries at the next trigger.
var ErrStoreUnavailable = errors.New("store unavailable")

// Deal represents one discounted offer as reported by a source catalog.
type Deal struct {
	Source          string  `json:"source" validate:"required"`
	Title           string  `json:"title" validate:"required"`
	Platform        string  `json:"platform" validate:"required"`
	OriginalPrice   float64 `json:"original_price" validate:"gte=0"`
	DiscountedPrice float64 `json:"discounted_price" validate:"gte=0"`
	DiscountPercent int     `json:"discount_percent" validate:"gte=0,lte=100"`

	// MetacriticScore is 0 when unknown; the scorer substitutes a neutral default.
	MetacriticScore int    `json:"metacritic_score" validate:"gte=0,lte=100"`
	ReleaseYear     int    `json:"release_year,omitempty"`
	Genre           string `json:"genre,omitempty"`

	EarlyAccess   bool `json:"early_access,omitempty"`
	HistoricalLow bool `json:"is_historical_low,omitempty"`
	AAA           bool `json:"is_aaa,omitempty"`

	URL       string    `json:"url" validate:"omitempty,url"`
	ScrapedAt time.Time `json:"scraped_at,omitempty"`
}

// Savings returns the absolute price reduction.
func (d Deal) Savings() float64 {
	if d.OriginalPrice <= d.DiscountedPrice {
		return 0
	}
	return d.OriginalPrice - d.DiscountedPrice
}

// ScoreResult carries the computed score with its per-component breakdown
// so scoring decisions stay auditable in logs and tests.
type ScoreResult struct {
	Score          float64
	Components     map[string]float64
	Bonus          float64
	Tier           string
	Emoji          string
	Recommendation string
}

// ScoredDeal pairs a deal with its score for ranking and publishing.
type ScoredDeal struct {
	Deal  Deal
	Score ScoreResult
}

// PublicationRecord is persisted once per successful publish, keyed by the
// deal identity. It expires after 30 days, after which the identity becomes
// eligible for announcement again.
type PublicationRecord struct {
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	Source    string    `json:"source"`
	Price     float64   `json:"price"`
	Discount  int       `json:"discount"`
	PostedAt  time.Time `json:"posted_at"`
	MessageID string    `json:"message_id,omitempty"`
	Score     float64   `json:"score"`
}

// Admission is the outcome of the dedup gate for a single deal.
type Admission int

const (
	Admitted Admission = iota
	AlreadyPublished
	DailyCapReached
)

func (a Admission) String() string {
	switch a {
	case Admitted:
		return "admitted"
	case AlreadyPublished:
		return "already_published"
	case DailyCapReached:
		return "daily_cap_reached"
	}
	return "unknown"
}
