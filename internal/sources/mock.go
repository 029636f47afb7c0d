package sources

import (
	"context"
	"time"

	"github.com/brisly/deals-bot/internal/models"
)

// Mock is a deterministic feed of realistic deals, used in dry-run mode and
// tests so the pipeline can be exercised without hitting any catalog.
type Mock struct {
	name  string
	deals []models.Deal
	err   error
}

func NewMock(name string) *Mock {
	return &Mock{name: name, deals: mockDeals(name)}
}

// NewFailingMock returns a feed whose Fetch always fails, for testing the
// pipeline's per-source error tolerance.
func NewFailingMock(name string, err error) *Mock {
	return &Mock{name: name, err: err}
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Fetch(_ context.Context, max int) ([]models.Deal, error) {
	if m.err != nil {
		return nil, m.err
	}
	if max < len(m.deals) {
		return m.deals[:max], nil
	}
	return m.deals, nil
}

func mockDeals(source string) []models.Deal {
	now := time.Now()
	return []models.Deal{
		{
			Source: source, Title: "Red Dead Redemption 2", Platform: "Steam",
			OriginalPrice: 59.99, DiscountedPrice: 19.99, DiscountPercent: 67,
			MetacriticScore: 97, ReleaseYear: 2019, Genre: "Action",
			AAA: true, HistoricalLow: true,
			URL: "https://example.com/rdr2", ScrapedAt: now,
		},
		{
			Source: source, Title: "Baldur's Gate 3", Platform: "Steam",
			OriginalPrice: 59.99, DiscountedPrice: 41.99, DiscountPercent: 30,
			MetacriticScore: 96, ReleaseYear: 2023, Genre: "RPG", AAA: true,
			URL: "https://example.com/bg3", ScrapedAt: now,
		},
		{
			Source: source, Title: "Hades", Platform: "Steam",
			OriginalPrice: 24.99, DiscountedPrice: 12.49, DiscountPercent: 50,
			MetacriticScore: 93, ReleaseYear: 2020, Genre: "Roguelike",
			URL: "https://example.com/hades", ScrapedAt: now,
		},
		{
			Source: source, Title: "Black Myth: Wukong", Platform: "Steam",
			OriginalPrice: 59.99, DiscountedPrice: 47.99, DiscountPercent: 20,
			MetacriticScore: 82, ReleaseYear: 2024, Genre: "Action", AAA: true,
			URL: "https://example.com/wukong", ScrapedAt: now,
		},
		{
			Source: source, Title: "Vampire Survivors", Platform: "Steam",
			OriginalPrice: 4.99, DiscountedPrice: 2.49, DiscountPercent: 50,
			MetacriticScore: 87, ReleaseYear: 2022, Genre: "Roguelike",
			HistoricalLow: true,
			URL:           "https://example.com/vampire", ScrapedAt: now,
		},
	}
}
