package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brisly/deals-bot/internal/models"
)

const (
	publicationTTL = 30 * 24 * time.Hour
	dailySetTTL    = 7 * 24 * time.Hour
)

// Store is the key-value surface the gate needs. Implemented by storage.Redis.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetNXWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	AddToSet(ctx context.Context, key, member string) error
	SetCard(ctx context.Context, key string) (int64, error)
	ExpireSet(ctx context.Context, key string, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
}

// Gate decides whether a deal may be announced: not seen within the
// publication TTL, and the daily cap not yet exhausted. Admission checks have
// no side effects; only RecordPublished writes.
type Gate struct {
	store    Store
	dailyCap int
	now      func() time.Time
	loc      *time.Location
}

func NewGate(store Store, dailyCap int, loc *time.Location) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{
		store:    store,
		dailyCap: dailyCap,
		now:      time.Now,
		loc:      loc,
	}
}

// WithClock overrides the gate's clock, for tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Admit reports whether the deal may be published right now.
func (g *Gate) Admit(ctx context.Context, deal models.Deal) (models.Admission, error) {
	exists, err := g.store.Exists(ctx, postedKey(Identity(deal)))
	if err != nil {
		return 0, fmt.Errorf("checking publication record: %w", err)
	}
	if exists {
		return models.AlreadyPublished, nil
	}

	count, err := g.PublishedToday(ctx)
	if err != nil {
		return 0, err
	}
	if count >= int64(g.dailyCap) {
		return models.DailyCapReached, nil
	}
	return models.Admitted, nil
}

// PublishedToday returns how many deals have been announced so far today.
// The count lives in the store, not in memory, so a restart cannot bypass
// the daily cap.
func (g *Gate) PublishedToday(ctx context.Context) (int64, error) {
	count, err := g.store.SetCard(ctx, g.dailyKey())
	if err != nil {
		return 0, fmt.Errorf("counting today's publications: %w", err)
	}
	return count, nil
}

// RecordPublished persists the publication record for a successfully
// announced deal. It must be called only after the announcer confirmed the
// send: a failed publish leaves no record, so the deal is retried at the
// next scheduled run.
func (g *Gate) RecordPublished(ctx context.Context, deal models.Deal, score models.ScoreResult, messageID string) error {
	id := Identity(deal)
	record := models.PublicationRecord{
		Title:     deal.Title,
		Platform:  deal.Platform,
		Source:    deal.Source,
		Price:     deal.DiscountedPrice,
		Discount:  deal.DiscountPercent,
		PostedAt:  g.now(),
		MessageID: messageID,
		Score:     score.Score,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling publication record: %w", err)
	}

	// SetNX claims the identity atomically, which keeps a hypothetical
	// second bot instance from double-announcing the same offer.
	created, err := g.store.SetNXWithTTL(ctx, postedKey(id), string(payload), publicationTTL)
	if err != nil {
		return fmt.Errorf("saving publication record: %w", err)
	}
	if !created {
		slog.Warn("Publication record already existed", "id", id)
	}

	dayKey := g.dailyKey()
	if err := g.store.AddToSet(ctx, dayKey, id); err != nil {
		return fmt.Errorf("updating daily publication set: %w", err)
	}
	if err := g.store.ExpireSet(ctx, dayKey, dailySetTTL); err != nil {
		return fmt.Errorf("expiring daily publication set: %w", err)
	}

	if _, err := g.store.IncrBy(ctx, statKey("total_posts"), 1); err != nil {
		slog.Warn("Failed to increment total post counter", "error", err)
	}
	if _, err := g.store.IncrBy(ctx, statKey("posts_"+deal.Source), 1); err != nil {
		slog.Warn("Failed to increment source post counter", "source", deal.Source, "error", err)
	}
	return nil
}

func (g *Gate) dailyKey() string {
	return "posted:daily:" + g.now().In(g.loc).Format("2006-01-02")
}

func postedKey(id string) string {
	return "posted:" + id
}

func statKey(name string) string {
	return "stats:" + name
}
