package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brisly/deals-bot/internal/config"
	"github.com/brisly/deals-bot/internal/dedup"
	"github.com/brisly/deals-bot/internal/models"
	"github.com/brisly/deals-bot/internal/selector"
	"github.com/brisly/deals-bot/internal/sources"
)

// RunOptions tune a single pipeline run.
type RunOptions struct {
	// SessionCap overrides the configured per-session publication limit
	// when positive.
	SessionCap int
	// SingleBest publishes only the single highest-scoring deal, using the
	// stricter minimum score.
	SingleBest bool
	// Confirm, when set, is asked once with the selected deals before any
	// publish happens. Returning false cancels the run. A nil Confirm
	// auto-confirms.
	Confirm func([]models.ScoredDeal) bool
}

// Runner drives one complete pass: collect, score, dedup-filter, select,
// publish, record.
type Runner struct {
	feeds     []sources.Feed
	scorer    Scorer
	gate      AdmissionGate
	announcer Announcer
	cfg       *config.Config

	// sleep waits for the inter-publish delay; swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(feeds []sources.Feed, scorer Scorer, gate AdmissionGate, announcer Announcer, cfg *config.Config) *Runner {
	return &Runner{
		feeds:     feeds,
		scorer:    scorer,
		gate:      gate,
		announcer: announcer,
		cfg:       cfg,
		sleep:     sleepCtx,
	}
}

// Run executes one pipeline pass. It returns an error only for failures that
// abort the whole run (store unavailable); individual feed or publish
// failures are logged and absorbed.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	published, err := r.gate.PublishedToday(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if published >= int64(r.cfg.DailyCap) {
		slog.Warn("Daily cap already reached, skipping run", "published", published, "cap", r.cfg.DailyCap)
		return nil
	}

	deals := r.collect(ctx)
	if len(deals) == 0 {
		slog.Info("No deals collected, nothing to do")
		return nil
	}

	scored := r.scoreAll(deals)
	admitted, err := r.admitAll(ctx, scored)
	if err != nil {
		return err
	}
	if len(admitted) == 0 {
		slog.Info("No new deals to announce")
		return nil
	}

	selected := selector.Select(admitted, r.selectorOptions(opts))
	if len(selected) == 0 {
		slog.Info("No deals passed the quality filters")
		return nil
	}

	if opts.Confirm != nil && !opts.Confirm(selected) {
		slog.Info("Run cancelled by confirmation callback")
		return nil
	}

	return r.publishAll(ctx, selected)
}

// collect gathers candidates from every feed. A failing feed is skipped for
// this run, never fatal.
func (r *Runner) collect(ctx context.Context) []models.Deal {
	var deals []models.Deal
	for _, feed := range r.feeds {
		fetched, err := feed.Fetch(ctx, r.cfg.MaxPerSource)
		if err != nil {
			slog.Warn("Feed unavailable, skipping for this run", "source", feed.Name(), "error", err)
			continue
		}
		deals = append(deals, fetched...)
	}
	slog.Info("Collected deals", "total", len(deals), "feeds", len(r.feeds))
	return deals
}

func (r *Runner) scoreAll(deals []models.Deal) []models.ScoredDeal {
	scored := make([]models.ScoredDeal, 0, len(deals))
	for _, deal := range deals {
		scored = append(scored, models.ScoredDeal{Deal: deal, Score: r.scorer.Score(deal)})
	}

	// Log the leaders for observability before any filtering.
	top := selector.Select(scored, selector.Options{SessionCap: 3})
	for i, d := range top {
		slog.Info("Top scored deal", "rank", i+1, "title", d.Deal.Title,
			"score", d.Score.Score, "tier", d.Score.Tier)
	}
	return scored
}

func (r *Runner) admitAll(ctx context.Context, scored []models.ScoredDeal) ([]models.ScoredDeal, error) {
	admitted := make([]models.ScoredDeal, 0, len(scored))
	for _, d := range scored {
		admission, err := r.gate.Admit(ctx, d.Deal)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		switch admission {
		case models.Admitted:
			admitted = append(admitted, d)
		case models.AlreadyPublished:
			slog.Debug("Skipping already announced deal", "id", dedup.Identity(d.Deal))
		case models.DailyCapReached:
			slog.Debug("Daily cap reached during admission", "id", dedup.Identity(d.Deal))
		}
	}
	return admitted, nil
}

func (r *Runner) publishAll(ctx context.Context, selected []models.ScoredDeal) error {
	var sent int
	for i, d := range selected {
		// The cap can be crossed mid-batch by this run's own publishes.
		admission, err := r.gate.Admit(ctx, d.Deal)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		if admission == models.DailyCapReached {
			slog.Warn("Daily cap reached mid-batch, stopping", "sent", sent)
			break
		}
		if admission == models.AlreadyPublished {
			slog.Debug("Deal announced since selection, skipping", "id", dedup.Identity(d.Deal))
			continue
		}

		slog.Info("Publishing deal", "n", i+1, "of", len(selected),
			"title", d.Deal.Title, "score", d.Score.Score)
		messageID, err := r.announcer.Publish(ctx, d.Deal, d.Score)
		if err != nil {
			// No publication record: the deal stays eligible for the
			// next scheduled run.
			slog.Error("Publish failed", "title", d.Deal.Title, "error", err)
			continue
		}

		if err := r.gate.RecordPublished(ctx, d.Deal, d.Score, messageID); err != nil {
			slog.Error("Failed to record publication", "id", dedup.Identity(d.Deal), "error", err)
		}
		sent++

		if i < len(selected)-1 {
			if err := r.sleep(ctx, r.cfg.PublishDelay); err != nil {
				return err
			}
		}
	}
	slog.Info("Run finished", "published", sent, "selected", len(selected))
	return nil
}

func (r *Runner) selectorOptions(opts RunOptions) selector.Options {
	sel := selector.Options{
		MinDiscount:   r.cfg.MinDiscount,
		MinScore:      r.cfg.MinScore,
		MinMetacritic: r.cfg.MinMetacritic,
		MaxPrice:      r.cfg.MaxPrice,
		SessionCap:    r.cfg.SessionCap,
	}
	if opts.SessionCap > 0 {
		sel.SessionCap = opts.SessionCap
	}
	if opts.SingleBest {
		sel.MinScore = r.cfg.SingleBestMinScore
		sel.SessionCap = 1
	}
	return sel
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
