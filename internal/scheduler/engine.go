package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brisly/deals-bot/internal/config"
	"github.com/brisly/deals-bot/internal/pipeline"
)

// Runner is the pipeline surface the engine drives.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) error
}

// StatsSource provides the counters behind the weekly recap.
type StatsSource interface {
	AllStats(ctx context.Context) (map[string]int64, error)
}

// Announcer is the subset of the outbound channel the engine itself uses.
type Announcer interface {
	PublishText(ctx context.Context, text string) (messageID string, err error)
}

// Engine fires pipeline runs at the configured wall-clock times. One loop
// instance owns all scheduling state; nothing here is persisted. The daily
// publication cap lives in the store, so restarts cannot bypass it.
type Engine struct {
	cfg       *config.Config
	runner    Runner
	stats     StatsSource
	announcer Announcer

	now func() time.Time

	// fired tracks which (trigger, calendar date) pairs have already run,
	// so a trigger fires at most once per day even when the poll loop
	// wakes more than once inside the same minute.
	fired map[string]struct{}

	// runMu guarantees a single in-flight run; an overlapping trigger is
	// a logged no-op skip.
	runMu sync.Mutex
}

func NewEngine(cfg *config.Config, runner Runner, stats StatsSource, announcer Announcer) *Engine {
	return &Engine{
		cfg:       cfg,
		runner:    runner,
		stats:     stats,
		announcer: announcer,
		now:       time.Now,
		fired:     map[string]struct{}{},
	}
}

// WithClock overrides the engine's clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start runs the polling loop until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	times := make([]string, len(e.cfg.PostingTimes))
	for i, t := range e.cfg.PostingTimes {
		times[i] = t.String()
	}
	slog.Info("Scheduler started",
		"posting_times", strings.Join(times, ","),
		"poll_interval", e.cfg.PollInterval,
		"timezone", e.cfg.Timezone.String())

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			e.evaluate(ctx)
		}
	}
}

// evaluate fires every due trigger for the current minute.
func (e *Engine) evaluate(ctx context.Context) {
	local := e.now().In(e.cfg.Timezone)

	for _, t := range e.cfg.PostingTimes {
		if e.due(local, t, "post:"+t.String()) {
			e.firePostingRun(ctx, local)
		}
	}

	if e.due(local, config.TimeOfDay{Hour: 0, Minute: 0}, "daily-reset") {
		e.dailyReset(local)
	}

	if e.cfg.SundayRecap && local.Weekday() == time.Sunday {
		if e.due(local, e.cfg.RecapTime, "weekly-recap") {
			e.weeklyRecap(ctx)
		}
	}
}

// due reports whether the trigger matches the current minute and has not
// already fired today, marking it fired when it is due.
func (e *Engine) due(local time.Time, at config.TimeOfDay, name string) bool {
	if local.Hour() != at.Hour || local.Minute() != at.Minute {
		return false
	}
	key := local.Format("2006-01-02") + " " + name
	if _, done := e.fired[key]; done {
		return false
	}
	e.fired[key] = struct{}{}
	return true
}

func (e *Engine) firePostingRun(ctx context.Context, local time.Time) {
	if e.cfg.PauseSaturday && local.Weekday() == time.Saturday {
		slog.Info("Saturday pause active, skipping posting run")
		return
	}
	slog.Info("Posting trigger fired", "at", local.Format("15:04"))
	e.runGuarded(ctx, pipeline.RunOptions{})
}

// RunOnce executes a single pipeline pass immediately, bypassing the trigger
// clock but reusing the same run logic, cap checks and pacing.
func (e *Engine) RunOnce(ctx context.Context, opts pipeline.RunOptions) {
	e.runGuarded(ctx, opts)
}

func (e *Engine) runGuarded(ctx context.Context, opts pipeline.RunOptions) {
	if !e.runMu.TryLock() {
		slog.Warn("Previous run still in progress, skipping trigger")
		return
	}
	defer e.runMu.Unlock()

	if err := e.runner.Run(ctx, opts); err != nil {
		// Run-scoped failure: the loop keeps going and retries at
		// the next trigger.
		slog.Error("Pipeline run failed", "error", err)
	}
}

// dailyReset prunes fired-trigger entries from previous days so the map does
// not grow without bound.
func (e *Engine) dailyReset(local time.Time) {
	today := local.Format("2006-01-02")
	for key := range e.fired {
		if !strings.HasPrefix(key, today) {
			delete(e.fired, key)
		}
	}
	slog.Info("Daily reset", "date", today)
}

func (e *Engine) weeklyRecap(ctx context.Context) {
	stats, err := e.stats.AllStats(ctx)
	if err != nil {
		slog.Error("Failed to load stats for weekly recap", "error", err)
		return
	}
	if _, err := e.announcer.PublishText(ctx, FormatRecap(stats)); err != nil {
		slog.Error("Failed to publish weekly recap", "error", err)
		return
	}
	slog.Info("Weekly recap published")
}

// FormatRecap renders the Sunday summary message from the stat counters.
func FormatRecap(stats map[string]int64) string {
	var b strings.Builder
	b.WriteString("📊 *Weekly Recap*\n\n")
	fmt.Fprintf(&b, "📤 Total deals announced: *%d*\n", stats["total_posts"])

	names := make([]string, 0, len(stats))
	for name := range stats {
		if strings.HasPrefix(name, "posts_") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  • %s: %d\n", strings.TrimPrefix(name, "posts_"), stats[name])
	}

	b.WriteString("\n⚡ Stay tuned for next week's deals!")
	return b.String()
}
