package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brisly/deals-bot/internal/config"
	"github.com/brisly/deals-bot/internal/pipeline"
)

type mockRunner struct {
	mu      sync.Mutex
	runs    int
	block   chan struct{}
	lastOpt pipeline.RunOptions
}

func (m *mockRunner) Run(_ context.Context, opts pipeline.RunOptions) error {
	m.mu.Lock()
	m.runs++
	m.lastOpt = opts
	m.mu.Unlock()
	if m.block != nil {
		<-m.block
	}
	return nil
}

func (m *mockRunner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

type mockStats struct {
	stats map[string]int64
}

func (m *mockStats) AllStats(_ context.Context) (map[string]int64, error) {
	return m.stats, nil
}

type mockAnnouncer struct {
	texts []string
}

func (m *mockAnnouncer) PublishText(_ context.Context, text string) (string, error) {
	m.texts = append(m.texts, text)
	return "msg-1", nil
}

func testEngine() (*Engine, *mockRunner, *mockAnnouncer, *time.Time) {
	cfg := &config.Config{
		PostingTimes:  []config.TimeOfDay{{Hour: 8}, {Hour: 13}},
		Timezone:      time.UTC,
		PollInterval:  time.Minute,
		PauseSaturday: true,
		SundayRecap:   true,
		RecapTime:     config.TimeOfDay{Hour: 12},
	}
	runner := &mockRunner{}
	announcer := &mockAnnouncer{}
	stats := &mockStats{stats: map[string]int64{"total_posts": 12, "posts_gamivo": 5, "posts_instant_gaming": 7}}

	// June 2nd 2025 is a Monday.
	current := time.Date(2025, 6, 2, 7, 59, 30, 0, time.UTC)
	engine := NewEngine(cfg, runner, stats, announcer).WithClock(func() time.Time { return current })
	return engine, runner, announcer, &current
}

func TestEvaluate_FiresAtConfiguredTime(t *testing.T) {
	engine, runner, _, current := testEngine()
	ctx := context.Background()

	engine.evaluate(ctx) // 07:59, nothing due
	if runner.count() != 0 {
		t.Fatalf("fired before the trigger time")
	}

	*current = time.Date(2025, 6, 2, 8, 0, 10, 0, time.UTC)
	engine.evaluate(ctx)
	if runner.count() != 1 {
		t.Fatalf("runs = %d, want 1", runner.count())
	}
}

func TestEvaluate_AtMostOncePerMinute(t *testing.T) {
	engine, runner, _, current := testEngine()
	ctx := context.Background()

	// The poll loop can wake several times inside the trigger minute.
	*current = time.Date(2025, 6, 2, 13, 0, 5, 0, time.UTC)
	engine.evaluate(ctx)
	*current = time.Date(2025, 6, 2, 13, 0, 45, 0, time.UTC)
	engine.evaluate(ctx)

	if runner.count() != 1 {
		t.Errorf("runs = %d, want 1 (at-most-once-per-day per trigger)", runner.count())
	}
}

func TestEvaluate_FiresAgainNextDay(t *testing.T) {
	engine, runner, _, current := testEngine()
	ctx := context.Background()

	*current = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)
	*current = time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)

	if runner.count() != 2 {
		t.Errorf("runs = %d, want 2 (one per day)", runner.count())
	}
}

func TestEvaluate_SaturdayPause(t *testing.T) {
	engine, runner, _, current := testEngine()
	ctx := context.Background()

	// June 7th 2025 is a Saturday.
	*current = time.Date(2025, 6, 7, 8, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)
	if runner.count() != 0 {
		t.Errorf("runs = %d, want 0 on Saturday", runner.count())
	}

	// Sunday posting resumes.
	*current = time.Date(2025, 6, 8, 8, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)
	if runner.count() != 1 {
		t.Errorf("runs = %d, want 1 on Sunday", runner.count())
	}
}

func TestEvaluate_WeeklyRecapOnSunday(t *testing.T) {
	engine, runner, announcer, current := testEngine()
	ctx := context.Background()

	// Sunday noon: recap fires, posting triggers do not.
	*current = time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)

	if len(announcer.texts) != 1 {
		t.Fatalf("recap messages = %d, want 1", len(announcer.texts))
	}
	if !strings.Contains(announcer.texts[0], "Weekly Recap") {
		t.Errorf("recap text = %q", announcer.texts[0])
	}
	if runner.count() != 0 {
		t.Errorf("posting run fired at recap time")
	}

	// Same Sunday a week earlier state: a weekday noon must not recap.
	*current = time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)
	if len(announcer.texts) != 1 {
		t.Errorf("recap fired on a Monday")
	}
}

func TestRunGuarded_OverlapIsSkipped(t *testing.T) {
	engine, runner, _, _ := testEngine()
	ctx := context.Background()

	runner.block = make(chan struct{})
	done := make(chan struct{})
	go func() {
		engine.RunOnce(ctx, pipeline.RunOptions{})
		close(done)
	}()

	// Wait for the first run to be in flight.
	for runner.count() == 0 {
		time.Sleep(time.Millisecond)
	}

	// A trigger while a run is in progress is a no-op skip.
	engine.RunOnce(ctx, pipeline.RunOptions{})
	if runner.count() != 1 {
		t.Errorf("runs = %d, want 1 (overlap skipped)", runner.count())
	}

	close(runner.block)
	<-done
}

func TestDailyReset_PrunesOldEntries(t *testing.T) {
	engine, _, _, current := testEngine()
	ctx := context.Background()

	*current = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)
	if len(engine.fired) != 1 {
		t.Fatalf("fired entries = %d, want 1", len(engine.fired))
	}

	// Midnight next day prunes yesterday's entries (the reset itself is
	// today's only fired trigger afterwards).
	*current = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	engine.evaluate(ctx)
	for key := range engine.fired {
		if strings.HasPrefix(key, "2025-06-02") {
			t.Errorf("stale fired entry survived reset: %q", key)
		}
	}
}

func TestFormatRecap(t *testing.T) {
	text := FormatRecap(map[string]int64{
		"total_posts":          12,
		"posts_gamivo":         5,
		"posts_instant_gaming": 7,
	})
	for _, want := range []string{"*12*", "gamivo: 5", "instant_gaming: 7"} {
		if !strings.Contains(text, want) {
			t.Errorf("recap missing %q:\n%s", want, text)
		}
	}
}
