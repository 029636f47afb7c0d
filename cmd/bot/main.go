package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/brisly/deals-bot/internal/config"
	"github.com/brisly/deals-bot/internal/dedup"
	"github.com/brisly/deals-bot/internal/models"
	"github.com/brisly/deals-bot/internal/notifier"
	"github.com/brisly/deals-bot/internal/pipeline"
	"github.com/brisly/deals-bot/internal/scheduler"
	"github.com/brisly/deals-bot/internal/scoring"
	"github.com/brisly/deals-bot/internal/sources"
	"github.com/brisly/deals-bot/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run a single posting session now and exit")
	best := flag.Bool("best", false, "announce only the single best deal and exit")
	maxPosts := flag.Int("max", 0, "override the session cap for one-shot runs")
	confirm := flag.Bool("confirm", false, "ask for confirmation before sending (one-shot modes only)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := storage.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.KeyPrefix)
	if err != nil {
		slog.Error("Critical error connecting to Redis", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	gate := dedup.NewGate(store, cfg.DailyCap, cfg.Timezone)
	scorer := scoring.NewScorer(cfg.ScoreWeights, time.Now()).
		WithTiers(scoring.TiersWithThresholds(cfg.TierThresholds))

	var announcer pipeline.Announcer
	if cfg.DryRun {
		slog.Warn("Dry run: messages will be logged, not sent")
		announcer = dryRunAnnouncer{}
	} else {
		announcer = notifier.New(cfg.TelegramBotToken, cfg.TelegramChannelID)
	}

	runner := pipeline.NewRunner(buildFeeds(cfg), scorer, gate, announcer, cfg)
	engine := scheduler.NewEngine(cfg, runner, store, announcer)

	if *once || *best {
		opts := pipeline.RunOptions{SessionCap: *maxPosts, SingleBest: *best}
		if opts.SessionCap == 0 && !*best {
			opts.SessionCap = 3
		}
		if *confirm {
			opts.Confirm = promptConfirm
		}
		engine.RunOnce(ctx, opts)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Start(ctx)
	})
	g.Go(func() error {
		return serveHealth(ctx, cfg.Port, store)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped.")
}

func buildFeeds(cfg *config.Config) []sources.Feed {
	if cfg.DryRun {
		return []sources.Feed{sources.NewMock("instant_gaming")}
	}
	var feeds []sources.Feed
	if src := cfg.Sources["instant_gaming"]; src.Enabled {
		feeds = append(feeds, sources.NewInstantGaming(src.MinDiscount))
	}
	if src := cfg.Sources["gamivo"]; src.Enabled {
		feeds = append(feeds, sources.NewGamivo(src.MinDiscount))
	}
	return feeds
}

// promptConfirm lists the selected deals and asks on the terminal before any
// message is sent. Only wired for explicit one-shot runs.
func promptConfirm(selected []models.ScoredDeal) bool {
	fmt.Printf("About to announce %d deal(s):\n", len(selected))
	for i, d := range selected {
		fmt.Printf("  %d. %s %s (%s) %.2f€ -%d%%, score %.1f\n",
			i+1, d.Score.Emoji, d.Deal.Title, d.Deal.Platform,
			d.Deal.DiscountedPrice, d.Deal.DiscountPercent, d.Score.Score)
	}
	fmt.Print("Proceed? (y/n): ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")
}

type dryRunAnnouncer struct{}

func (dryRunAnnouncer) Publish(_ context.Context, deal models.Deal, score models.ScoreResult) (string, error) {
	slog.Info("[dry-run] would announce deal", "title", deal.Title, "score", score.Score, "tier", score.Tier)
	return "dry-run", nil
}

func (dryRunAnnouncer) PublishText(_ context.Context, text string) (string, error) {
	slog.Info("[dry-run] would send message", "text", text)
	return "dry-run", nil
}

func serveHealth(ctx context.Context, port string, store *storage.Redis) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, `{"status":"degraded","redis":"unreachable"}`)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Health server shutdown error", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
