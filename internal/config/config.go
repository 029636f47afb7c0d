package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// weightEpsilon is the tolerance when checking that score weights sum to 1.0.
const weightEpsilon = 1e-9

// Weights holds the score component weights. They must sum to 1.0.
type Weights struct {
	Metacritic float64
	Discount   float64
	PriceValue float64
	Popularity float64
}

// Sum returns the total of all component weights.
func (w Weights) Sum() float64 {
	return w.Metacritic + w.Discount + w.PriceValue + w.Popularity
}

// TimeOfDay is a wall-clock trigger time in the configured timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// SourceConfig controls one catalog feed.
type SourceConfig struct {
	Enabled     bool
	MinDiscount int
}

type Config struct {
	TelegramBotToken  string
	TelegramChannelID string `validate:"required"`

	RedisAddr     string `validate:"required"`
	RedisPassword string
	KeyPrefix     string `validate:"required"`

	PostingTimes []TimeOfDay `validate:"min=1"`
	Timezone     *time.Location
	PollInterval time.Duration `validate:"gt=0"`
	PublishDelay time.Duration `validate:"gte=0"`

	DailyCap   int `validate:"gt=0"`
	SessionCap int `validate:"gt=0"`

	MinDiscount        int `validate:"gte=0,lte=100"`
	MinScore           float64
	SingleBestMinScore float64
	MinMetacritic      int     `validate:"gte=0,lte=100"`
	MaxPrice           float64 `validate:"gt=0"`

	ScoreWeights Weights

	// TierThresholds are the classifier cut-offs, highest tier first.
	TierThresholds []float64 `validate:"len=4"`

	PauseSaturday bool
	SundayRecap   bool
	RecapTime     TimeOfDay

	MaxPerSource int `validate:"gt=0"`
	Sources      map[string]SourceConfig

	Port   string
	DryRun bool
}

// Load reads configuration from environment variables, applying the documented
// defaults and validating the result. It returns an error for any value that
// would make the pipeline misbehave; callers should treat that as fatal.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChannelID: getEnv("TELEGRAM_CHANNEL_ID", "@BrislyDealsGaming"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:         getEnv("KEY_PREFIX", "brisly:gaming:"),
		Port:              getEnv("PORT", "8080"),
	}

	var err error
	if cfg.DryRun, err = getEnvBool("DRY_RUN", false); err != nil {
		return nil, err
	}
	if cfg.TelegramBotToken == "" && !cfg.DryRun {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required unless DRY_RUN is set")
	}

	if cfg.PostingTimes, err = parseTimes(getEnv("POSTING_TIMES", "08:00,13:00,18:00,21:00")); err != nil {
		return nil, fmt.Errorf("invalid POSTING_TIMES: %w", err)
	}

	tz := getEnv("TIMEZONE", "Europe/Rome")
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.PublishDelay, err = getEnvDuration("PUBLISH_DELAY", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.DailyCap, err = getEnvInt("DAILY_CAP", 10); err != nil {
		return nil, err
	}
	if cfg.SessionCap, err = getEnvInt("SESSION_CAP", 2); err != nil {
		return nil, err
	}
	if cfg.MinDiscount, err = getEnvInt("MIN_DISCOUNT", 30); err != nil {
		return nil, err
	}
	if cfg.MinScore, err = getEnvFloat("MIN_SCORE", 15); err != nil {
		return nil, err
	}
	if cfg.SingleBestMinScore, err = getEnvFloat("SINGLE_BEST_MIN_SCORE", 20); err != nil {
		return nil, err
	}
	if cfg.MinMetacritic, err = getEnvInt("MIN_METACRITIC", 50); err != nil {
		return nil, err
	}
	if cfg.MaxPrice, err = getEnvFloat("MAX_PRICE", 100); err != nil {
		return nil, err
	}
	if cfg.MaxPerSource, err = getEnvInt("MAX_PER_SOURCE", 10); err != nil {
		return nil, err
	}

	if cfg.ScoreWeights, err = parseWeights(os.Getenv("SCORE_WEIGHTS")); err != nil {
		return nil, err
	}
	if cfg.TierThresholds, err = parseThresholds(getEnv("TIER_THRESHOLDS", "36,26,16,0")); err != nil {
		return nil, err
	}

	if cfg.PauseSaturday, err = getEnvBool("PAUSE_SATURDAY", true); err != nil {
		return nil, err
	}
	if cfg.SundayRecap, err = getEnvBool("SUNDAY_RECAP", true); err != nil {
		return nil, err
	}
	recap, err := parseTimes(getEnv("RECAP_TIME", "12:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECAP_TIME: %w", err)
	}
	cfg.RecapTime = recap[0]

	cfg.Sources = map[string]SourceConfig{}
	for _, src := range []struct{ name, env string }{
		{"instant_gaming", "IG"},
		{"gamivo", "GAMIVO"},
	} {
		enabled, err := getEnvBool(src.env+"_ENABLED", true)
		if err != nil {
			return nil, err
		}
		minDiscount, err := getEnvInt(src.env+"_MIN_DISCOUNT", 30)
		if err != nil {
			return nil, err
		}
		cfg.Sources[src.name] = SourceConfig{Enabled: enabled, MinDiscount: minDiscount}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"posting_times", formatTimes(cfg.PostingTimes),
		"timezone", tz,
		"daily_cap", cfg.DailyCap,
		"session_cap", cfg.SessionCap,
		"dry_run", cfg.DryRun)
	return cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if diff := math.Abs(c.ScoreWeights.Sum() - 1.0); diff > weightEpsilon {
		return fmt.Errorf("score weights must sum to 1.0, got %v", c.ScoreWeights.Sum())
	}
	for i := 1; i < len(c.TierThresholds); i++ {
		if c.TierThresholds[i] >= c.TierThresholds[i-1] {
			return fmt.Errorf("tier thresholds must be strictly descending, got %v", c.TierThresholds)
		}
	}
	return nil
}

func parseWeights(s string) (Weights, error) {
	if s == "" {
		return Weights{Metacritic: 0.30, Discount: 0.30, PriceValue: 0.25, Popularity: 0.15}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Weights{}, fmt.Errorf("SCORE_WEIGHTS must have 4 comma-separated values, got %d", len(parts))
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Weights{}, fmt.Errorf("invalid SCORE_WEIGHTS value %q: %w", p, err)
		}
		vals[i] = v
	}
	return Weights{Metacritic: vals[0], Discount: vals[1], PriceValue: vals[2], Popularity: vals[3]}, nil
}

func parseThresholds(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	thresholds := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TIER_THRESHOLDS value %q: %w", p, err)
		}
		thresholds = append(thresholds, v)
	}
	return thresholds, nil
}

func parseTimes(s string) ([]TimeOfDay, error) {
	var times []TimeOfDay
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hh, mm, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("bad time %q (want HH:MM)", part)
		}
		hour, err := strconv.Atoi(hh)
		if err != nil {
			return nil, fmt.Errorf("bad time %q (want HH:MM): %w", part, err)
		}
		minute, err := strconv.Atoi(mm)
		if err != nil {
			return nil, fmt.Errorf("bad time %q (want HH:MM): %w", part, err)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("time %q out of range", part)
		}
		times = append(times, TimeOfDay{Hour: hour, Minute: minute})
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("no times in %q", s)
	}
	return times, nil
}

func formatTimes(times []TimeOfDay) string {
	parts := make([]string, len(times))
	for i, t := range times {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}
