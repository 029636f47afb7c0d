package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/brisly/deals-bot/internal/models"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// Telegram announces deals to a channel through the Bot API. Sends are rate
// limited to stay under Telegram's per-channel message limit.
type Telegram struct {
	token       string
	channelID   string
	apiBaseURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

func New(token, channelID string) *Telegram {
	return &Telegram{
		token:      token,
		channelID:  channelID,
		apiBaseURL: defaultAPIBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Telegram allows ~1 message/second to a single channel.
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type sendMessagePayload struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Publish announces one scored deal and returns the Telegram message ID.
func (t *Telegram) Publish(ctx context.Context, deal models.Deal, score models.ScoreResult) (string, error) {
	return t.send(ctx, FormatDealMessage(deal, score))
}

// PublishText sends a plain message, used for the weekly recap.
func (t *Telegram) PublishText(ctx context.Context, text string) (string, error) {
	return t.send(ctx, text)
}

func (t *Telegram) send(ctx context.Context, text string) (string, error) {
	if t.token == "" {
		return "", fmt.Errorf("telegram bot token not configured")
	}
	if err := t.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := sendMessagePayload{
		ChatID:                t.channelID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBaseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("telegram status %s: %s", resp.Status, string(respBody))
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding telegram response: %w", err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("telegram rejected message: %s", parsed.Description)
	}
	return strconv.FormatInt(parsed.Result.MessageID, 10), nil
}

// FormatDealMessage renders the channel post for one deal.
func FormatDealMessage(deal models.Deal, score models.ScoreResult) string {
	sourceEmoji := "🌐"
	if deal.Source == "instant_gaming" {
		sourceEmoji = "🎮"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%d%% OFF* %s\n", sourceEmoji, deal.DiscountPercent, sourceEmoji)
	fmt.Fprintf(&b, "*%s* - %s\n\n", deal.Title, deal.Platform)

	fmt.Fprintf(&b, "💰 Was: ~%.2f€~\n", deal.OriginalPrice)
	fmt.Fprintf(&b, "🎯 Now: *%.2f€*\n", deal.DiscountedPrice)
	fmt.Fprintf(&b, "📈 You save: *%.2f€*\n\n", deal.Savings())

	if deal.MetacriticScore > 0 {
		fmt.Fprintf(&b, "🏆 Metacritic: %d/100\n", deal.MetacriticScore)
	}
	if deal.ReleaseYear > 0 {
		fmt.Fprintf(&b, "📅 Year: %d\n", deal.ReleaseYear)
	}
	if deal.Genre != "" {
		fmt.Fprintf(&b, "🎮 Genre: %s\n", deal.Genre)
	}
	if deal.EarlyAccess {
		b.WriteString("⚠️ *EARLY ACCESS*\n")
	}
	if deal.HistoricalLow {
		b.WriteString("🔥 *HISTORICAL LOW!*\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "%s *BrislyScore™: %.1f/45*\n", score.Emoji, score.Score)
	fmt.Fprintf(&b, "_%s_\n", strings.ReplaceAll(score.Tier, "_", " "))
	fmt.Fprintf(&b, "💬 %s\n\n", score.Recommendation)

	fmt.Fprintf(&b, "#️⃣ %s\n\n", strings.Join(hashtags(deal), " "))

	if deal.URL != "" {
		fmt.Fprintf(&b, "🛒 [Get the deal](%s)\n\n", deal.URL)
	}
	b.WriteString("⚡ *LIMITED TIME OFFER* ⚡")
	return b.String()
}

func hashtags(deal models.Deal) []string {
	var tags []string

	platform := strings.ReplaceAll(deal.Platform, " ", "")
	if platform != "" {
		tags = append(tags, "#"+platform)
	}
	if deal.Genre != "" {
		tags = append(tags, "#"+strings.ReplaceAll(deal.Genre, " ", ""))
	}

	switch score := deal.MetacriticScore; {
	case score >= 90:
		tags = append(tags, "#Metacritic90Plus")
	case score >= 80:
		tags = append(tags, "#Metacritic80Plus")
	case score >= 70:
		tags = append(tags, "#Metacritic70Plus")
	case score >= 60:
		tags = append(tags, "#Metacritic60Plus")
	}

	if deal.Source == "instant_gaming" {
		tags = append(tags, "#InstantGaming")
	} else {
		tags = append(tags, "#GAMIVO")
	}
	if deal.EarlyAccess {
		tags = append(tags, "#EarlyAccess")
	}
	return tags
}
