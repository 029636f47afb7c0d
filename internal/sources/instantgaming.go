package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"

	"github.com/brisly/deals-bot/internal/models"
	"github.com/brisly/deals-bot/internal/util"
)

const (
	instantGamingName      = "instant_gaming"
	instantGamingBaseURL   = "https://www.instant-gaming.com/en/"
	instantGamingAffiliate = "?igr=giochigameplay"
	fetchMaxRetries        = 2
	fetchBackoffBase       = time.Second
)

// Selectors for the Instant Gaming search results page.
var instantGamingSelectors = struct {
	item, title, link, price, oldPrice, discount string
}{
	item:     "div.item",
	title:    "span.title",
	link:     "a.cover",
	price:    "div.price",
	oldPrice: "div.price-base",
	discount: "div.discount",
}

var validate = validator.New()

// InstantGaming scrapes discounted PC games from the Instant Gaming search
// page.
type InstantGaming struct {
	client      *resty.Client
	baseURL     string
	minDiscount int
}

func NewInstantGaming(minDiscount int) *InstantGaming {
	return &InstantGaming{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", scrapeUserAgent),
		baseURL:     instantGamingBaseURL,
		minDiscount: minDiscount,
	}
}

func (f *InstantGaming) Name() string { return instantGamingName }

func (f *InstantGaming) Fetch(ctx context.Context, max int) ([]models.Deal, error) {
	url := fmt.Sprintf("%ssearch/?discount=%d", f.baseURL, f.minDiscount)

	var deals []models.Deal
	err := util.RetryWithBackoff(ctx, fetchMaxRetries, fetchBackoffBase, func(attempt int) error {
		if attempt > 0 {
			slog.Warn("Retrying Instant Gaming fetch", "attempt", attempt)
		}
		var err error
		deals, err = f.fetchPage(ctx, url, max)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("instant gaming fetch: %w", err)
	}
	return deals, nil
}

func (f *InstantGaming) fetchPage(ctx context.Context, url string, max int) ([]models.Deal, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	sel := instantGamingSelectors
	if doc.Find(sel.item).Length() == 0 {
		return nil, fmt.Errorf("no %q elements found; possible block or page change", sel.item)
	}

	var deals []models.Deal
	doc.Find(sel.item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(deals) >= max {
			return false
		}

		deal := models.Deal{
			Source:    instantGamingName,
			Platform:  "Steam",
			ScrapedAt: time.Now(),
		}
		deal.Title = strings.TrimSpace(s.Find(sel.title).Text())
		deal.DiscountedPrice = util.ParsePrice(s.Find(sel.price).Text())
		deal.OriginalPrice = util.ParsePrice(s.Find(sel.oldPrice).Text())
		deal.DiscountPercent = util.ParsePercent(s.Find(sel.discount).Text())
		if deal.DiscountPercent == 0 {
			deal.DiscountPercent = util.DerivePercent(deal.OriginalPrice, deal.DiscountedPrice)
		}
		if href, ok := s.Find(sel.link).Attr("href"); ok {
			deal.URL = absoluteURL(f.baseURL, href) + instantGamingAffiliate
		}

		if deal.DiscountPercent < f.minDiscount {
			return true
		}
		if err := validate.Struct(deal); err != nil {
			slog.Debug("Skipping malformed scraped deal", "source", instantGamingName, "title", deal.Title, "error", err)
			return true
		}
		deals = append(deals, deal)
		return true
	})

	slog.Info("Fetched deals", "source", instantGamingName, "count", len(deals))
	return deals, nil
}
