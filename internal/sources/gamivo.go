package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/brisly/deals-bot/internal/models"
	"github.com/brisly/deals-bot/internal/util"
)

const (
	gamivoName      = "gamivo"
	gamivoBaseURL   = "https://www.gamivo.com/"
	gamivoAffiliate = "?glv=indiedealsgaming"

	scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

var gamivoSelectors = struct {
	item, title, link, price, oldPrice, discount, platform string
}{
	item:     "div.product-tile",
	title:    "h3.product-tile__title",
	link:     "a.product-tile__link",
	price:    "span.product-tile__price",
	oldPrice: "span.product-tile__price--old",
	discount: "span.product-tile__discount",
	platform: "span.product-tile__platform",
}

// Gamivo scrapes discounted game keys from the GAMIVO bestsellers page.
type Gamivo struct {
	client      *resty.Client
	baseURL     string
	minDiscount int
}

func NewGamivo(minDiscount int) *Gamivo {
	return &Gamivo{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", scrapeUserAgent),
		baseURL:     gamivoBaseURL,
		minDiscount: minDiscount,
	}
}

func (f *Gamivo) Name() string { return gamivoName }

func (f *Gamivo) Fetch(ctx context.Context, max int) ([]models.Deal, error) {
	url := f.baseURL + "best-deals"

	var deals []models.Deal
	err := util.RetryWithBackoff(ctx, fetchMaxRetries, fetchBackoffBase, func(attempt int) error {
		if attempt > 0 {
			slog.Warn("Retrying GAMIVO fetch", "attempt", attempt)
		}
		var err error
		deals, err = f.fetchPage(ctx, url, max)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("gamivo fetch: %w", err)
	}
	return deals, nil
}

func (f *Gamivo) fetchPage(ctx context.Context, url string, max int) ([]models.Deal, error) {
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

	sel := gamivoSelectors
	if doc.Find(sel.item).Length() == 0 {
		return nil, fmt.Errorf("no %q elements found; possible block or page change", sel.item)
	}

	var deals []models.Deal
	doc.Find(sel.item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(deals) >= max {
			return false
		}

		deal := models.Deal{
			Source:    gamivoName,
			ScrapedAt: time.Now(),
		}
		deal.Title = strings.TrimSpace(s.Find(sel.title).Text())
		deal.Platform = strings.TrimSpace(s.Find(sel.platform).Text())
		if deal.Platform == "" {
			deal.Platform = "Steam"
		}
		deal.DiscountedPrice = util.ParsePrice(s.Find(sel.price).Text())
		deal.OriginalPrice = util.ParsePrice(s.Find(sel.oldPrice).Text())
		deal.DiscountPercent = util.ParsePercent(s.Find(sel.discount).Text())
		if deal.DiscountPercent == 0 {
			deal.DiscountPercent = util.DerivePercent(deal.OriginalPrice, deal.DiscountedPrice)
		}
		if href, ok := s.Find(sel.link).Attr("href"); ok {
			deal.URL = absoluteURL(f.baseURL, href) + gamivoAffiliate
		}

		if deal.DiscountPercent < f.minDiscount {
			return true
		}
		if err := validate.Struct(deal); err != nil {
			slog.Debug("Skipping malformed scraped deal", "source", gamivoName, "title", deal.Title, "error", err)
			return true
		}
		deals = append(deals, deal)
		return true
	})

	slog.Info("Fetched deals", "source", gamivoName, "count", len(deals))
	return deals, nil
}

// absoluteURL resolves scraped hrefs that may be relative to the site root.
func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}
