package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const instantGamingFixture = `<html><body>
<div class="item">
  <a class="cover" href="/en/1234-cyberpunk-2077/"></a>
  <span class="title">Cyberpunk 2077</span>
  <div class="discount">-67%</div>
  <div class="price-base">59.99€</div>
  <div class="price">19.99€</div>
</div>
<div class="item">
  <a class="cover" href="/en/5678-shallow-deal/"></a>
  <span class="title">Shallow Deal</span>
  <div class="discount">-10%</div>
  <div class="price-base">49.99€</div>
  <div class="price">44.99€</div>
</div>
</body></html>`

const gamivoFixture = `<html><body>
<div class="product-tile">
  <a class="product-tile__link" href="/product/hades"></a>
  <h3 class="product-tile__title">Hades</h3>
  <span class="product-tile__platform">Steam</span>
  <span class="product-tile__discount">-50%</span>
  <span class="product-tile__price--old">24,99 €</span>
  <span class="product-tile__price">12,49 €</span>
</div>
</body></html>`

func TestInstantGaming_ParsesAndFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(instantGamingFixture))
	}))
	defer srv.Close()

	feed := NewInstantGaming(30)
	feed.baseURL = srv.URL + "/"

	deals, err := feed.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	// The 10% deal is below the source's minimum discount floor.
	if len(deals) != 1 {
		t.Fatalf("Fetch() returned %d deals, want 1", len(deals))
	}

	deal := deals[0]
	if deal.Title != "Cyberpunk 2077" {
		t.Errorf("Title = %q", deal.Title)
	}
	if deal.Source != "instant_gaming" {
		t.Errorf("Source = %q", deal.Source)
	}
	if deal.DiscountPercent != 67 {
		t.Errorf("DiscountPercent = %d, want 67", deal.DiscountPercent)
	}
	if deal.DiscountedPrice != 19.99 || deal.OriginalPrice != 59.99 {
		t.Errorf("prices = %v/%v, want 19.99/59.99", deal.DiscountedPrice, deal.OriginalPrice)
	}
	if want := srv.URL + "/en/1234-cyberpunk-2077/" + instantGamingAffiliate; deal.URL != want {
		t.Errorf("URL = %q, want %q", deal.URL, want)
	}
}

func TestGamivo_ParsesCommaDecimalPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(gamivoFixture))
	}))
	defer srv.Close()

	feed := NewGamivo(30)
	feed.baseURL = srv.URL + "/"

	deals, err := feed.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(deals) != 1 {
		t.Fatalf("Fetch() returned %d deals, want 1", len(deals))
	}
	if deals[0].DiscountedPrice != 12.49 {
		t.Errorf("DiscountedPrice = %v, want 12.49", deals[0].DiscountedPrice)
	}
	if deals[0].Platform != "Steam" {
		t.Errorf("Platform = %q, want Steam", deals[0].Platform)
	}
}

func TestInstantGaming_EmptyPageIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	feed := NewInstantGaming(30)
	feed.baseURL = srv.URL + "/"

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // skip retry backoff
	if _, err := feed.Fetch(ctx, 10); err == nil {
		t.Error("Fetch() of an empty page should fail so the pipeline can skip the source")
	}
}

func TestMock_RespectsMax(t *testing.T) {
	feed := NewMock("instant_gaming")
	deals, err := feed.Fetch(context.Background(), 2)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(deals) != 2 {
		t.Errorf("Fetch(max=2) returned %d deals", len(deals))
	}
}
