package dedup

import (
	"testing"

	"github.com/brisly/deals-bot/internal/models"
)

func TestIdentity_Normalization(t *testing.T) {
	tests := []struct {
		name string
		deal models.Deal
		want string
	}{
		{
			name: "spaces become hyphens",
			deal: models.Deal{Title: "Cyberpunk 2077", Platform: "Steam", Source: "instant_gaming"},
			want: "cyberpunk-2077-steam-instant_gaming",
		},
		{
			name: "colons stripped",
			deal: models.Deal{Title: "Divinity: Original Sin 2", Platform: "GOG", Source: "gamivo"},
			want: "divinity-original-sin-2-gog-gamivo",
		},
		{
			name: "case folded",
			deal: models.Deal{Title: "DOOM Eternal", Platform: "STEAM", Source: "Gamivo"},
			want: "doom-eternal-steam-gamivo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identity(tt.deal); got != tt.want {
				t.Errorf("Identity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentity_Stable(t *testing.T) {
	deal := models.Deal{Title: "Hades", Platform: "Steam", Source: "instant_gaming"}
	if Identity(deal) != Identity(deal) {
		t.Fatal("Identity is not stable for equal records")
	}
}

func TestIdentity_IgnoresPrices(t *testing.T) {
	a := models.Deal{Title: "Hades", Platform: "Steam", Source: "gamivo", OriginalPrice: 24.99, DiscountedPrice: 12.49, DiscountPercent: 50}
	b := a
	b.OriginalPrice = 19.99
	b.DiscountedPrice = 9.99
	b.DiscountPercent = 60
	if Identity(a) != Identity(b) {
		t.Error("price changes must not change the identity key")
	}
}
