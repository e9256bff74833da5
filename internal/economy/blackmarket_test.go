package economy

import (
	"testing"
	"time"
)

func TestBlackMarketFinalPrice(t *testing.T) {
	tests := []struct {
		price    int64
		discount int
		want     int64
	}{
		{price: 1000, discount: 25, want: 750},
		{price: 999, discount: 10, want: 899},
		{price: 500, discount: 0, want: 500},
		{price: 500, discount: -10, want: 500},
		{price: 500, discount: 100, want: 0},
		{price: 500, discount: 150, want: 0},
		{price: 1, discount: 50, want: 0},
	}
	for _, tc := range tests {
		got := BlackMarketFinalPrice(tc.price, tc.discount)
		if got != tc.want {
			t.Fatalf("BlackMarketFinalPrice(%d, %d) = %d, want %d", tc.price, tc.discount, got, tc.want)
		}
	}
}

func TestOfferPrice(t *testing.T) {
	tests := []struct {
		name     string
		gold     int64
		gems     int64
		discount int
		currency Currency
		want     int64
	}{
		{name: "gold discounted", gold: 1000, gems: 0, discount: 25, currency: CurrencyGold, want: 750},
		{name: "gems discounted", gold: 1000, gems: 1000, discount: 25, currency: CurrencyGems, want: 750},
		{name: "gems undiscounted", gold: 500, gems: 200, discount: 0, currency: CurrencyGems, want: 200},
		{name: "gold when gems unset", gold: 400, gems: 0, discount: 50, currency: CurrencyGold, want: 200},
	}
	for _, tc := range tests {
		got, err := offerPrice(tc.gold, tc.gems, tc.discount, tc.currency)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: offerPrice = %d, want %d", tc.name, got, tc.want)
		}
	}

	if _, err := offerPrice(500, 0, 10, CurrencyGems); err == nil {
		t.Fatalf("expected gem purchase without a gem price to fail")
	}
}

func TestOfferWindowOpen(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(72 * time.Hour)

	tests := []struct {
		now  time.Time
		want bool
	}{
		{now: from.Add(-time.Second), want: false},
		{now: from, want: true},
		{now: from.Add(time.Hour), want: true},
		{now: to, want: true},
		{now: to.Add(time.Second), want: false},
	}
	for _, tc := range tests {
		if got := offerWindowOpen(from, to, tc.now); got != tc.want {
			t.Fatalf("offerWindowOpen(now=%v) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestTimeLeft(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		until time.Time
		want  string
	}{
		{until: now.Add(50*time.Hour + 30*time.Minute), want: "2d 2h"},
		{until: now.Add(90 * time.Minute), want: "1h 30m"},
		{until: now.Add(45 * time.Minute), want: "45m"},
		{until: now, want: "expired"},
		{until: now.Add(-time.Hour), want: "expired"},
	}
	for _, tc := range tests {
		if got := timeLeft(tc.until, now); got != tc.want {
			t.Fatalf("timeLeft(%v) = %q, want %q", tc.until.Sub(now), got, tc.want)
		}
	}
}
