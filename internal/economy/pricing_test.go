package economy

import "testing"

func TestDemandMultiplier(t *testing.T) {
	tests := []struct {
		name string
		sig  DemandSignals
		want float64
	}{
		{name: "neutral", sig: DemandSignals{}, want: 1.0},
		{name: "hot item", sig: DemandSignals{Sales24h: 15, Views24h: 60, WatchlistCount: 12, Supply: 25}, want: 1.5},
		{name: "max demand", sig: DemandSignals{Sales24h: 25, Views24h: 60, WatchlistCount: 12}, want: 2.0},
		{name: "oversupplied", sig: DemandSignals{Supply: 60}, want: 0.5},
		{name: "supply threshold not crossed", sig: DemandSignals{Supply: 20}, want: 1.0},
		{name: "sales threshold not crossed", sig: DemandSignals{Sales24h: 10}, want: 1.0},
	}
	for _, tc := range tests {
		if got := DemandMultiplier(tc.sig); got != tc.want {
			t.Fatalf("%s: DemandMultiplier = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPopularityScore(t *testing.T) {
	sig := DemandSignals{Sales24h: 2, Views24h: 4, WatchlistCount: 1, Supply: 2}
	if got := PopularityScore(sig); got != 8 {
		t.Fatalf("PopularityScore = %d, want 8", got)
	}

	if got := PopularityScore(DemandSignals{Supply: 500}); got != 0 {
		t.Fatalf("expected floor at 0, got %d", got)
	}
	if got := PopularityScore(DemandSignals{Sales24h: 60}); got != 100 {
		t.Fatalf("expected ceiling at 100, got %d", got)
	}
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		change float64
		want   Trend
	}{
		{change: 10.5, want: TrendRising},
		{change: -10.5, want: TrendFalling},
		{change: 10, want: TrendVolatile},
		{change: -10, want: TrendVolatile},
		{change: 6, want: TrendVolatile},
		{change: -6, want: TrendVolatile},
		{change: 5, want: TrendStable},
		{change: 0, want: TrendStable},
	}
	for _, tc := range tests {
		if got := TrendOf(tc.change); got != tc.want {
			t.Fatalf("TrendOf(%v) = %s, want %s", tc.change, got, tc.want)
		}
	}
}

func TestRecommendedPriceFor(t *testing.T) {
	sig := DemandSignals{Sales24h: 15, Views24h: 60, WatchlistCount: 12, Supply: 25}
	got := RecommendedPriceFor(100, RarityRare, sig)
	if got != 600 {
		t.Fatalf("RecommendedPriceFor = %d, want 600", got)
	}

	low, high := PriceBand(got)
	if low != 480 || high != 720 {
		t.Fatalf("PriceBand(600) = (%d, %d), want (480, 720)", low, high)
	}
}

func TestPricingAdviceOrder(t *testing.T) {
	tests := []struct {
		name       string
		trend      Trend
		multiplier float64
		popularity int
		want       string
	}{
		{"rising beats popularity", TrendRising, 1.6, 90, "High demand! You can price above recommended."},
		{"falling low demand", TrendFalling, 0.7, 0, "Low demand. Consider pricing below average to sell faster."},
		{"popularity beats hot market", TrendStable, 1.6, 90, "Very popular item! Quick sale expected at recommended price."},
		{"hot market", TrendStable, 1.6, 50, "Market is hot! Premium pricing recommended."},
		{"oversupplied", TrendStable, 0.6, 0, "Oversupplied market. Lower price for faster sale."},
		{"stable", TrendStable, 1.0, 50, "Market is stable. Recommended price should work well."},
	}
	for _, tc := range tests {
		got := PricingAdvice(tc.trend, tc.multiplier, tc.popularity)
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
