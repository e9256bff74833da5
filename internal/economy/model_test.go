package economy

import (
	"errors"
	"testing"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want Currency
	}{
		{in: "", want: CurrencyGold},
		{in: "gold", want: CurrencyGold},
		{in: " GOLD ", want: CurrencyGold},
		{in: "gems", want: CurrencyGems},
		{in: "Gems", want: CurrencyGems},
	}
	for _, tc := range tests {
		got, err := ParseCurrency(tc.in)
		if err != nil {
			t.Fatalf("ParseCurrency(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseCurrency(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ParseCurrency("bitcoin"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestRarityMultiplier(t *testing.T) {
	tests := []struct {
		rarity Rarity
		want   float64
	}{
		{RarityCommon, 1.0},
		{RarityUncommon, 2.0},
		{RarityRare, 4.0},
		{RarityEpic, 8.0},
		{RarityLegendary, 16.0},
		{Rarity("MYTHIC"), 1.0},
	}
	for _, tc := range tests {
		if got := RarityMultiplier(tc.rarity); got != tc.want {
			t.Fatalf("RarityMultiplier(%s) = %v, want %v", tc.rarity, got, tc.want)
		}
	}
}

func TestValidatePrice(t *testing.T) {
	base := int64(100)

	if err := ValidatePrice(base, 10); err != nil {
		t.Fatalf("10%% of base should be allowed: %v", err)
	}
	if err := ValidatePrice(base, 500); err != nil {
		t.Fatalf("500%% of base should be allowed: %v", err)
	}
	if err := ValidatePrice(base, 9); !errors.Is(err, ErrPriceOutOfBand) {
		t.Fatalf("expected ErrPriceOutOfBand below 10%%, got %v", err)
	}
	if err := ValidatePrice(base, 501); !errors.Is(err, ErrPriceOutOfBand) {
		t.Fatalf("expected ErrPriceOutOfBand above 500%%, got %v", err)
	}
	if err := ValidatePrice(base, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for zero ask, got %v", err)
	}
	if err := ValidatePrice(base, -5); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice for negative ask, got %v", err)
	}
}

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{xp: 0, want: 1},
		{xp: 99, want: 1},
		{xp: 100, want: 2},
		{xp: 399, want: 4},
		{xp: 400, want: MinTradeLevel},
	}
	for _, tc := range tests {
		if got := LevelFromXP(tc.xp); got != tc.want {
			t.Fatalf("LevelFromXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestSplitFee(t *testing.T) {
	received, fee := SplitFee(100, DefaultTransferFeeRate)
	if fee != 5 || received != 95 {
		t.Fatalf("SplitFee(100, 0.05) = (%d, %d), want (95, 5)", received, fee)
	}

	// Half a unit rounds away from zero.
	received, fee = SplitFee(10, DefaultTransferFeeRate)
	if fee != 1 || received != 9 {
		t.Fatalf("SplitFee(10, 0.05) = (%d, %d), want (9, 1)", received, fee)
	}

	received, fee = SplitFee(7, 0)
	if fee != 0 || received != 7 {
		t.Fatalf("zero fee rate must pass the amount through, got (%d, %d)", received, fee)
	}

	if received+fee != 7 {
		t.Fatalf("received + fee must equal the amount")
	}
}

func TestClampTrust(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -5, want: 0},
		{in: 0, want: 0},
		{in: 50, want: 50},
		{in: 100, want: 100},
		{in: 150, want: 100},
	}
	for _, tc := range tests {
		if got := clampTrust(tc.in); got != tc.want {
			t.Fatalf("clampTrust(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
