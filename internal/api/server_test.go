package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bazaar/internal/economy"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc123", want: "abc123"},
		{header: "bearer abc123", want: "abc123"},
		{header: "Bearer  abc123 ", want: "abc123"},
		{header: "Basic abc123", want: ""},
		{header: "abc123", want: ""},
		{header: "", want: ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestIdempotencyKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/wallet/transfer", nil)
	r.Header.Set("Idempotency-Key", " my-key ")
	if got := idempotencyKey(r); got != "my-key" {
		t.Fatalf("idempotencyKey = %q, want my-key", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/v1/wallet/transfer", nil)
	first := idempotencyKey(r)
	second := idempotencyKey(r)
	if first == "" || first == second {
		t.Fatalf("missing header should generate a fresh key per call")
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: economy.ErrInvalidQuantity, want: http.StatusBadRequest},
		{err: fmt.Errorf("wrap: %w", economy.ErrPriceOutOfBand), want: http.StatusBadRequest},
		{err: economy.ErrListingNotFound, want: http.StatusNotFound},
		{err: economy.ErrUserNotFound, want: http.StatusNotFound},
		{err: economy.ErrListingNotActive, want: http.StatusConflict},
		{err: economy.ErrInsufficientFunds, want: http.StatusConflict},
		{err: economy.ErrInsufficientInventory, want: http.StatusConflict},
		{err: economy.ErrInsufficientStock, want: http.StatusConflict},
		{err: economy.ErrOutOfStock, want: http.StatusConflict},
		{err: economy.ErrTradeLegStale, want: http.StatusConflict},
		{err: economy.ErrTxConflict, want: http.StatusConflict},
		{err: economy.ErrDuplicateIdempotency, want: http.StatusConflict},
		{err: economy.ErrTradingLocked, want: http.StatusForbidden},
		{err: economy.ErrLowTrust, want: http.StatusForbidden},
		{err: economy.ErrRateLimited, want: http.StatusTooManyRequests},
		{err: fmt.Errorf("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("writeDomainError(%v) wrote %d, want %d", tc.err, rec.Code, tc.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected json content type, got %q", ct)
		}
	}
}
