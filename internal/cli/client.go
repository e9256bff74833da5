package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bazaar/internal/auth"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Wallet(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/wallet", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Ledger(ctx context.Context, accessToken string, limit int) (map[string]any, error) {
	path := "/v1/wallet/ledger"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Transfer(ctx context.Context, accessToken, toUserID string, amount int64, currency, reason, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/wallet/transfer", accessToken, map[string]any{
		"to_user_id": toUserID,
		"amount":     amount,
		"currency":   currency,
		"reason":     reason,
	}, &out, idem)
	return out, err
}

func (c *Client) Inventory(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/inventory", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) BrowseListings(ctx context.Context, accessToken string, query url.Values) (map[string]any, error) {
	path := "/v1/market/listings"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) CreateListing(ctx context.Context, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/market/listings", accessToken, body, &out, idem)
	return out, err
}

func (c *Client) ListingDetail(ctx context.Context, accessToken string, listingID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/market/listings/%d", listingID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) BuyListing(ctx context.Context, accessToken string, listingID, quantity int64, currency, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/market/listings/%d/buy", listingID), accessToken, map[string]any{
		"quantity": quantity,
		"currency": currency,
	}, &out, idem)
	return out, err
}

func (c *Client) CancelListing(ctx context.Context, accessToken string, listingID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/market/listings/%d/cancel", listingID), accessToken, map[string]any{}, &out, "")
	return out, err
}

func (c *Client) MarketStats(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market/stats", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) RecommendedPrice(ctx context.Context, accessToken string, itemID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/items/%d/price", itemID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) PriceHistory(ctx context.Context, accessToken string, itemID int64, period string) (map[string]any, error) {
	path := fmt.Sprintf("/v1/items/%d/history", itemID)
	if period != "" {
		path += "?period=" + url.QueryEscape(period)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Watchlist(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/watchlist", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Watch(ctx context.Context, accessToken string, itemID, maxPrice int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/watchlist", accessToken, map[string]any{
		"item_id":   itemID,
		"max_price": maxPrice,
	}, &out, "")
	return out, err
}

func (c *Client) Unwatch(ctx context.Context, accessToken string, itemID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/watchlist/%d", itemID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ListTrades(ctx context.Context, accessToken, status string) (map[string]any, error) {
	path := "/v1/trades"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, path, accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ProposeTrade(ctx context.Context, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/trades", accessToken, body, &out, idem)
	return out, err
}

func (c *Client) TradeDetail(ctx context.Context, accessToken string, tradeID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/trades/%d", tradeID), accessToken, nil, &out, "")
	return out, err
}

func (c *Client) AcceptTrade(ctx context.Context, accessToken string, tradeID int64, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/trades/%d/accept", tradeID), accessToken, map[string]any{}, &out, idem)
	return out, err
}

func (c *Client) RejectTrade(ctx context.Context, accessToken string, tradeID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/trades/%d/reject", tradeID), accessToken, map[string]any{}, &out, "")
	return out, err
}

func (c *Client) CancelTrade(ctx context.Context, accessToken string, tradeID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/trades/%d/cancel", tradeID), accessToken, map[string]any{}, &out, "")
	return out, err
}

func (c *Client) BlackMarket(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/blackmarket", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) BuyBlackMarket(ctx context.Context, accessToken string, offerID int64, currency, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/blackmarket/%d/purchase", offerID), accessToken, map[string]any{
		"currency": currency,
	}, &out, idem)
	return out, err
}

func (c *Client) Reputation(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/reputation", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) TopTraders(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/reputation/top", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any, idem string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, method, path, accessToken, body, &out, idem)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
