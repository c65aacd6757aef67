package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bnf-breakout-bot/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Client talks to the broker REST API. Authentication is the
// "client_id:access_token" header the broker issues per trading day.
type Client struct {
	baseURL     string
	clientID    string
	accessToken string
	http        *http.Client
	log         *zap.Logger
}

func New(cfg config.BrokerConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		clientID:    strings.TrimSpace(cfg.ClientID),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.clientID != "" && c.accessToken != ""
}

// LastPrice returns the last traded price of symbol.
func (c *Client) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if !c.Configured() {
		return decimal.Zero, ErrNotConfigured
	}
	query := url.Values{}
	query.Set("symbols", symbol)
	var resp quotesResponse
	if err := c.do(ctx, http.MethodGet, "/data/quotes?"+query.Encode(), nil, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Status != "ok" {
		return decimal.Zero, fmt.Errorf("%w: quotes %s: %s", ErrRejected, resp.Status, truncate(resp.Message, 200))
	}
	for _, entry := range resp.Data {
		if entry.Name != "" && entry.Name != symbol {
			continue
		}
		if entry.Status != "" && entry.Status != "ok" {
			return decimal.Zero, fmt.Errorf("%w: quote status %s for %s", ErrRejected, entry.Status, symbol)
		}
		return entry.lastPrice()
	}
	return decimal.Zero, ErrNoPrice
}

// PlaceOrder submits order and returns the broker acknowledgement. A response
// whose status is not "ok" is reported as ErrRejected.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (OrderResponse, error) {
	if !c.Configured() {
		return OrderResponse{}, ErrNotConfigured
	}
	var resp OrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v3/orders/sync", order, &resp); err != nil {
		return OrderResponse{}, err
	}
	if resp.Status != "ok" {
		return resp, fmt.Errorf("%w: code %d: %s", ErrRejected, resp.Code, truncate(resp.Message, 200))
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", c.clientID+":"+c.accessToken)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if c.log != nil {
		c.log.Debug("broker request", zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode broker response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
