package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bnf-breakout-bot/internal/config"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.BrokerConfig{
		BaseURL:     srv.URL,
		ClientID:    "APP-100",
		AccessToken: "jwt",
		Timeout:     2 * time.Second,
	}, zap.NewNop())
}

func TestLastPriceNumeric(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/quotes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbols"); got != "NSE:NIFTYBANK-INDEX" {
			t.Errorf("unexpected symbols %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "APP-100:jwt" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"s":"ok","code":200,"d":[{"n":"NSE:NIFTYBANK-INDEX","s":"ok","v":{"lp":56050.55}}]}`))
	})
	price, err := client.LastPrice(context.Background(), "NSE:NIFTYBANK-INDEX")
	if err != nil {
		t.Fatalf("last price: %v", err)
	}
	if price.String() != "56050.55" {
		t.Fatalf("expected 56050.55, got %s", price)
	}
}

func TestLastPriceString(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"ok","d":[{"n":"NFO:BANKNIFTY26OCT56100CE","s":"ok","v":{"lp":"40.5"}}]}`))
	})
	price, err := client.LastPrice(context.Background(), "NFO:BANKNIFTY26OCT56100CE")
	if err != nil {
		t.Fatalf("last price: %v", err)
	}
	if price.String() != "40.5" {
		t.Fatalf("expected 40.5, got %s", price)
	}
}

func TestLastPriceMissingLP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"ok","d":[{"n":"NFO:X","s":"ok","v":{"lp":null}}]}`))
	})
	if _, err := client.LastPrice(context.Background(), "NFO:X"); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

func TestLastPriceInvalidSymbol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"ok","d":[{"n":"NFO:X","s":"error","v":{"errmsg":"invalid symbol"}}]}`))
	})
	if _, err := client.LastPrice(context.Background(), "NFO:X"); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestLastPriceHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"s":"error","message":"token expired"}`))
	})
	if _, err := client.LastPrice(context.Background(), "NFO:X"); err == nil {
		t.Fatalf("expected http error")
	}
}

func TestNotConfigured(t *testing.T) {
	client := New(config.BrokerConfig{BaseURL: "http://unused"}, zap.NewNop())
	if _, err := client.LastPrice(context.Background(), "NFO:X"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := client.PlaceOrder(context.Background(), MarketOrder("NFO:X", SideBuy, 1)); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPlaceOrderPayload(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/orders/sync" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"s":"ok","code":1101,"message":"Order submitted","id":"2510190001"}`))
	})
	resp, err := client.PlaceOrder(context.Background(), MarketOrder("NFO:BANKNIFTY26OCT56100CE", SideSell, 15))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if resp.ID != "2510190001" {
		t.Fatalf("unexpected order id %q", resp.ID)
	}
	if got["symbol"] != "NFO:BANKNIFTY26OCT56100CE" || got["qty"] != float64(15) {
		t.Fatalf("unexpected payload %v", got)
	}
	if got["type"] != float64(2) || got["side"] != float64(-1) {
		t.Fatalf("expected market sell, got %v", got)
	}
	if got["productType"] != "INTRADAY" || got["validity"] != "DAY" {
		t.Fatalf("unexpected product/validity %v", got)
	}
}

func TestPlaceOrderRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"s":"error","code":-50,"message":"Invalid symbol"}`))
	})
	_, err := client.PlaceOrder(context.Background(), MarketOrder("NFO:X", SideBuy, 1))
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}
