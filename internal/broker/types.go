package broker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured = errors.New("broker client not configured")
	ErrRejected      = errors.New("broker rejected request")
	ErrNoPrice       = errors.New("no last traded price")
)

type Side int

const (
	SideBuy  Side = 1
	SideSell Side = -1
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return fmt.Sprintf("SIDE(%d)", int(s))
	}
}

const (
	OrderTypeLimit  = 1
	OrderTypeMarket = 2

	ProductIntraday = "INTRADAY"
	ValidityDay     = "DAY"
)

// OrderRequest is the order payload the broker accepts.
type OrderRequest struct {
	Symbol       string  `json:"symbol"`
	Qty          int     `json:"qty"`
	Type         int     `json:"type"`
	Side         Side    `json:"side"`
	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	Validity     string  `json:"validity"`
	DisclosedQty int     `json:"disclosedQty"`
	OfflineOrder bool    `json:"offlineOrder"`
	OrderTag     string  `json:"orderTag,omitempty"`
}

// MarketOrder builds an intraday day-validity market order.
func MarketOrder(symbol string, side Side, qty int) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Qty:         qty,
		Type:        OrderTypeMarket,
		Side:        side,
		ProductType: ProductIntraday,
		Validity:    ValidityDay,
	}
}

type OrderResponse struct {
	Status  string `json:"s"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

type quotesResponse struct {
	Status  string       `json:"s"`
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    []quoteEntry `json:"d"`
}

type quoteEntry struct {
	Name   string                     `json:"n"`
	Status string                     `json:"s"`
	Values map[string]json.RawMessage `json:"v"`
}

// lastPrice extracts "lp" from a quote entry. The field arrives as a JSON
// number or a numeric string depending on the instrument.
func (q quoteEntry) lastPrice() (decimal.Decimal, error) {
	raw, ok := q.Values["lp"]
	if !ok {
		return decimal.Zero, ErrNoPrice
	}
	return parseDecimal(raw)
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, ErrNoPrice
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return decimal.Zero, ErrNoPrice
		}
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", text, err)
	}
	return value, nil
}
