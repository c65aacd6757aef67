package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const TradeStateKey = "trade:state"

// ErrCorrupt marks a stored trade state that cannot be decoded.
var ErrCorrupt = errors.New("trade state unreadable")

// OpenTrade is the position currently under supervision.
type OpenTrade struct {
	Symbol     string  `json:"symbol"`
	EntryPrice float64 `json:"entry"`
	Quantity   int     `json:"qty"`
}

// TradeState is owned by the engine. TradeTakenDate is an ISO timestamp of
// the entry that consumed today's trade; OpenTrade is set while a position is
// monitored.
type TradeState struct {
	TradeTakenDate *string    `json:"trade_taken_date"`
	OpenTrade      *OpenTrade `json:"open_trade"`
}

// TakenOn reports the calendar day of TradeTakenDate in loc.
func (s TradeState) TakenOn(loc *time.Location) (time.Time, bool) {
	if s.TradeTakenDate == nil {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(*s.TradeTakenDate)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		var ts time.Time
		var err error
		if layout == time.RFC3339Nano {
			ts, err = time.Parse(layout, raw)
		} else {
			ts, err = time.ParseInLocation(layout, raw, loc)
		}
		if err == nil {
			ts = ts.In(loc)
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}

// TakenToday reports whether the day's single trade has been used at now.
func (s TradeState) TakenToday(now time.Time) bool {
	day, ok := s.TakenOn(now.Location())
	if !ok {
		return false
	}
	y, m, d := now.Date()
	return day.Year() == y && day.Month() == m && day.Day() == d
}

func LoadTradeState(ctx context.Context, store Store) (TradeState, bool, error) {
	if store == nil {
		return TradeState{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, TradeStateKey)
	if err != nil {
		return TradeState{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return TradeState{}, false, nil
	}
	var st TradeState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return TradeState{}, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return st, true, nil
}

func SaveTradeState(ctx context.Context, store Store, st TradeState) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return store.Set(ctx, TradeStateKey, string(payload))
}

// EnsureTradeState writes an empty record when none exists yet.
func EnsureTradeState(ctx context.Context, store Store) error {
	_, ok, err := LoadTradeState(ctx, store)
	if err != nil || ok {
		return err
	}
	return SaveTradeState(ctx, store, TradeState{})
}
