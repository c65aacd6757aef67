package strategy

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRoundStrike(t *testing.T) {
	cases := map[int64]int64{
		56049: 56000,
		56050: 56100,
		55800: 55800,
		55849: 55800,
		55851: 55900,
	}
	for spot, want := range cases {
		if got := RoundStrike(decimal.NewFromInt(spot), 100); got != want {
			t.Fatalf("spot %d: expected %d, got %d", spot, want, got)
		}
	}
	if got := RoundStrike(decimal.RequireFromString("56049.99"), 100); got != 56000 {
		t.Fatalf("expected 56000 for fractional spot, got %d", got)
	}
}

func TestUpcomingExpiriesFromMonday(t *testing.T) {
	today := time.Date(2025, 1, 13, 10, 30, 0, 0, time.UTC)
	got := UpcomingExpiries(today, time.Thursday, 4)
	want := []string{"2025-01-16", "2025-01-23", "2025-01-30", "2025-02-06"}
	if len(got) != len(want) {
		t.Fatalf("expected %d expiries, got %d", len(want), len(got))
	}
	for i, d := range got {
		if d.Format("2006-01-02") != want[i] {
			t.Fatalf("expiry %d: expected %s, got %s", i, want[i], d.Format("2006-01-02"))
		}
	}
}

func TestUpcomingExpiriesIncludesToday(t *testing.T) {
	today := time.Date(2025, 1, 16, 15, 0, 0, 0, time.UTC)
	got := UpcomingExpiries(today, time.Thursday, 2)
	if got[0].Format("2006-01-02") != "2025-01-16" {
		t.Fatalf("expected today first, got %s", got[0].Format("2006-01-02"))
	}
	if got[1].Format("2006-01-02") != "2025-01-23" {
		t.Fatalf("expected next week second, got %s", got[1].Format("2006-01-02"))
	}
}

func TestCandidateSymbols(t *testing.T) {
	expiry := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)
	got := CandidateSymbols("NFO:BANKNIFTY", expiry, 56000, OptionCall)
	want := []string{"NFO:BANKNIFTY25JAN56000CE", "NFO:BANKNIFTY25JAN1656000CE"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	expiry = time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC)
	got = CandidateSymbols("NFO:BANKNIFTY", expiry, 55700, OptionPut)
	want = []string{"NFO:BANKNIFTY25FEB55700PE", "NFO:BANKNIFTY25FEB0655700PE"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

type fakeQuotes struct {
	prices map[string]decimal.Decimal
	probed []string
}

func (f *fakeQuotes) LastPrice(_ context.Context, symbol string) (decimal.Decimal, bool) {
	f.probed = append(f.probed, symbol)
	p, ok := f.prices[symbol]
	return p, ok
}

func testResolver(q PriceReader) *Resolver {
	return NewResolver(q, ResolverConfig{
		OptionPrefix:  "NFO:BANKNIFTY",
		ExpiryWeekday: time.Thursday,
		ExpiryCount:   4,
		StrikeStep:    100,
	})
}

func TestResolveFirstPricedCandidate(t *testing.T) {
	q := &fakeQuotes{prices: map[string]decimal.Decimal{
		"NFO:BANKNIFTY25JAN1656000CE": decimal.NewFromInt(38),
		"NFO:BANKNIFTY25JAN2356000CE": decimal.NewFromInt(70),
	}}
	today := time.Date(2025, 1, 13, 9, 20, 0, 0, time.UTC)
	c, err := testResolver(q).Resolve(context.Background(), SignalHigh, decimal.NewFromInt(56010), today)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.Symbol != "NFO:BANKNIFTY25JAN1656000CE" {
		t.Fatalf("unexpected symbol %s", c.Symbol)
	}
	if !c.Premium.Equal(decimal.NewFromInt(38)) || c.Strike != 56000 || c.OptionType != OptionCall {
		t.Fatalf("unexpected contract %+v", c)
	}
	wantProbed := []string{"NFO:BANKNIFTY25JAN56000CE", "NFO:BANKNIFTY25JAN1656000CE"}
	if !reflect.DeepEqual(q.probed, wantProbed) {
		t.Fatalf("expected probes %v, got %v", wantProbed, q.probed)
	}
}

func TestResolveAcceptsZeroPrice(t *testing.T) {
	q := &fakeQuotes{prices: map[string]decimal.Decimal{
		"NFO:BANKNIFTY25JAN55800PE":   decimal.Zero,
		"NFO:BANKNIFTY25JAN1655800PE": decimal.NewFromInt(41),
	}}
	today := time.Date(2025, 1, 13, 9, 20, 0, 0, time.UTC)
	c, err := testResolver(q).Resolve(context.Background(), SignalLow, decimal.NewFromInt(55790), today)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.Symbol != "NFO:BANKNIFTY25JAN55800PE" || !c.Premium.IsZero() {
		t.Fatalf("unexpected contract %s @ %s", c.Symbol, c.Premium)
	}
	if len(q.probed) != 1 {
		t.Fatalf("expected resolution at the first quoted candidate, got %v", q.probed)
	}
}

func TestResolveUnresolved(t *testing.T) {
	q := &fakeQuotes{}
	today := time.Date(2025, 1, 13, 9, 20, 0, 0, time.UTC)
	_, err := testResolver(q).Resolve(context.Background(), SignalHigh, decimal.NewFromInt(56010), today)
	if !errors.Is(err, ErrUnresolved) {
		t.Fatalf("expected ErrUnresolved, got %v", err)
	}
	if len(q.probed) != 8 {
		t.Fatalf("expected 8 probes, got %d", len(q.probed))
	}
}

func TestResolveWithoutSignal(t *testing.T) {
	q := &fakeQuotes{}
	_, err := testResolver(q).Resolve(context.Background(), SignalNone, decimal.NewFromInt(55900), time.Now())
	if !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal, got %v", err)
	}
	if len(q.probed) != 0 {
		t.Fatalf("expected no probes, got %v", q.probed)
	}
}

func TestCandidatesOrder(t *testing.T) {
	today := time.Date(2025, 1, 13, 9, 20, 0, 0, time.UTC)
	got, err := testResolver(&fakeQuotes{}).Candidates(SignalHigh, decimal.NewFromInt(56010), today)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 candidates, got %d", len(got))
	}
	if got[0] != "NFO:BANKNIFTY25JAN56000CE" || got[7] != "NFO:BANKNIFTY25FEB0656000CE" {
		t.Fatalf("unexpected candidate order %v", got)
	}
}
