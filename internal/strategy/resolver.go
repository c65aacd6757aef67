package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceReader is the quote surface the resolver probes candidates with.
// A false result means the symbol has no usable price.
type PriceReader interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
}

type ResolverConfig struct {
	OptionPrefix  string
	ExpiryWeekday time.Weekday
	ExpiryCount   int
	StrikeStep    int
}

// Resolver maps a breakout to the first option contract the broker prices.
type Resolver struct {
	quotes PriceReader
	cfg    ResolverConfig
}

func NewResolver(quotes PriceReader, cfg ResolverConfig) *Resolver {
	return &Resolver{quotes: quotes, cfg: cfg}
}

// Candidates lists every symbol Resolve would probe, in probe order.
func (r *Resolver) Candidates(signal Signal, spot decimal.Decimal, today time.Time) ([]string, error) {
	opt, ok := signal.OptionType()
	if !ok {
		return nil, ErrNoSignal
	}
	strike := RoundStrike(spot, r.cfg.StrikeStep)
	var out []string
	for _, expiry := range UpcomingExpiries(today, r.cfg.ExpiryWeekday, r.cfg.ExpiryCount) {
		out = append(out, CandidateSymbols(r.cfg.OptionPrefix, expiry, strike, opt)...)
	}
	return out, nil
}

// Resolve probes candidates in order and stops at the first one that returns
// a last price. A zero price is still a resolution; the admission band
// decides whether it is tradeable.
func (r *Resolver) Resolve(ctx context.Context, signal Signal, spot decimal.Decimal, today time.Time) (Contract, error) {
	opt, ok := signal.OptionType()
	if !ok {
		return Contract{}, ErrNoSignal
	}
	strike := RoundStrike(spot, r.cfg.StrikeStep)
	for _, expiry := range UpcomingExpiries(today, r.cfg.ExpiryWeekday, r.cfg.ExpiryCount) {
		for _, symbol := range CandidateSymbols(r.cfg.OptionPrefix, expiry, strike, opt) {
			if err := ctx.Err(); err != nil {
				return Contract{}, err
			}
			premium, ok := r.quotes.LastPrice(ctx, symbol)
			if !ok {
				continue
			}
			return Contract{
				Symbol:     symbol,
				Premium:    premium,
				Strike:     strike,
				Expiry:     expiry,
				OptionType: opt,
			}, nil
		}
	}
	return Contract{}, fmt.Errorf("%s strike %d: %w", opt, strike, ErrUnresolved)
}
