package market

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceSource is the broker surface the gateway reads from.
type PriceSource interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Quotes is the quote gateway. Every broker failure, malformed response or
// panic in the source is reported as a missing price; nothing propagates.
type Quotes struct {
	src PriceSource
	log *zap.Logger
}

func NewQuotes(src PriceSource, log *zap.Logger) *Quotes {
	if log == nil {
		log = zap.NewNop()
	}
	return &Quotes{src: src, log: log}
}

func (q *Quotes) LastPrice(ctx context.Context, symbol string) (price decimal.Decimal, ok bool) {
	if q == nil || q.src == nil {
		return decimal.Zero, false
	}
	defer func() {
		if r := recover(); r != nil {
			q.log.Warn("quote source panicked", zap.String("symbol", symbol), zap.Any("panic", r))
			price, ok = decimal.Zero, false
		}
	}()
	p, err := q.src.LastPrice(ctx, symbol)
	if err != nil {
		q.log.Debug("quote unavailable", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero, false
	}
	return p, true
}
