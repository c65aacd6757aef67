package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bnf-breakout-bot/internal/broker"
	"bnf-breakout-bot/internal/control"
	"bnf-breakout-bot/internal/journal"
	"bnf-breakout-bot/internal/state"
	"bnf-breakout-bot/internal/strategy"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// cycle is one running pass: recover a lingering position, honour the
// one-trade-per-day rule, then evaluate and take an entry. A taken entry
// blocks here until the position is closed.
func (a *App) cycle(ctx context.Context, rec control.Record) error {
	st, _, err := state.LoadTradeState(ctx, a.store)
	if err != nil {
		if errors.Is(err, state.ErrCorrupt) {
			a.reportStateUnreadable(ctx, err)
			return nil
		}
		return fmt.Errorf("load trade state: %w", err)
	}
	if a.stateUnreadable {
		a.stateUnreadable = false
		a.log.Info("trade state readable again")
	}
	now := a.now()
	if st.OpenTrade != nil {
		handled, err := a.recoverOpenTrade(ctx, st, now)
		if handled || err != nil {
			return err
		}
		st.OpenTrade = nil
	}
	if st.TakenToday(now) {
		a.log.Debug("trade already taken today")
		return nil
	}
	return a.enter(ctx, rec, st, now)
}

func (a *App) enter(ctx context.Context, rec control.Record, st state.TradeState, now time.Time) error {
	underlying := a.cfg.Strategy.UnderlyingSymbol
	spot, ok := a.quotes.LastPrice(ctx, underlying)
	if !ok {
		a.log.Info("reference price unavailable", zap.String("symbol", underlying))
		return nil
	}
	p := rec.Params
	signal := strategy.Evaluate(spot.InexactFloat64(), p.BreakoutLow, p.BreakoutHigh)
	if signal == strategy.SignalNone {
		a.log.Debug("no breakout", zap.Stringer("price", spot))
		return nil
	}
	a.metrics.Signals.Inc()
	a.log.Info("breakout signal",
		zap.String("signal", string(signal)),
		zap.Stringer("price", spot),
		zap.Float64("high", p.BreakoutHigh),
		zap.Float64("low", p.BreakoutLow),
	)

	contract, err := a.resolver.Resolve(ctx, signal, spot, now)
	if err != nil {
		if !errors.Is(err, strategy.ErrUnresolved) {
			return err
		}
		strike := strategy.RoundStrike(spot, a.cfg.Strategy.StrikeStep)
		a.metrics.ResolutionFailed.Inc()
		a.log.Warn("symbol resolution failed", zap.String("signal", string(signal)), zap.Int64("strike", strike))
		a.notify(ctx, fmt.Sprintf("Symbol resolution failed for direction %s strike %d", signal, strike))
		return nil
	}
	if err := strategy.CheckAdmission(contract.Premium, p.PremiumMin, p.PremiumMax); err != nil {
		a.metrics.AdmissionRejected.Inc()
		a.log.Info("premium outside admission band",
			zap.String("symbol", contract.Symbol),
			zap.Stringer("premium", contract.Premium),
			zap.Float64("min", p.PremiumMin),
			zap.Float64("max", p.PremiumMax),
		)
		return nil
	}

	res := a.orders.Submit(ctx, contract.Symbol, broker.SideBuy, p.Quantity, p.Simulate)
	a.record(journal.TradeEvent{
		Kind:      journal.KindEntry,
		Symbol:    contract.Symbol,
		Side:      broker.SideBuy.String(),
		Qty:       p.Quantity,
		Price:     contract.Premium,
		Reason:    string(signal),
		Outcome:   string(res.Outcome),
		OrderID:   res.OrderID,
		Simulated: p.Simulate,
	})
	if !res.OK() {
		a.metrics.EntryFailed.Inc()
		a.log.Warn("entry order failed", zap.String("symbol", contract.Symbol), zap.Error(res.Err))
		return nil
	}

	stamp := control.FormatTimestamp(now, a.loc)
	trade := state.OpenTrade{
		Symbol:     contract.Symbol,
		EntryPrice: contract.Premium.InexactFloat64(),
		Quantity:   p.Quantity,
	}
	st.TradeTakenDate = &stamp
	st.OpenTrade = &trade
	if err := state.SaveTradeState(ctx, a.store, st); err != nil {
		return fmt.Errorf("persist open trade %s: %w", contract.Symbol, err)
	}
	a.log.Info("position opened",
		zap.String("symbol", contract.Symbol),
		zap.Stringer("premium", contract.Premium),
		zap.Int("qty", p.Quantity),
		zap.String("order_id", res.OrderID),
	)
	return a.monitor(ctx, trade, contract.Premium)
}

// recoverOpenTrade handles an open_trade left by an earlier cycle or process.
// A trade opened today is resumed under the monitor when enabled, unless its
// exit order already failed in this process; one from an earlier session is
// abandoned. handled is true when the cycle is finished.
func (a *App) recoverOpenTrade(ctx context.Context, st state.TradeState, now time.Time) (handled bool, err error) {
	trade := *st.OpenTrade
	if st.TakenToday(now) {
		if !a.cfg.Strategy.ResumeOpenTradeValue() {
			return false, nil
		}
		if a.heldExit == trade.Symbol {
			a.log.Debug("open trade held after failed exit", zap.String("symbol", trade.Symbol))
			return true, nil
		}
		entry := decimal.NewFromFloat(trade.EntryPrice)
		a.log.Info("resuming open trade",
			zap.String("symbol", trade.Symbol),
			zap.Stringer("entry", entry),
			zap.Int("qty", trade.Quantity),
		)
		a.notify(ctx, fmt.Sprintf("Resuming open trade %s qty=%d entry=%s", trade.Symbol, trade.Quantity, entry))
		return true, a.monitor(ctx, trade, entry)
	}
	a.log.Warn("abandoning open trade from an earlier session",
		zap.String("symbol", trade.Symbol),
		zap.Int("qty", trade.Quantity),
	)
	a.notify(ctx, fmt.Sprintf("Abandoning open trade %s from an earlier session; verify the position with the broker.", trade.Symbol))
	a.record(journal.TradeEvent{
		Kind:   journal.KindAbandon,
		Symbol: trade.Symbol,
		Side:   broker.SideSell.String(),
		Qty:    trade.Quantity,
		Price:  decimal.NewFromFloat(trade.EntryPrice),
		Reason: "stale_session",
	})
	st.OpenTrade = nil
	if err := state.SaveTradeState(ctx, a.store, st); err != nil {
		return true, fmt.Errorf("clear stale open trade: %w", err)
	}
	return false, nil
}
