package app

import (
	"context"
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

// monitor supervises trade until an exit is demanded, then submits the exit
// order. It checks once immediately and then every poll interval. Cancelling
// ctx leaves open_trade in place for the next process to resume.
func (a *App) monitor(ctx context.Context, trade state.OpenTrade, entry decimal.Decimal) error {
	levels := strategy.NewLevels(entry, a.cfg.Strategy.StopLossOffset, a.cfg.Strategy.TargetOffset)
	a.notify(ctx, fmt.Sprintf("ENTRY=%s, SL=%s, TARGET=%s for %s", levels.Entry, levels.StopLoss, levels.Target, trade.Symbol))
	a.log.Info("monitoring position",
		zap.String("symbol", trade.Symbol),
		zap.Stringer("entry", levels.Entry),
		zap.Stringer("stop_loss", levels.StopLoss),
		zap.Stringer("target", levels.Target),
	)
	m := strategy.NewMonitor(levels)
	ticker := time.NewTicker(a.cfg.Strategy.PollInterval)
	defer ticker.Stop()
	for {
		rec, obs := a.observe(ctx, trade.Symbol)
		if next := m.Observe(obs); next.Exiting() {
			return a.exit(ctx, m, trade, next, obs, rec.Params.Simulate)
		}
		select {
		case <-ctx.Done():
			a.log.Info("monitor interrupted; open trade kept", zap.String("symbol", trade.Symbol))
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// observe re-reads the control record (applying an elapsed scheduled stop)
// and, only while running, fetches the current premium.
func (a *App) observe(ctx context.Context, symbol string) (control.Record, strategy.Observation) {
	rec := a.applyScheduledStop(ctx, a.control.Load())
	obs := strategy.Observation{Running: rec.Running()}
	if !obs.Running {
		return rec, obs
	}
	premium, ok := a.quotes.LastPrice(ctx, symbol)
	if !ok {
		a.log.Debug("premium unavailable", zap.String("symbol", symbol))
		return rec, obs
	}
	obs.Premium, obs.HasPremium = premium, true
	return rec, obs
}

func (a *App) exit(ctx context.Context, m *strategy.Monitor, trade state.OpenTrade, reason strategy.State, obs strategy.Observation, simulate bool) error {
	var label string
	switch reason {
	case strategy.StateExitStopLoss:
		label = "stop_loss"
		a.metrics.ExitStopLoss.Inc()
		a.notify(ctx, fmt.Sprintf("SL HIT %s @ %s", trade.Symbol, obs.Premium))
	case strategy.StateExitTarget:
		label = "target"
		a.metrics.ExitTarget.Inc()
		a.notify(ctx, fmt.Sprintf("TARGET HIT %s @ %s", trade.Symbol, obs.Premium))
	default:
		label = "operator_stop"
		a.metrics.ExitOperatorStop.Inc()
		a.notify(ctx, "Stop requested during open trade. Closing position if possible.")
	}
	a.log.Info("exit triggered",
		zap.String("symbol", trade.Symbol),
		zap.String("reason", label),
		zap.Stringer("premium", obs.Premium),
	)

	res := a.orders.Submit(ctx, trade.Symbol, broker.SideSell, trade.Quantity, simulate)
	m.Apply(strategy.EventExitSubmitted)
	a.record(journal.TradeEvent{
		Kind:      journal.KindExit,
		Symbol:    trade.Symbol,
		Side:      broker.SideSell.String(),
		Qty:       trade.Quantity,
		Price:     obs.Premium,
		Reason:    label,
		Outcome:   string(res.Outcome),
		OrderID:   res.OrderID,
		Simulated: simulate,
	})
	if !res.OK() {
		a.metrics.ExitFailed.Inc()
		a.heldExit = trade.Symbol
		a.log.Error("exit order failed; open trade held until operator stop", zap.String("symbol", trade.Symbol), zap.Error(res.Err))
		return nil
	}
	a.heldExit = ""

	st, _, err := state.LoadTradeState(ctx, a.store)
	if err != nil {
		return fmt.Errorf("load trade state after exit: %w", err)
	}
	st.OpenTrade = nil
	if err := state.SaveTradeState(ctx, a.store, st); err != nil {
		return fmt.Errorf("clear open trade %s: %w", trade.Symbol, err)
	}
	a.log.Info("position closed", zap.String("symbol", trade.Symbol), zap.String("reason", label), zap.String("order_id", res.OrderID))
	return nil
}
