package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"bnf-breakout-bot/internal/alerts"
	"bnf-breakout-bot/internal/broker"
	"bnf-breakout-bot/internal/config"
	"bnf-breakout-bot/internal/control"
	"bnf-breakout-bot/internal/exec"
	"bnf-breakout-bot/internal/journal"
	"bnf-breakout-bot/internal/market"
	"bnf-breakout-bot/internal/metrics"
	"bnf-breakout-bot/internal/state"
	"bnf-breakout-bot/internal/state/redis"
	"bnf-breakout-bot/internal/state/sqlite"
	"bnf-breakout-bot/internal/strategy"

	"go.uber.org/zap"
)

// Diagnostics attached to a crash notification are cut to this many bytes.
const crashDetailLimit = 600

type ControlStore interface {
	Ensure() error
	Load() control.Record
	Save(rec control.Record) error
}

type OrderGateway interface {
	Submit(ctx context.Context, symbol string, side broker.Side, qty int, simulate bool) exec.Result
}

type TradeJournal interface {
	Start(ctx context.Context)
	Record(ev journal.TradeEvent)
	Close() error
}

type App struct {
	cfg      *config.Config
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
	control  ControlStore
	watch    func(ctx context.Context) (<-chan struct{}, error)
	changes  <-chan struct{}
	store    state.Store
	quotes   strategy.PriceReader
	resolver *strategy.Resolver
	orders   OrderGateway
	alerts   exec.Notifier
	metrics  *metrics.Metrics
	prom     *metrics.Prometheus
	journal  TradeJournal

	// stateUnreadable is set while the stored trade state cannot be read;
	// it limits the report to one notification.
	stateUnreadable bool
	// heldExit is the symbol whose exit order failed. Its monitor is not
	// resumed until the operator stops the engine or the process restarts.
	heldExit string
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Strategy.Location()
	if err != nil {
		return nil, err
	}
	weekday, err := cfg.Strategy.Weekday()
	if err != nil {
		return nil, err
	}
	store, err := openStateStore(cfg.State)
	if err != nil {
		return nil, err
	}
	journalWriter, err := journal.New(cfg.Journal, log.Named("journal"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}

	var m *metrics.Metrics
	var prom *metrics.Prometheus
	if cfg.Metrics.EnabledValue() {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	} else {
		m = metrics.NewNoop()
	}

	brokerClient := broker.New(cfg.Broker, log.Named("broker"))
	if !brokerClient.Configured() {
		log.Warn("broker credentials missing; quotes unavailable and live orders will fail")
	}
	quotes := market.NewQuotes(brokerClient, log.Named("quotes"))
	telegram := alerts.NewTelegram(cfg.Telegram, log.Named("telegram"))
	controlStore := control.NewStore(cfg.Control.Path, log.Named("control"))

	a := &App{
		cfg:     cfg,
		log:     log,
		loc:     loc,
		control: controlStore,
		store:   store,
		quotes:  quotes,
		resolver: strategy.NewResolver(quotes, strategy.ResolverConfig{
			OptionPrefix:  cfg.Strategy.OptionPrefix,
			ExpiryWeekday: weekday,
			ExpiryCount:   cfg.Strategy.ExpiryCount,
			StrikeStep:    cfg.Strategy.StrikeStep,
		}),
		orders:  exec.New(brokerClient, telegram, m, log.Named("orders")),
		alerts:  telegram,
		metrics: m,
		prom:    prom,
	}
	if journalWriter != nil {
		a.journal = journalWriter
	}
	if cfg.Control.WatchValue() {
		a.watch = controlStore.Watch
	}
	a.now = func() time.Time { return time.Now().In(a.loc) }
	return a, nil
}

func openStateStore(cfg config.StateConfig) (state.Store, error) {
	switch cfg.Backend {
	case config.StateBackendRedis:
		return redis.New(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
	default:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.New(cfg.SQLitePath)
	}
}

// Run drives the supervisor loop until ctx is cancelled. Faults inside a
// cycle are reported and never end the loop.
func (a *App) Run(ctx context.Context) error {
	defer a.close()
	if err := a.ensureFiles(ctx); err != nil {
		return err
	}
	if a.journal != nil {
		a.journal.Start(ctx)
	}
	if a.prom != nil {
		a.startMetricsServer(ctx)
	}
	if a.watch != nil {
		changes, err := a.watch(ctx)
		if err != nil {
			a.log.Warn("control watch unavailable; polling only", zap.Error(err))
		} else {
			a.changes = changes
		}
	}
	a.notify(ctx, "Bot process started (background).")
	a.log.Info("bot started",
		zap.String("underlying", a.cfg.Strategy.UnderlyingSymbol),
		zap.String("timezone", a.loc.String()),
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait, idle := a.step(ctx)
		if !a.wait(ctx, wait, idle) {
			return ctx.Err()
		}
	}
}

func (a *App) ensureFiles(ctx context.Context) error {
	if err := a.control.Ensure(); err != nil {
		return fmt.Errorf("ensure control record: %w", err)
	}
	if err := state.EnsureTradeState(ctx, a.store); err != nil {
		a.reportStateUnreadable(ctx, err)
	}
	return nil
}

// reportStateUnreadable logs and notifies once per unreadable spell. Entries
// stay suspended until the record can be read again.
func (a *App) reportStateUnreadable(ctx context.Context, err error) {
	if a.stateUnreadable {
		return
	}
	a.stateUnreadable = true
	a.log.Error("trade state unreadable; entries suspended", zap.Error(err))
	a.notify(ctx, "Trade state unreadable; entries suspended until it is repaired: "+truncate(err.Error(), 200))
}

// step runs one supervisor cycle and returns how long to wait before the
// next one, and whether the wait may be cut short by a control change.
func (a *App) step(ctx context.Context) (wait time.Duration, idle bool) {
	defer func() {
		if r := recover(); r != nil {
			a.fault(ctx, fmt.Sprintf("%v\n%s", r, debug.Stack()))
			wait, idle = a.cfg.Strategy.ErrorBackoff, false
		}
	}()
	rec := a.applyScheduledStop(ctx, a.control.Load())
	if !rec.Running() {
		if a.heldExit != "" {
			a.log.Info("operator stop releases held exit", zap.String("symbol", a.heldExit))
			a.heldExit = ""
		}
		return a.cfg.Strategy.IdleInterval, true
	}
	if err := a.cycle(ctx, rec); err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		a.fault(ctx, err.Error())
		return a.cfg.Strategy.ErrorBackoff, false
	}
	return a.cfg.Strategy.CycleInterval, false
}

func (a *App) applyScheduledStop(ctx context.Context, rec control.Record) control.Record {
	changed, err := rec.ApplyScheduledStop(a.now(), a.loc)
	if err != nil {
		a.log.Warn("ignoring unparseable stop_at", zap.Error(err))
		return rec
	}
	if !changed {
		return rec
	}
	if err := a.control.Save(rec); err != nil {
		a.log.Error("persist scheduled stop failed", zap.Error(err))
	}
	a.metrics.ScheduledStops.Inc()
	a.log.Info("scheduled stop executed")
	a.notify(ctx, "Scheduled stop executed; switching to idle.")
	return rec
}

func (a *App) fault(ctx context.Context, detail string) {
	a.metrics.CycleFaults.Inc()
	a.log.Error("supervisor cycle failed", zap.String("detail", detail))
	a.notify(ctx, "Bot crashed: "+truncate(detail, crashDetailLimit))
}

func (a *App) wait(ctx context.Context, d time.Duration, wakeOnChange bool) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	var changes <-chan struct{}
	if wakeOnChange {
		changes = a.changes
	}
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	case <-changes:
		a.log.Debug("control change observed")
	}
	return true
}

func (a *App) notify(ctx context.Context, message string) {
	if a.alerts == nil {
		return
	}
	if err := a.alerts.Send(ctx, message); err != nil {
		a.log.Warn("notification failed", zap.Error(err))
	}
}

func (a *App) record(ev journal.TradeEvent) {
	if a.journal == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = a.now()
	}
	a.journal.Record(ev)
}

func (a *App) close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("journal close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("state store close failed", zap.Error(err))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
