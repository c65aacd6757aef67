package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"bnf-breakout-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

type Kind string

const (
	KindEntry   Kind = "entry"
	KindExit    Kind = "exit"
	KindAbandon Kind = "abandon"
)

// TradeEvent is one lifecycle step of a trade. Price is the premium the
// decision was taken on, not a fill price.
type TradeEvent struct {
	Time      time.Time
	Kind      Kind
	Symbol    string
	Side      string
	Qty       int
	Price     decimal.Decimal
	Reason    string
	Outcome   string
	OrderID   string
	Simulated bool
}

// Writer appends trade events to Postgres off the trading path. A nil
// Writer accepts and drops everything.
type Writer struct {
	db      *sql.DB
	log     *zap.Logger
	schema  string
	events  chan TradeEvent
	started atomic.Bool
	dropped atomic.Uint64
}

func New(cfg config.JournalConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("journal dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	writer := newWriter(db, schema, cfg.QueueSize, log)
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func newWriter(db *sql.DB, schema string, queueSize int, log *zap.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		db:     db,
		log:    log,
		schema: schema,
		events: make(chan TradeEvent, queueSize),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Record queues ev without blocking. Events are dropped when the queue is full.
func (w *Writer) Record(ev TradeEvent) {
	if w == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	select {
	case w.events <- ev:
	default:
		if w.dropped.Add(1) == 1 {
			w.log.Warn("journal queue full")
		}
	}
}

func (w *Writer) Dropped() uint64 {
	if w == nil {
		return 0
	}
	return w.dropped.Load()
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.events:
			w.write(ctx, ev)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("journal db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	return w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		qty INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL DEFAULT '',
		simulated BOOLEAN NOT NULL
	)`, w.table("trade_events")))
}

func (w *Writer) write(ctx context.Context, ev TradeEvent) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, kind, symbol, side, qty, price, reason, outcome, order_id, simulated
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
	)`, w.table("trade_events"))
	if _, err := w.db.ExecContext(ctx, query,
		ev.Time,
		string(ev.Kind),
		ev.Symbol,
		ev.Side,
		ev.Qty,
		ev.Price.String(),
		ev.Reason,
		ev.Outcome,
		ev.OrderID,
		ev.Simulated,
	); err != nil {
		w.log.Warn("journal insert failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
