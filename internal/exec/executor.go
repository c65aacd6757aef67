package exec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bnf-breakout-bot/internal/broker"
	"bnf-breakout-bot/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderClient interface {
	PlaceOrder(ctx context.Context, order broker.OrderRequest) (broker.OrderResponse, error)
}

type Notifier interface {
	Send(ctx context.Context, message string) error
}

type Outcome string

const (
	OutcomeSimulated Outcome = "SIM"
	OutcomeLive      Outcome = "LIVE"
	OutcomeFailed    Outcome = "FAILED"
)

// Result is the gateway's only answer. Failures are carried in Err and
// never returned as a separate error value.
type Result struct {
	Outcome Outcome
	OrderID string
	Order   broker.OrderRequest
	Message string
	Err     error
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSimulated || r.Outcome == OutcomeLive
}

// Executor is the order gateway. Every Submit sends exactly one
// notification describing the attempt and its outcome. Orders are never
// retried here.
type Executor struct {
	client   OrderClient
	notifier Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
	newID    func() string
}

func New(client OrderClient, notifier Notifier, m *metrics.Metrics, log *zap.Logger) *Executor {
	if m == nil {
		m = metrics.NewNoop()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		client:   client,
		notifier: notifier,
		metrics:  m,
		log:      log,
		newID:    func() string { return "SIM-" + uuid.NewString() },
	}
}

func (e *Executor) Submit(ctx context.Context, symbol string, side broker.Side, qty int, simulate bool) (res Result) {
	order := broker.MarketOrder(symbol, side, qty)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("order submission panicked", zap.String("symbol", symbol), zap.Any("panic", r))
			res = e.fail(ctx, order, fmt.Errorf("order submission panicked: %v", r))
		}
	}()
	if simulate {
		return e.simulate(ctx, order)
	}
	if e.client == nil {
		return e.fail(ctx, order, broker.ErrNotConfigured)
	}
	resp, err := e.client.PlaceOrder(ctx, order)
	if err != nil {
		return e.fail(ctx, order, err)
	}
	e.metrics.OrdersPlaced.Inc()
	e.log.Info("order placed",
		zap.String("symbol", symbol),
		zap.Stringer("side", side),
		zap.Int("qty", qty),
		zap.String("order_id", resp.ID),
		zap.String("message", resp.Message),
	)
	e.notify(ctx, fmt.Sprintf("ORDER LIVE: %s %d %s id=%s %s", side, qty, symbol, resp.ID, resp.Message))
	return Result{Outcome: OutcomeLive, OrderID: resp.ID, Order: order, Message: resp.Message}
}

func (e *Executor) simulate(ctx context.Context, order broker.OrderRequest) Result {
	id := e.newID()
	desc, err := describe(order)
	if err != nil {
		return e.fail(ctx, order, err)
	}
	e.metrics.OrdersSimulated.Inc()
	e.log.Info("simulated order", zap.String("order_id", id), zap.String("order", desc))
	e.notify(ctx, "[SIM ORDER] "+desc)
	return Result{Outcome: OutcomeSimulated, OrderID: id, Order: order, Message: desc}
}

func (e *Executor) fail(ctx context.Context, order broker.OrderRequest, err error) Result {
	e.metrics.OrdersFailed.Inc()
	e.log.Error("order failed",
		zap.String("symbol", order.Symbol),
		zap.Stringer("side", order.Side),
		zap.Int("qty", order.Qty),
		zap.Error(err),
	)
	reason := err.Error()
	if errors.Is(err, broker.ErrNotConfigured) {
		reason = "broker client not initialized"
	}
	e.notify(ctx, fmt.Sprintf("ORDER FAILED: %s %d %s: %s", order.Side, order.Qty, order.Symbol, reason))
	return Result{Outcome: OutcomeFailed, Order: order, Err: err}
}

func (e *Executor) notify(ctx context.Context, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, message); err != nil {
		e.log.Warn("order notification failed", zap.Error(err))
	}
}

func describe(order broker.OrderRequest) (string, error) {
	payload := map[string]any{
		"symbol":      order.Symbol,
		"qty":         order.Qty,
		"type":        order.Type,
		"side":        int(order.Side),
		"productType": order.ProductType,
		"validity":    order.Validity,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
