package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"bnf-breakout-bot/internal/broker"
	"bnf-breakout-bot/internal/config"
	"bnf-breakout-bot/internal/control"
	"bnf-breakout-bot/internal/logging"
	"bnf-breakout-bot/internal/market"
	"bnf-breakout-bot/internal/strategy"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultVerifyEnvFile = ".env"
	probeTimeout         = 30 * time.Second
)

type report struct {
	Time        string   `json:"time"`
	Underlying  string   `json:"underlying"`
	Spot        string   `json:"spot"`
	High        float64  `json:"candle_high"`
	Low         float64  `json:"candle_low"`
	Signal      string   `json:"signal"`
	Strike      int64    `json:"strike,omitempty"`
	Candidates  []string `json:"candidates,omitempty"`
	Symbol      string   `json:"symbol,omitempty"`
	Premium     string   `json:"premium,omitempty"`
	StopLoss    string   `json:"stop_loss,omitempty"`
	Target      string   `json:"target,omitempty"`
	Admitted    bool     `json:"admitted"`
	Rejection   string   `json:"rejection,omitempty"`
	Simulate    bool     `json:"test_mode"`
	OrderIntent string   `json:"order_intent,omitempty"`
}

// verify runs one read-only decision pass against the live broker and prints
// what the engine would do. It never submits an order.
func main() {
	configPath := flag.String("config", "config.yaml", "config path; defaults are used when it does not exist")
	controlPath := flag.String("control", "", "control record path (defaults to control.path from config)")
	candidatesOnly := flag.Bool("candidates", false, "print candidate symbols without probing option quotes")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		fatal(err)
	}
	log := logging.New(config.LoggingConfig{Level: cfg.Log.Level, Output: []string{"stderr"}})
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Strategy.Location()
	if err != nil {
		fatal(err)
	}
	weekday, err := cfg.Strategy.Weekday()
	if err != nil {
		fatal(err)
	}
	path := cfg.Control.Path
	if *controlPath != "" {
		path = *controlPath
	}
	rec := control.NewStore(path, log.Named("control")).Load()
	params := rec.Params

	client := broker.New(cfg.Broker, log.Named("broker"))
	if !client.Configured() {
		fatal(errors.New("BNF_BROKER_CLIENT_ID and BNF_BROKER_ACCESS_TOKEN are required"))
	}
	quotes := market.NewQuotes(client, log.Named("quotes"))
	resolver := strategy.NewResolver(quotes, strategy.ResolverConfig{
		OptionPrefix:  cfg.Strategy.OptionPrefix,
		ExpiryWeekday: weekday,
		ExpiryCount:   cfg.Strategy.ExpiryCount,
		StrikeStep:    cfg.Strategy.StrikeStep,
	})

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	now := time.Now().In(loc)

	spot, ok, err := spotOverride("BNF_VERIFY_SPOT")
	if err != nil {
		fatal(err)
	}
	if !ok {
		spot, ok = quotes.LastPrice(ctx, cfg.Strategy.UnderlyingSymbol)
		if !ok {
			fatal(fmt.Errorf("no last price for %s", cfg.Strategy.UnderlyingSymbol))
		}
	}

	out := report{
		Time:       control.FormatTimestamp(now, loc),
		Underlying: cfg.Strategy.UnderlyingSymbol,
		Spot:       spot.String(),
		High:       params.BreakoutHigh,
		Low:        params.BreakoutLow,
		Simulate:   params.Simulate,
	}
	signal := strategy.Evaluate(spot.InexactFloat64(), params.BreakoutLow, params.BreakoutHigh)
	out.Signal = string(signal)
	if signal == strategy.SignalNone {
		out.Rejection = strategy.ErrNoSignal.Error()
		emit(out)
		return
	}
	out.Strike = strategy.RoundStrike(spot, cfg.Strategy.StrikeStep)
	if *candidatesOnly {
		out.Candidates, _ = resolver.Candidates(signal, spot, now)
		emit(out)
		return
	}

	contract, err := resolver.Resolve(ctx, signal, spot, now)
	if err != nil {
		log.Warn("resolution failed", zap.Error(err))
		out.Rejection = err.Error()
		emit(out)
		return
	}
	levels := strategy.NewLevels(contract.Premium, cfg.Strategy.StopLossOffset, cfg.Strategy.TargetOffset)
	out.Symbol = contract.Symbol
	out.Premium = contract.Premium.String()
	out.StopLoss = levels.StopLoss.String()
	out.Target = levels.Target.String()
	if err := strategy.CheckAdmission(contract.Premium, params.PremiumMin, params.PremiumMax); err != nil {
		out.Rejection = err.Error()
		emit(out)
		return
	}
	out.Admitted = true
	intent, err := json.Marshal(broker.MarketOrder(contract.Symbol, broker.SideBuy, params.Quantity))
	if err != nil {
		fatal(err)
	}
	out.OrderIntent = string(intent)
	emit(out)
}

func spotOverride(key string) (decimal.Decimal, bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return decimal.Zero, false, nil
	}
	parsed, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, true, nil
}

func emit(r report) {
	pretty, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(pretty))
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
