package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	Control  ControlConfig  `yaml:"control"`
	State    StateConfig    `yaml:"state"`
	Broker   BrokerConfig   `yaml:"broker"`
	Strategy StrategyConfig `yaml:"strategy"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Journal  JournalConfig  `yaml:"journal"`
}

type LoggingConfig struct {
	Level  string   `yaml:"level"`
	Output []string `yaml:"output"`
}

type ControlConfig struct {
	Path  string `yaml:"path"`
	Watch *bool  `yaml:"watch"`
}

func (c ControlConfig) WatchValue() bool {
	return c.Watch == nil || *c.Watch
}

const (
	StateBackendSQLite = "sqlite"
	StateBackendRedis  = "redis"
)

type StateConfig struct {
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type BrokerConfig struct {
	BaseURL     string        `yaml:"base_url"`
	ClientID    string        `yaml:"client_id"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

type StrategyConfig struct {
	UnderlyingSymbol string        `yaml:"underlying_symbol"`
	OptionPrefix     string        `yaml:"option_prefix"`
	ExpiryWeekday    string        `yaml:"expiry_weekday"`
	ExpiryCount      int           `yaml:"expiry_count"`
	StrikeStep       int           `yaml:"strike_step"`
	StopLossOffset   float64       `yaml:"stop_loss_offset"`
	TargetOffset     float64       `yaml:"target_offset"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	IdleInterval     time.Duration `yaml:"idle_interval"`
	CycleInterval    time.Duration `yaml:"cycle_interval"`
	ErrorBackoff     time.Duration `yaml:"error_backoff"`
	Timezone         string        `yaml:"timezone"`
	ResumeOpenTrade  *bool         `yaml:"resume_open_trade"`
}

func (s StrategyConfig) ResumeOpenTradeValue() bool {
	return s.ResumeOpenTrade == nil || *s.ResumeOpenTrade
}

// Location resolves Timezone, falling back to UTC on an empty value.
func (s StrategyConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(s.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// Weekday parses ExpiryWeekday ("thursday", "thu").
func (s StrategyConfig) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s.ExpiryWeekday))
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		if name == full || name == full[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown expiry weekday %q", s.ExpiryWeekday)
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

func (m MetricsConfig) EnabledValue() bool {
	return m.Enabled == nil || *m.Enabled
}

type JournalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	DSN       string `yaml:"dsn"`
	Schema    string `yaml:"schema"`
	QueueSize int    `yaml:"queue_size"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if len(cfg.Log.Output) == 0 {
		cfg.Log.Output = []string{"stdout", "bot.log"}
	}
	if cfg.Control.Path == "" {
		cfg.Control.Path = "control.json"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = StateBackendSQLite
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/breakout-bot.db"
	}
	if cfg.State.RedisAddr == "" {
		cfg.State.RedisAddr = "localhost:6379"
	}
	if cfg.State.RedisPrefix == "" {
		cfg.State.RedisPrefix = "breakout-bot"
	}
	if cfg.Broker.BaseURL == "" {
		cfg.Broker.BaseURL = "https://api-t1.fyers.in"
	}
	if cfg.Broker.Timeout == 0 {
		cfg.Broker.Timeout = 10 * time.Second
	}
	if cfg.Strategy.UnderlyingSymbol == "" {
		cfg.Strategy.UnderlyingSymbol = "NSE:NIFTYBANK-INDEX"
	}
	if cfg.Strategy.OptionPrefix == "" {
		cfg.Strategy.OptionPrefix = "NFO:BANKNIFTY"
	}
	if cfg.Strategy.ExpiryWeekday == "" {
		cfg.Strategy.ExpiryWeekday = "thursday"
	}
	if cfg.Strategy.ExpiryCount == 0 {
		cfg.Strategy.ExpiryCount = 4
	}
	if cfg.Strategy.StrikeStep == 0 {
		cfg.Strategy.StrikeStep = 100
	}
	if cfg.Strategy.StopLossOffset == 0 {
		cfg.Strategy.StopLossOffset = 7
	}
	if cfg.Strategy.TargetOffset == 0 {
		cfg.Strategy.TargetOffset = 10
	}
	if cfg.Strategy.PollInterval == 0 {
		cfg.Strategy.PollInterval = 2 * time.Second
	}
	if cfg.Strategy.IdleInterval == 0 {
		cfg.Strategy.IdleInterval = 5 * time.Second
	}
	if cfg.Strategy.CycleInterval == 0 {
		cfg.Strategy.CycleInterval = time.Second
	}
	if cfg.Strategy.ErrorBackoff == 0 {
		cfg.Strategy.ErrorBackoff = 5 * time.Second
	}
	if cfg.Strategy.Timezone == "" {
		cfg.Strategy.Timezone = "Asia/Kolkata"
	}
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9102"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Journal.Schema == "" {
		cfg.Journal.Schema = "public"
	}
	if cfg.Journal.QueueSize == 0 {
		cfg.Journal.QueueSize = 256
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BNF_BROKER_CLIENT_ID")); v != "" {
		cfg.Broker.ClientID = v
	}
	if v := strings.TrimSpace(os.Getenv("BNF_BROKER_ACCESS_TOKEN")); v != "" {
		cfg.Broker.AccessToken = v
	}
	if v := strings.TrimSpace(os.Getenv("BNF_TELEGRAM_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("BNF_TELEGRAM_CHAT_ID")); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("BNF_JOURNAL_DSN")); v != "" {
		cfg.Journal.DSN = v
	}
}

func validate(cfg *Config) error {
	switch cfg.State.Backend {
	case StateBackendSQLite, StateBackendRedis:
	default:
		return fmt.Errorf("state.backend %q is not supported", cfg.State.Backend)
	}
	if cfg.Broker.Timeout < 0 {
		return errors.New("broker.timeout must be >= 0")
	}
	s := cfg.Strategy
	if strings.TrimSpace(s.UnderlyingSymbol) == "" {
		return errors.New("strategy.underlying_symbol is required")
	}
	if strings.TrimSpace(s.OptionPrefix) == "" {
		return errors.New("strategy.option_prefix is required")
	}
	if _, err := s.Weekday(); err != nil {
		return fmt.Errorf("strategy.expiry_weekday: %w", err)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("strategy.timezone: %w", err)
	}
	if s.ExpiryCount <= 0 {
		return errors.New("strategy.expiry_count must be > 0")
	}
	if s.StrikeStep <= 0 {
		return errors.New("strategy.strike_step must be > 0")
	}
	if s.StopLossOffset <= 0 || s.TargetOffset <= 0 {
		return errors.New("strategy.stop_loss_offset and strategy.target_offset must be > 0")
	}
	if s.PollInterval <= 0 || s.IdleInterval <= 0 || s.CycleInterval <= 0 || s.ErrorBackoff <= 0 {
		return errors.New("strategy intervals must be > 0")
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Journal.Enabled && strings.TrimSpace(cfg.Journal.DSN) == "" {
		return errors.New("journal.dsn is required when journal is enabled")
	}
	return nil
}
