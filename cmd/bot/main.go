package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"bnf-breakout-bot/internal/app"
	"bnf-breakout-bot/internal/config"
	"bnf-breakout-bot/internal/logging"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file; built-in defaults are used when it does not exist")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	usedDefaults := false
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err, usedDefaults = config.Default(), nil, true
	}
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log)
	if usedDefaults {
		log.Info("config file not found; using defaults", zap.String("path", *configPath))
	} else {
		log.Info("config loaded", zap.String("path", *configPath))
	}

	application, err := app.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize app", zap.Error(err))
		os.Exit(1)
	}
	log.Info("app initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("app terminated", zap.Error(err))
		os.Exit(1)
	}
	_ = log.Sync()
}
