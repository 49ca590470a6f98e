package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/accountsync/backend/internal/agent"
	"github.com/accountsync/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to agent config file (default: ./agent.json)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := agent.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load agent config", zap.Error(err))
	}
	if cfg.Version == "" {
		cfg.Version = version
	}

	log.Info("Starting sync agent",
		zap.String("version", cfg.Version),
		zap.String("endpoint", cfg.Endpoint),
		zap.String("engine", cfg.EngineURL()),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	bridge := agent.NewBridgeClient(cfg.Endpoint, cfg.APIKey, log)
	engine := agent.NewTallyExecutor(cfg.EngineURL(), cfg.ImportTimeout, log)
	poller := agent.NewPoller(bridge, engine, cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Poller exited with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Agent stopped")
}
