package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pharmaguard-server/internal/api"
	"github.com/pharmaguard-server/internal/app"
	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pharmaguard-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	configManager, err := config.NewManagerWithFile(*configFile)
	if err != nil {
		return err
	}
	if err := configManager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := configManager.GetConfig()

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(ctx, cfg, logger, app.Options{Persistence: true, Cache: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	server := api.NewServer(configManager, api.Dependencies{
		Service:       rt.Service,
		Patients:      rt.Patients,
		Analyses:      rt.Analyses,
		KnowledgeBase: rt.KnowledgeBase,
		Health:        rt.Health,
	}, logger)

	logger.WithField("environment", cfg.Environment).Info("Starting PharmaGuard server")
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}
