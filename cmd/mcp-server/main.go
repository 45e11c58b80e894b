package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pharmaguard-server/internal/app"
	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/logging"
	"github.com/pharmaguard-server/internal/mcp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pharmaguard-mcp: %v\n", err)
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
	cfg := configManager.GetConfig()

	// stdout carries the MCP protocol stream.
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	logger, logCloser, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Bootstrap(ctx, cfg, logger, app.Options{Cache: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	server := mcp.NewServer(cfg.MCP, rt.Service, rt.KnowledgeBase, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("PharmaGuard MCP server stopped")
	return nil
}
