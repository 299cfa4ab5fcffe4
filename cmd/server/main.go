package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/campushub/campushub-server/internal/app"
	"github.com/campushub/campushub-server/internal/config"
	"github.com/campushub/campushub-server/internal/log"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	bootLogger := log.New("info")

	cfg, path, err := config.Load(bootLogger, *configPath)
	if err != nil {
		bootLogger.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting campushub server")
	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
