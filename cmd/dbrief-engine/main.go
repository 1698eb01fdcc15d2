// Package main is the entry point for the migration engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/thewisecoder/dbrief/internal/api"
	"github.com/thewisecoder/dbrief/internal/config"
	"github.com/thewisecoder/dbrief/internal/migrator"
	"github.com/thewisecoder/dbrief/internal/session"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dbrief-engine %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting migration engine",
		slog.String("version", version),
		slog.String("address", cfg.Address()),
	)

	sessions := session.NewRegistry()
	orch := migrator.New(sessions, logger, version)
	server := api.NewServer(cfg, sessions, orch, version, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("shutting down", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("shutdown complete")
}

// newLogger builds the process-wide slog.Logger from the logging config
// (spec ambient stack: JSON structured logging, optional file rotation
// via lumberjack, mirroring the teacher's cmd/schema-registry setup).
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out *os.File = os.Stdout
	var writer interface {
		Write([]byte) (int, error)
	} = out

	if cfg.File != "" {
		writer = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(writer, opts))
	}
	return slog.New(slog.NewJSONHandler(writer, opts))
}
