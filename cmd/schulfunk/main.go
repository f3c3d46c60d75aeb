/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/schulfunk/schulfunk/internal/config"
	"github.com/schulfunk/schulfunk/internal/discord"
	"github.com/schulfunk/schulfunk/internal/events"
	"github.com/schulfunk/schulfunk/internal/history"
	"github.com/schulfunk/schulfunk/internal/logbuffer"
	"github.com/schulfunk/schulfunk/internal/logging"
	"github.com/schulfunk/schulfunk/internal/poller"
	"github.com/schulfunk/schulfunk/internal/server"
	"github.com/schulfunk/schulfunk/internal/telemetry"
	"github.com/schulfunk/schulfunk/internal/timetable"
	"github.com/schulfunk/schulfunk/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
	logBuf *logbuffer.Buffer
)

var rootCmd = &cobra.Command{
	Use:   "schulfunk",
	Short: "Schulfunk - school timetable presence broadcaster",
	Long:  "Schulfunk resolves the current lesson from a weekly timetable and broadcasts it as a Discord presence, with a local status API.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the presence poller and status API",
	Long:  "Start the presence poller, the Discord sink and the HTTP status API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBuf = logbuffer.New(1000)
	logger = logging.SetupWithWriter(cfg.Environment, logbuffer.NewWriter(logBuf))

	for _, warning := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warning)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := cfg.RequireSink(); err != nil {
		return err
	}

	logger.Info().Msg("Schulfunk starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "schulfunk",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	store, err := timetable.Load(cfg.SchedulePath)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	bus := events.NewBus()

	var historyDB *history.Store
	if cfg.HistoryEnabled() {
		historyDB, err = history.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect history store: %w", err)
		}
		defer func() {
			if err := historyDB.Close(); err != nil {
				logger.Error().Err(err).Msg("history store close failed")
			}
		}()
	}

	sink := discord.NewSink(discord.Config{
		ClientID:   cfg.DiscordClientID,
		LargeImage: cfg.DiscordLargeImage,
		LargeText:  cfg.DiscordLargeText,
	}, logger)

	pol := poller.New(store, sink, bus, poller.Options{
		TickInterval:  cfg.PollInterval,
		RetryInterval: cfg.SinkRetryInterval,
	}, logger)

	srv := server.New(cfg, store, bus, logBuf, historyDB, logger)
	httpServer := srv.HTTPServer()

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	defer cancelPoll()
	go func() {
		if err := pol.Run(pollCtx); err != nil && pollCtx.Err() == nil {
			logger.Fatal().Err(err).Msg("poller error")
		}
	}()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	cancelPoll()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("Schulfunk stopped")
	return nil
}
