/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schulfunk/schulfunk/internal/history"
	"github.com/schulfunk/schulfunk/internal/schulmanager"
	"github.com/schulfunk/schulfunk/internal/telemetry"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Scrape the current plan from Schulmanager",
	Long:  "Log into Schulmanager, scrape the rendered plan table and write the schedule file the serve command reads",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := cfg.RequireScraper(); err != nil {
		return err
	}

	scraper, err := schulmanager.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize scraper: %w", err)
	}

	ctx, span := telemetry.StartSpan(context.Background(), "sync", "run")
	defer span.End()

	doc, err := scraper.Scrape(ctx)
	if err != nil {
		telemetry.SyncRunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("scrape plan: %w", err)
	}

	if err := timetable.Save(cfg.SchedulePath, doc); err != nil {
		telemetry.SyncRunsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("write schedule: %w", err)
	}
	telemetry.SyncRunsTotal.WithLabelValues("ok").Inc()

	lessons := 0
	for _, day := range timetable.Weekdays {
		for _, slot := range doc.Day(day) {
			if !slot.IsGap() {
				lessons++
			}
		}
	}
	logger.Info().
		Str("path", cfg.SchedulePath).
		Int("lessons", lessons).
		Int("exceptions", len(doc.Exceptions)).
		Msg("schedule synced")

	if cfg.HistoryEnabled() {
		historyDB, err := history.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect history store: %w", err)
		}
		defer historyDB.Close()

		snapshot, err := historyDB.Record(ctx, "schulmanager", doc)
		if err != nil {
			return fmt.Errorf("record sync snapshot: %w", err)
		}
		logger.Info().Str("snapshot", snapshot.ID).Msg("sync snapshot recorded")
	}

	return nil
}
