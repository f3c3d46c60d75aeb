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
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sync snapshots",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum snapshots to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if !cfg.HistoryEnabled() {
		return fmt.Errorf("history disabled: SCHULFUNK_DB_DSN is not set")
	}

	historyDB, err := history.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect history store: %w", err)
	}
	defer historyDB.Close()

	snapshots, err := historyDB.Recent(context.Background(), historyLimit)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		fmt.Println("no sync snapshots recorded")
		return nil
	}

	for _, snap := range snapshots {
		fmt.Printf("%s  %s  source=%s  lessons=%d  exceptions=%d\n",
			snap.CreatedAt.Format("2006-01-02 15:04:05"),
			snap.ID, snap.Source, snap.LessonCount, snap.ExceptionCount)
	}
	return nil
}
