/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schulfunk/schulfunk/internal/presence"
	"github.com/schulfunk/schulfunk/internal/resolver"
	"github.com/schulfunk/schulfunk/internal/timetable"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the schedule file",
	Long:  "Load and validate the schedule file, then print what would be resolved right now",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	store, err := timetable.Load(cfg.SchedulePath)
	if err != nil {
		return fmt.Errorf("schedule invalid: %w", err)
	}

	lessons := 0
	for _, day := range timetable.Weekdays {
		for _, slot := range store.Day(day) {
			if !slot.IsGap() {
				lessons++
			}
		}
	}

	now := time.Now()
	act := resolver.Current(now, store)
	if act.Kind == resolver.KindBreak {
		if next, ok := resolver.Lookahead(now, store); ok {
			act.Next = &next
		} else {
			act = resolver.Activity{Kind: resolver.KindFreeTime}
		}
	}

	fmt.Printf("schedule %s: %d lessons, %d exceptions\n", cfg.SchedulePath, lessons, len(store.Exceptions()))
	update, emit := presence.Project(now, act, store)
	if !emit {
		fmt.Printf("current state: %s (nothing to broadcast)\n", act.Kind)
		return nil
	}
	fmt.Printf("current state: %s\n", act.Kind)
	fmt.Printf("  title:    %s\n", update.Title)
	fmt.Printf("  subtitle: %s\n", update.Subtitle)
	return nil
}
