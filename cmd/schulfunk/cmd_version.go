/*
Copyright (C) 2026 Schulfunk Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schulfunk/schulfunk/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("schulfunk %s\n", version.Version)
	if !versionCheck {
		return nil
	}

	if err := loadConfig(); err != nil {
		return err
	}
	info, err := version.CheckForUpdate(context.Background(), logger)
	if err != nil {
		return fmt.Errorf("check for update: %w", err)
	}
	if info.UpdateAvailable {
		fmt.Printf("update available: %s (%s)\n", info.LatestVersion, info.ReleaseURL)
	} else {
		fmt.Println("up to date")
	}
	return nil
}
