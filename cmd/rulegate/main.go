// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/rulegate/internal/buildinfo"
	"github.com/autobrr/rulegate/internal/config"
	"github.com/autobrr/rulegate/internal/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "rulegate",
		Short:        "Editor and safety gateway for torrent automation rules",
		SilenceUsage: true,
	}

	var configPath string
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file or directory")

	rootCmd.AddCommand(runServeCommand(&configPath))
	rootCmd.AddCommand(runVersionCommand())

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), configPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Print(buildinfo.String())
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.New(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Config.Version = buildinfo.Version

	logger.Init(cfg.Config)
	cfg.WatchConfig()

	if err := cfg.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	log.Info().
		Str("version", buildinfo.Version).
		Str("config", cfg.ConfigPath()).
		Msg("rulegate starting")

	return app.Run(ctx)
}
