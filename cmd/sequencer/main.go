// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bobanetwork/op-sequencer/internal/config"
	"github.com/bobanetwork/op-sequencer/internal/logging"
	"github.com/bobanetwork/op-sequencer/internal/sequencer"
)

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

var rootCmd = &cobra.Command{
	Use:   "op-sequencer",
	Short: "Layer-2 rollup sequencer node",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sequencer version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("op-sequencer dev")
		return nil
	},
}

func run(ctx context.Context) error {
	log, err := logging.New(logLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.EmergencyHalt {
		log.Warnw("starting with emergency_halt set: assembler will not seal blocks")
	}

	node, err := sequencer.New(cfg, log)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}
	if cfg.EmergencyHalt {
		node.SetEmergencyHalt(true)
	}

	return node.Run(ctx)
}

func main() {
	rootCmd.AddCommand(versionCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
