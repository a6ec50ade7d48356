// Copyright 2024-2026 Aiku AI

// Command telecord is a Telegram-Discord relay bridge. It mirrors
// messages, edits and deletions between configured chat/channel pairs,
// keeping a persistent correlation store so edits and deletes find their
// counterparts long after the original send.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// These are filled at build time with -ldflags.
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func NewTelecordCommand() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "telecord",
		Short: "Relay messages between Telegram chats and Discord channels",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configPath, debug)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the config file")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(
		newVersionCommand(),
		newExampleConfigCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "telecord %s (commit %s, built %s)\n", Version, Commit, BuildTime)
		},
	}
}

func main() {
	if err := NewTelecordCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
