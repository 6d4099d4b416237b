package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"waypoint/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the search tools to MCP hosts over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// stdout carries the protocol
			log := newLogger(cfg, os.Stderr)

			registry, err := newRegistry(cfg)
			if err != nil {
				return err
			}

			mcp.Version = version
			log.Info("🔌 Serving %d tools over stdio", registry.Len())
			return mcp.Serve(ctx, registry)
		},
	}
}
