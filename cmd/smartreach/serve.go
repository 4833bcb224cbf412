package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/smartreach/internal/app"
	"github.com/foxzi/smartreach/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the SmartReach HTTP API, the metrics server and, when enabled, the due-email scheduler.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(context.Background())
}
