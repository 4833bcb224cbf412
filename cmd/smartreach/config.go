package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/smartreach/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("  API: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Database: %s\n", cfg.Database.Driver)
	fmt.Printf("  Model: %s (api key set: %v)\n", cfg.AI.Model, cfg.AI.APIKey != "")
	fmt.Printf("  Scheduler: %v (%s)\n", cfg.Scheduler.Enabled, cfg.Scheduler.Spec)
	fmt.Printf("  Cron endpoint: %v\n", cfg.Cron.Secret != "")
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics: %s%s\n", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}

	return nil
}
