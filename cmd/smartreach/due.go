package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/smartreach/internal/config"
	"github.com/foxzi/smartreach/internal/db"
	"github.com/foxzi/smartreach/internal/repository"
	"github.com/foxzi/smartreach/internal/scheduler"
)

var dueDryRun bool

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "Process due campaign enrollments once",
	Long:  `Queue the current step of every due enrollment, as the cron endpoint does. With --dry-run only list them.`,
	RunE:  runDue,
}

func init() {
	dueCmd.Flags().BoolVar(&dueDryRun, "dry-run", false, "list due enrollments without queueing")
}

func runDue(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	database, err := db.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer database.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	leads := repository.NewLeadRepository(database.DB)
	campaigns := repository.NewCampaignRepository(database.DB)
	s := scheduler.New(repository.NewEnrollmentRepository(database.DB), leads, campaigns, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	if dueDryRun {
		due, err := s.DueEnrollments(ctx, now)
		if err != nil {
			return err
		}
		for _, d := range due {
			fmt.Printf("%s  lead=%s <%s>  campaign=%s  step=%d  due=%s\n",
				d.Enrollment.ID, d.Lead.Name, d.Lead.Email, d.Campaign.Name, d.CurrentStep,
				d.Enrollment.NextSendAt.Format(time.RFC3339))
		}
		fmt.Printf("%d enrollment(s) due\n", len(due))
		return nil
	}

	res, err := s.ProcessDue(ctx, now)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
