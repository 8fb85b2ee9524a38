package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BladexZN/dashboard-c/internal/models"
	"github.com/BladexZN/dashboard-c/internal/repository"
	"github.com/BladexZN/dashboard-c/internal/service"
	"github.com/BladexZN/dashboard-c/pkg/config"
	"github.com/BladexZN/dashboard-c/pkg/database"
	"github.com/BladexZN/dashboard-c/pkg/logger"
)

type sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (*models.ArchiveSweepResult, error)
}

type sweepOutput struct {
	Command    string                     `json:"command"`
	DurationMS int64                      `json:"duration_ms"`
	Result     *models.ArchiveSweepResult `json:"result"`
}

func newRootCmd() *cobra.Command {
	var (
		dryRun    bool
		retention time.Duration
	)

	cmd := &cobra.Command{
		Use:          "archive-sweep",
		Short:        "Move requests delivered before the retention window to the trash",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg.Env, cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if retention <= 0 {
				retention = cfg.Archive.Retention
			}
			svc := service.NewArchiveService(repository.NewRequestRepository(db), logr, service.ArchiveServiceConfig{Retention: retention})
			return runSweep(cmd.Context(), svc, dryRun, cmd.OutOrStdout(), logr)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the folios that would be archived without changing anything")
	cmd.Flags().DurationVar(&retention, "retention", 0, "Override ARCHIVE_RETENTION (e.g. 720h)")
	return cmd
}

func runSweep(ctx context.Context, svc sweeper, dryRun bool, out io.Writer, logr *zap.Logger) error {
	start := time.Now()
	res, err := svc.Sweep(ctx, dryRun)
	if err != nil {
		logr.Error("archive sweep failed", zap.Error(err))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sweepOutput{
		Command:    "archive-sweep",
		DurationMS: time.Since(start).Milliseconds(),
		Result:     res,
	})
}
