package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loomworks/careerlens/internal/config"
	"github.com/loomworks/careerlens/internal/jobs"
	"github.com/loomworks/careerlens/internal/repository"
	"github.com/spf13/cobra"
)

// SweepCmd returns the sweep command, a one-shot run of the orphan sweeper.
func SweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete orphaned blobs",
		Long:  "Scan blob storage for objects with no matching analysis record and delete them",
		RunE:  runSweep,
	}

	cmd.Flags().Duration("grace", 0, "Override the orphan grace period (default from config)")

	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.HasS3() {
		return fmt.Errorf("blob storage not configured: CAREERLENS_S3_ENDPOINT, CAREERLENS_S3_ACCESS_KEY_ID and CAREERLENS_S3_SECRET_ACCESS_KEY are required")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s3Client, err := newS3Client(ctx, cfg)
	if err != nil {
		return err
	}

	grace := cfg.SweepGrace
	if flagGrace, _ := cmd.Flags().GetDuration("grace"); flagGrace > 0 {
		grace = flagGrace
	}

	sweeper := jobs.NewSweeperWithClock(s3Client, repository.NewAnalysisRepository(pool), grace, time.Now)
	if err := sweeper.Run(ctx); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	log.Println("sweep complete")
	return nil
}
