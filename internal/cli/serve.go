// Package cli holds the careerlensd commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/loomworks/careerlens/internal/analyzer"
	"github.com/loomworks/careerlens/internal/api/handlers"
	"github.com/loomworks/careerlens/internal/config"
	"github.com/loomworks/careerlens/internal/extract"
	"github.com/loomworks/careerlens/internal/jobs"
	"github.com/loomworks/careerlens/internal/openai"
	"github.com/loomworks/careerlens/internal/repository"
	"github.com/loomworks/careerlens/internal/server"
	"github.com/loomworks/careerlens/internal/service"
	"github.com/loomworks/careerlens/internal/storage"
	"github.com/loomworks/careerlens/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis API server",
		Long:  "Start the careerlens API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-sweep", false, "Disable the background orphan sweeper")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasS3() {
		return fmt.Errorf("blob storage not configured: CAREERLENS_S3_ENDPOINT, CAREERLENS_S3_ACCESS_KEY_ID and CAREERLENS_S3_SECRET_ACCESS_KEY are required")
	}
	s3Client, err := newS3Client(ctx, cfg)
	if err != nil {
		return err
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

	if !cfg.HasOpenAI() {
		return fmt.Errorf("completion service not configured: CAREERLENS_OPENAI_API_KEY is required")
	}
	completionClient := openai.NewClient(cfg.OpenAIAPIKey)

	resumeAnalyzer := analyzer.NewAnalyzerWithConfig(completionClient, analyzer.Config{
		ChunkSize:   cfg.ChunkSize,
		MapWorkers:  cfg.MapWorkers,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.Temperature,
	})

	analysisRepo := repository.NewAnalysisRepository(pool)
	store := service.NewStore(s3Client, analysisRepo)
	extractor := extract.NewExtractor()

	var sweepWorker *jobs.Worker
	noSweep, _ := cmd.Flags().GetBool("no-sweep")
	if !noSweep && cfg.SweepInterval > 0 {
		sweeper := jobs.NewSweeperWithClock(s3Client, analysisRepo, cfg.SweepGrace, time.Now)
		sweepWorker = jobs.NewWorker(sweeper, cfg.SweepInterval)
		go sweepWorker.Start(ctx)
	}

	if len(cfg.APITokens) == 0 {
		log.Println("warning: no API tokens configured, all requests will be rejected")
	}
	validator := service.NewStaticTokenValidator(cfg.APITokens)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   validator,
		AnalysisHandler: handlers.NewAnalysisHandler(extractor, resumeAnalyzer, store),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if sweepWorker != nil {
		sweepWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newS3Client(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	return s3Client, nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
