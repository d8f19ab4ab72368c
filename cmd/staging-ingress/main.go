// cmd/staging-ingress/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skydata/staging-ingress/pkg/config"
	"github.com/skydata/staging-ingress/pkg/pipeline"
	"github.com/skydata/staging-ingress/pkg/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "staging-ingress",
		Short:         "Batch ETL pipeline loading airline/travel CSV files into warehouse staging tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <entity> <input_csv>",
		Short: fmt.Sprintf("Clean one CSV file and load it (entity: %s)", strings.Join(pipeline.EntityNames(), ", ")),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1])
		},
	}
}

func run(entity, inputPath string) error {
	// Optional; environment variables win over the .env file.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	st, err := store.NewPostgresStore(cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("opening staging store: %w", err)
	}
	defer st.Close()

	runner, err := pipeline.NewRunner(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("creating pipeline runner: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, entity, inputPath)
	if err != nil {
		return err
	}

	// Partial load failures are reported but do not change the exit code.
	logger.Info("pipeline run finished",
		zap.String("run_id", result.RunID),
		zap.String("entity", result.Entity),
		zap.Duration("duration", result.Duration),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("clean_rows", result.CleanRows),
		zap.Int("quarantined_rows", result.QuarantinedRows),
		zap.Int("loaded_rows", result.LoadedRows),
		zap.Int("failed_uploads", result.FailedUploads),
		zap.String("run_log", result.RunLogPath))
	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.LogLevel, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
