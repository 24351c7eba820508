// Package cmd defines the jobingest command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-job-ingestor/internal/config"
	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
	"github.com/JakeFAU/realtime-job-ingestor/internal/logging"
	"github.com/JakeFAU/realtime-job-ingestor/internal/server"
)

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// App is what subcommands drive. Tests swap in a fake through newApp.
type App interface {
	Run(ctx context.Context) error
	RunOnce(ctx context.Context) (map[string]ingest.CycleCounters, error)
	Close(ctx context.Context) error
}

// newApp builds the application from a config file path.
var newApp = func(ctx context.Context, cfgFile string) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return server.Build(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "jobingest",
		Short: "Ingests job postings from job boards into a canonical store.",
		Long: `jobingest polls Loker.id, JobStreet and Glints on independent schedules,
normalizes each posting into one canonical record, and stores every posting
at most once in the configured sink.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); INGEST_* env vars override it")
	cmd.AddCommand(newRunCmd(), newOnceCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
