package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alpinedata/chairlift/internal/pipeline"
	"github.com/alpinedata/chairlift/pkg/buffer"
	"github.com/alpinedata/chairlift/pkg/config"
	"github.com/alpinedata/chairlift/pkg/logger"
	"github.com/alpinedata/chairlift/pkg/warehouse"
)

var version = "0.1.0"

func main() {
	// Load .env if present; credentials usually live there.
	_ = godotenv.Load()

	var configFile string

	root := &cobra.Command{
		Use:   "chairlift",
		Short: "Chairlift - synthetic ski resort data pipeline",
		Long: `Chairlift simulates a ski resort operation (lift rides, resort tickets,
season passes), buffers the generated events durably on disk, and streams
them into Snowflake through Snowpipe Streaming. Offset tokens tie buffered
rows to committed batches, so a crash never loses or double-lands a row.`,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Chairlift v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var dryRun bool
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the warehouse objects (tables, pipes, dynamic tables)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if !dryRun {
				if err := cfg.ValidateSnowflake(); err != nil {
					return err
				}
			}
			return warehouse.NewSetup(cfg.Snowflake).EnsureObjects(cmd.Context(), dryRun)
		},
	}
	setupCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the DDL without executing it")
	root.AddCommand(setupCmd)

	root.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Run only the simulation, writing events to the local buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), configFile, true, false)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "stream",
		Short: "Run only the streamers, shipping buffered events to Snowflake",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), configFile, false, true)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the generator and the streamers together",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), configFile, true, true)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates the config, then initializes logging.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Development: cfg.Observability.Development,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, configFile string, withGenerator, withStreamers bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if withStreamers {
		if err := cfg.ValidateSnowflake(); err != nil {
			return err
		}
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Info("starting chairlift",
		zap.String("version", version),
		zap.String("buffer_dir", cfg.Buffer.Dir),
		zap.String("speed", cfg.Simulation.Speed))

	buf, err := buffer.Open(cfg.Buffer.Dir)
	if err != nil {
		return err
	}
	defer func() { _ = buf.Close() }()

	runner := pipeline.NewRunner(cfg, buf, withGenerator, withStreamers)
	return runner.Run(ctx)
}
