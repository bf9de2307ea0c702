package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := LoadDotEnv(); err != nil {
		Logger.Warnf("%v", err)
	}
	if level, ok := os.LookupEnv("LOG_LEVEL"); ok {
		SetLogLevel(level)
	}
	defer Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		Logger.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := DefaultConfig()
	root := &cobra.Command{
		Use:   "obfuscation-benchmark -t <paths>...",
		Short: "Benchmark Python obfuscation tools",
		Long: `obfuscation-benchmark applies a set of Python obfuscation and packaging
tools to test programs, runs every produced artifact several times and compares
execution time, startup time, peak memory and code size against the original.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// -t a.py b.py: arguments after the first test file are test files too
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.TestFiles = append(cfg.TestFiles, args...)
			return runBenchmark(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringSliceVarP(&cfg.TestFiles, "test-files", "t", nil,
		"Python test programs to benchmark")
	flags.IntVarP(&cfg.Iterations, "iterations", "i", cfg.Iterations,
		"Number of measured runs per tool")
	flags.IntVar(&cfg.Warmup, "warmup", cfg.Warmup,
		"Number of unmeasured runs before the measured ones")
	flags.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir,
		"Directory for reports and charts")
	flags.StringSliceVar(&cfg.DisableTools, "disable-tools", nil,
		"Tools to skip (e.g. pyarmor,cython)")
	flags.StringVar(&cfg.Python, "python", cfg.Python,
		"Python interpreter used to run tools and artifacts")
	flags.BoolVar(&cfg.Install, "install", cfg.Install,
		"Install missing tools with pip")
	flags.BoolVar(&cfg.KeepWorkspace, "keep-workspace", cfg.KeepWorkspace,
		"Keep the temporary workspace with the produced artifacts")
	flags.BoolVar(&cfg.ClearCaches, "clear-caches", cfg.ClearCaches,
		"Drop filesystem caches before every iteration (needs sudo)")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout,
		"Timeout of a single iteration")
	flags.DurationVar(&cfg.SampleInterval, "sample-interval", cfg.SampleInterval,
		"Memory sampling interval")
	flags.StringVar(&cfg.ToolsConfig, "tools-config", cfg.ToolsConfig,
		"YAML file with tool overrides")
	flags.StringVar(&cfg.ResultsDb, "results-db", cfg.ResultsDb,
		"Results database (libsql:// URL or sqlite file)")
	flags.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket,
		"Upload the output directory to this S3 bucket")
	flags.StringVar(&cfg.S3.Prefix, "s3-prefix", cfg.S3.Prefix,
		"Key prefix for uploaded reports")
	_ = root.MarkFlagRequired("test-files")

	root.AddCommand(newToolsCmd())
	return root
}

func newToolsCmd() *cobra.Command {
	var (
		python      string
		toolsConfig string
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List known tools with their status and version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := newRegistry(toolsConfig, nil)
			if err != nil {
				return err
			}
			env, err := NewToolEnv(cmd.Context(), python)
			if err != nil {
				return err
			}
			system := &System{registry: registry, env: env}
			_, infos := system.PrepareTools(cmd.Context())
			return printTools(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().StringVar(&python, "python", StringEnv("BENCHMARK_PYTHON", "python3"),
		"Python interpreter used to run tools")
	cmd.Flags().StringVar(&toolsConfig, "tools-config", StringEnv("BENCHMARK_TOOLS_CONFIG", ""),
		"YAML file with tool overrides")
	return cmd
}

func printTools(w io.Writer, infos []ToolInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tSTATUS\tVERSION\tDESCRIPTION")
	for _, info := range infos {
		status := "ready"
		if !info.Enabled {
			status = "disabled: " + info.Reason
		}
		fmt.Fprintf(tw, "%v\t%v\t%v\t%v\n", info.Name, status, info.Version, info.Description)
	}
	return tw.Flush()
}

func newRegistry(toolsConfig string, disabled []string) (*Registry, error) {
	registry := DefaultRegistry()
	if toolsConfig != "" {
		config, err := LoadToolsConfig(toolsConfig)
		if err != nil {
			return nil, err
		}
		if err := registry.ApplyConfig(config); err != nil {
			return nil, err
		}
	}
	for _, name := range disabled {
		if err := registry.Disable(name, "disabled by --disable-tools"); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func runBenchmark(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	registry, err := newRegistry(cfg.ToolsConfig, cfg.DisableTools)
	if err != nil {
		return err
	}
	env, err := NewToolEnv(ctx, cfg.Python)
	if err != nil {
		return fmt.Errorf("failed to detect python: %w", err)
	}
	Logger.Infof("using %v (python %v)", env.Python, env.Version)

	id := uuid.NewString()
	var errs []error

	storage := NewStorage(cfg.Turso)
	var db *sql.DB
	if cfg.ResultsDb != "" || storage.Remote() {
		var link string
		db, link, err = storage.OpenResultsDb(cfg.ResultsDb, id)
		if err != nil {
			Logger.Errorf("results will not be stored: %v", err)
			errs = append(errs, err)
			db = nil
		} else {
			defer db.Close()
			Logger.Infof("storing results in %v", link)
		}
	}

	system := &System{
		registry: registry,
		benchmark: Benchmark{
			Warmup:         cfg.Warmup,
			Iterations:     cfg.Iterations,
			ClearCaches:    cfg.ClearCaches,
			Timeout:        cfg.Timeout,
			SampleInterval: cfg.SampleInterval,
		},
		env:           env,
		storage:       storage,
		db:            db,
		id:            id,
		install:       cfg.Install,
		keepWorkspace: cfg.KeepWorkspace,
	}
	results, err := system.Run(ctx, cfg.TestFiles)
	if err != nil {
		Logger.Errorf("benchmark interrupted: %v", err)
		errs = append(errs, err)
	}

	if err := GenerateReports(cfg.OutputDir, results); err != nil {
		errs = append(errs, err)
	} else {
		Logger.Infof("reports written to %v", cfg.OutputDir)
	}

	if cfg.S3.Bucket != "" {
		publisher, err := NewPublisher(ctx, cfg.S3)
		if err != nil {
			errs = append(errs, err)
		} else if _, err := publisher.Publish(ctx, cfg.OutputDir, id); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish reports: %w", err))
		}
	}
	return errors.Join(errs...)
}
