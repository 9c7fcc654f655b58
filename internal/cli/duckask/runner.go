// Package duckask wires configuration, the data store, the generator and the
// agent into the duckask command line.
package duckask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duckmesh/duckask/internal/agent"
	"github.com/duckmesh/duckask/internal/config"
	"github.com/duckmesh/duckask/internal/dataset"
	"github.com/duckmesh/duckask/internal/observability"
	"github.com/duckmesh/duckask/internal/query"
)

type Options struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Lookup config.LookupFunc

	OpenStore       StoreFactory
	NewGenerator    GeneratorFactory
	OpenObjectStore ObjectStoreFactory
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Run executes the command line and returns the process exit code: 0 on
// success, 2 on usage errors and 1 on anything else.
func Run(ctx context.Context, args []string, opts Options) int {
	opts = withDefaults(opts)

	root := newRootCommand(opts)
	root.SetArgs(args)
	root.SetIn(opts.Stdin)
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) {
			return 2
		}
		return 1
	}
	return 0
}

func withDefaults(opts Options) Options {
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Lookup == nil {
		opts.Lookup = os.LookupEnv
	}
	if opts.OpenStore == nil {
		opts.OpenStore = OpenStore
	}
	if opts.NewGenerator == nil {
		opts.NewGenerator = NewGenerator
	}
	if opts.OpenObjectStore == nil {
		opts.OpenObjectStore = OpenObjectStore
	}
	return opts
}

type rootFlags struct {
	configPath  string
	memoryLimit int
	dataset     string
	plain       bool
}

func newRootCommand(opts Options) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "duckask",
		Short: "Ask questions about per-country tables in plain language",
		Long: "duckask turns questions into SELECT statements, runs them against the configured " +
			"store and retries once with a corrected statement when execution fails.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.plain {
				pterm.DisableStyling()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, opts, flags)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "YAML file with DUCKASK_* settings (environment wins)")
	root.PersistentFlags().BoolVar(&flags.plain, "plain", false, "Disable colors and styling")
	root.Flags().IntVar(&flags.memoryLimit, "memory-limit", 0, "Number of past interactions to remember (skips the prompt)")
	root.Flags().StringVar(&flags.dataset, "dataset", "", "Start with this 2-letter country code")

	root.AddCommand(newSeedCommand(opts, flags))
	return root
}

func loadConfig(cmd *cobra.Command, opts Options, flags *rootFlags) (config.Config, error) {
	overrides := map[string]string{}
	if cmd.Flags().Changed("memory-limit") {
		overrides["DUCKASK_MEMORY_LIMIT"] = strconv.Itoa(flags.memoryLimit)
	}
	lookups := []config.LookupFunc{config.MapLookup(overrides), opts.Lookup}

	configPath := flags.configPath
	if configPath == "" {
		configPath, _ = opts.Lookup("DUCKASK_CONFIG_FILE")
	}
	if strings.TrimSpace(configPath) != "" {
		fileLookup, err := config.FileLookup(configPath)
		if err != nil {
			return config.Config{}, err
		}
		lookups = append(lookups, fileLookup)
	}
	return config.Load("duckask", config.ChainLookup(lookups...))
}

func runShell(cmd *cobra.Command, opts Options, flags *rootFlags) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, opts, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg, opts.Stderr)

	if cfg.Observability.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		done, err := observability.ServeMetrics(metricsCtx, cfg.Observability.MetricsAddr, logger)
		if err != nil {
			cancel()
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			cancel()
			<-done
		}()
	}

	store, err := opts.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", slog.Any("error", err))
		}
	}()

	generator, err := opts.NewGenerator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init %s generator: %w", cfg.AI.Provider, err)
	}

	logger.Debug("agent ready",
		slog.String("driver", cfg.Store.Driver),
		slog.String("dialect", store.Dialect()),
		slog.String("provider", cfg.AI.Provider),
	)

	shell := &Shell{
		In:  cmd.InOrStdin(),
		Out: cmd.OutOrStdout(),
		Agent: &agent.Orchestrator{
			Generator:   generator,
			Executor:    store,
			Schemas:     query.NewSchemaProvider(store),
			Dialect:     store.Dialect(),
			TableSuffix: cfg.Session.TableSuffix,
			Logger:      logger,
		},
		MemoryLimit:    cfg.Session.MemoryLimit,
		AskMemoryLimit: !cmd.Flags().Changed("memory-limit"),
		Dataset:        flags.dataset,
	}
	return shell.Run(ctx)
}

func newSeedCommand(opts Options, rootFlags *rootFlags) *cobra.Command {
	var (
		code     string
		rows     int
		partSize int
		seed     int64
		replace  bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upload a synthetic sales dataset for a country code to the object store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd, opts, rootFlags)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg, opts.Stderr)

			ds, err := query.ParseDataset(code, cfg.Session.TableSuffix)
			if err != nil {
				return usageError{err: err}
			}
			objectStore, err := opts.OpenObjectStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open object store: %w", err)
			}

			seeder := &dataset.Seeder{ObjectStore: objectStore, Logger: logger}
			result, err := seeder.Seed(ctx, dataset.SeedInput{
				Dataset:  ds,
				Rows:     rows,
				PartSize: partSize,
				Seed:     seed,
				Replace:  replace,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln(
				"Seeded %s: %d rows in %d parts (%s to %s)",
				result.Table, result.RecordCount, len(result.Keys), result.MinOrderDate, result.MaxOrderDate,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "2-letter country code (required)")
	cmd.Flags().IntVar(&rows, "rows", 500, "Number of rows to generate")
	cmd.Flags().IntVar(&partSize, "part-size", 1000, "Rows per parquet part")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace an existing dataset")
	return cmd
}
