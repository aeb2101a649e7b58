package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"cimpute/adapters/excel"
	"cimpute/adapters/rng"
	"cimpute/domain/quant"
	"cimpute/internal"
	"cimpute/internal/config"
	"cimpute/internal/imputation"
	"cimpute/internal/profiling"
	"cimpute/internal/simulate"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliFlags override values loaded from the environment when set
type cliFlags struct {
	envFile   string
	input     string
	output    string
	groups    []string
	minCS     float64
	neighbors int
	seed      int64
	workers   int
	profile   bool
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "cimpute",
		Short:         "Conditional imputation of missing values in quantitative proteomics tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Read settings from this env file before the environment")
	rootCmd.PersistentFlags().StringVarP(&flags.input, "input", "i", "", "Input table (.xlsx or .csv)")
	rootCmd.PersistentFlags().StringSliceVarP(&flags.groups, "groups", "g", nil, "Group labels, e.g. ctrl,treat")

	rootCmd.AddCommand(
		newRunCmd(flags),
		newLimitsCmd(flags),
		newSimulateCmd(flags),
	)
	return rootCmd
}

func newRunCmd(flags *cliFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Classify missing values per group and impute the confident ones",
		Long: `Classify every row of every group as NM, MCAR, MNAR or MAR, score the
classification and impute rows whose score reaches min_cs: MCAR by nearest
neighbors, MNAR by low-intensity sampling.

Example: cimpute run -i proteins.xlsx -o imputed.xlsx -g ctrl,treat --min-cs 0.5 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runImpute(cmd.Context(), cmd, cfg, flags.profile)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output table (.xlsx or .csv)")
	cmd.Flags().Float64Var(&flags.minCS, "min-cs", 0.5, "Minimum confidence score for imputation")
	cmd.Flags().IntVarP(&flags.neighbors, "neighbors", "k", 5, "Neighbors for MCAR imputation")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Random seed for MNAR sampling (0 uses the clock)")
	cmd.Flags().IntVar(&flags.workers, "workers", 1, "Groups imputed concurrently")
	cmd.Flags().BoolVar(&flags.profile, "profile", false, "Compare observed and imputed intensities per group")

	return cmd
}

func newLimitsCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Print the detection bounds of the grouped quantification columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger := internal.NewLogger(cfg.LogLevel)
			m, groups, err := excel.NewMatrixResolverAdapter(excelConfig(cfg)).WithLogger(logger).ResolveMatrix()
			if err != nil {
				return err
			}
			bounds, err := imputation.GetLimits(m, groups.AllColumns(), cfg.Imputation.LocationFraction)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "d_min\t%g\nup_mnar\t%g\nd_max\t%g\n", bounds.DMin, bounds.UpMNAR, bounds.DMax)
			return nil
		},
	}
}

func newSimulateCmd(flags *cliFlags) *cobra.Command {
	cfg := simulate.DefaultConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a synthetic LFQ table with censored and random missing values",
		Long: `Generate log2 LFQ intensities for proteins across groups and replicates. Values
below the detection limit are removed (MNAR) and a share of the rest is dropped at
random (MCAR). The output format follows the file extension.

Example: cimpute simulate -o sim.xlsx -g ctrl,treat --proteins 1000 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("groups") {
				cfg.Groups = flags.groups
			}
			ds, err := simulate.Generate(cfg)
			if err != nil {
				return err
			}

			var writeErr error
			if strings.EqualFold(filepath.Ext(out), ".csv") {
				writeErr = simulate.WriteCSV(out, ds)
			} else {
				writeErr = simulate.WriteXLSX(out, ds)
			}
			if writeErr != nil {
				return fmt.Errorf("error writing %s: %w", out, writeErr)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d proteins x %d samples to %s (%.1f%% missing)\n",
				len(ds.IDs), len(ds.Columns), out, 100*ds.MissingFraction())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "simulated_lfq.xlsx", "Output file (.xlsx or .csv)")
	cmd.Flags().IntVar(&cfg.Proteins, "proteins", cfg.Proteins, "Number of proteins (rows)")
	cmd.Flags().IntVar(&cfg.Replicates, "replicates", cfg.Replicates, "Samples per group")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed (deterministic)")
	cmd.Flags().Float64Var(&cfg.DetectionLimit, "detection-limit", cfg.DetectionLimit, "log2 intensity below which values are censored")
	cmd.Flags().Float64Var(&cfg.MCARRate, "mcar-rate", cfg.MCARRate, "Share of detected values dropped at random")

	return cmd
}

// loadConfig reads the environment (and env file) then applies explicitly set flags
func loadConfig(cmd *cobra.Command, flags *cliFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.envFile != "" {
		cfg, err = config.LoadFile(flags.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	set := cmd.Flags().Changed
	if set("input") {
		cfg.Data.InputFile = flags.input
	}
	if set("groups") {
		cfg.Data.Groups = flags.groups
	}
	if set("output") {
		cfg.Data.OutputFile = flags.output
	}
	if set("min-cs") {
		cfg.Imputation.MinCS = flags.minCS
	}
	if set("neighbors") {
		cfg.Imputation.NNeighbors = flags.neighbors
	}
	if set("seed") {
		cfg.Imputation.Seed = flags.seed
	}
	if set("workers") {
		cfg.Imputation.Workers = flags.workers
	}

	if cfg.Data.InputFile == "" {
		return nil, fmt.Errorf("no input table: pass --input or set CIMPUTE_INPUT")
	}
	if len(cfg.Data.Groups) == 0 {
		return nil, fmt.Errorf("no groups: pass --groups or set CIMPUTE_GROUPS")
	}
	return cfg, nil
}

func excelConfig(cfg *config.Config) excel.ExcelConfig {
	return excel.ExcelConfig{
		FilePath:           cfg.Data.InputFile,
		IDColumn:           cfg.Data.IDColumn,
		QuantMarker:        cfg.Data.QuantMarker,
		Groups:             cfg.Data.Groups,
		MinPresentFraction: cfg.Data.MinPresentFraction,
		Log2:               cfg.Data.Log2,
	}
}

func runImpute(ctx context.Context, cmd *cobra.Command, cfg *config.Config, profile bool) error {
	logger := internal.NewLogger(cfg.LogLevel)

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	// groups were already used to pick the columns
	opts.Groups = nil

	m, groups, err := excel.NewMatrixResolverAdapter(excelConfig(cfg)).WithLogger(logger).ResolveMatrix()
	if err != nil {
		return err
	}

	engine := imputation.NewEngine(rng.New(), logger)
	result, err := engine.Run(ctx, m, groups, opts)
	if err != nil {
		return err
	}

	if cfg.Data.OutputFile != "" {
		if err := excel.NewResultWriter(cfg.Data.OutputFile).WithLogger(logger).Write(cfg.Data.IDColumn, result); err != nil {
			return err
		}
	}

	printSummary(cmd, result)
	if profile {
		profiles, err := profiling.CompareImputation(m, result, groups)
		if err != nil {
			return err
		}
		printProfiles(cmd, profiles)
	}
	return nil
}

func printSummary(cmd *cobra.Command, result *quant.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", result.RunID)
	fmt.Fprintf(out, "bounds: d_min=%g up_mnar=%g d_max=%g\n",
		result.Bounds.DMin, result.Bounds.UpMNAR, result.Bounds.DMax)

	for _, g := range result.Summary.Groups {
		counts := make([]string, 0, len(quant.Classes))
		for _, class := range quant.Classes {
			counts = append(counts, fmt.Sprintf("%s=%d", class, g.Counts[class]))
		}
		fmt.Fprintf(out, "%-12s %s imputed=%d untouched=%d\n",
			g.Group, strings.Join(counts, " "), g.ImputedCells, g.UntouchedRows)
	}

	s := result.Summary
	fmt.Fprintf(out, "missing: %.2f%% -> %.2f%% (%d imputed, %d remaining), mean confidence %.2f\n",
		100*s.MissingBefore, 100*s.MissingAfter, s.ImputedCells, s.RemainingMissing, s.MeanConfidence)
}

func printProfiles(cmd *cobra.Command, profiles []profiling.GroupProfile) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-12s %-8s %6s %8s %8s %8s %8s %8s\n", "group", "values", "n", "mean", "std", "min", "median", "max")
	for _, p := range profiles {
		for _, row := range []struct {
			label string
			s     profiling.Summary
		}{{"observed", p.Observed}, {"imputed", p.Imputed}} {
			fmt.Fprintf(out, "%-12s %-8s %6d %8.3f %8.3f %8.3f %8.3f %8.3f\n",
				p.Group, row.label, row.s.Count, row.s.Mean, row.s.StdDev, row.s.Min, row.s.Median, row.s.Max)
		}
		fmt.Fprintf(out, "%-12s %.0f%% of imputed values at or below up_mnar\n", p.Group, 100*p.ImputedLowFraction)
	}
}
