package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pkemu/internal/errors"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not read .env: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:           "pkemu",
		Short:         "Generate linear matter power spectrum training data from Latin hypercube samples",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newScaleCmd(),
		newGenerateCmd(),
		newSpectraCmd(),
		newLHSCmd(),
		newRunsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", errors.GetCode(err), err)
		stop()
		os.Exit(1)
	}
}

func newScaleCmd() *cobra.Command {
	var file string
	var save bool

	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Scale unit samples through the configured priors",
		Long: `Read the unit Latin hypercube file, map every column through its prior's
quantile function and optionally save cosmologies.{csv|xlsx} and cosmologies.json.

Example: pkemu scale --file lhs_500 --save=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.Flags().Changed("save") {
				save = app.cfg.Output.SaveCosmologies
			}
			res, err := app.pipeline.Scale(cmd.Context(), app.cfg.InputPath(file), save)
			if err != nil {
				return err
			}
			printResult(res.RunID.String(), len(res.Cosmologies), 0, res.Outputs)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "LHS file name under DATA_DIR (default LHS_FILE)")
	cmd.Flags().BoolVar(&save, "save", true, "Persist scaled cosmologies (default SAVE_COSMOLOGIES)")

	return cmd
}

func newGenerateCmd() *cobra.Command {
	var file string
	var redshift float64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Scale samples and compute a linear power spectrum for each",
		Long: `Scale the unit Latin hypercube file, then evaluate the configured engine once
per cosmology at a fixed redshift. Writes cosmologies.{csv|xlsx},
cosmologies.json, pk_linear.{csv|xlsx}, pk_linear.json, run_manifest.json and
the run report.

Example: pkemu generate --file lhs_500 --redshift 0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.Flags().Changed("redshift") {
				redshift = app.cfg.Engine.Redshift
			}
			res, err := app.pipeline.Generate(cmd.Context(), app.cfg.InputPath(file), redshift)
			if err != nil {
				return err
			}
			printResult(res.RunID.String(), len(res.Cosmologies), len(res.Spectra), res.Outputs)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "LHS file name under DATA_DIR (default LHS_FILE)")
	cmd.Flags().Float64Var(&redshift, "redshift", 0, "Redshift to evaluate (default REDSHIFT)")

	return cmd
}

func newSpectraCmd() *cobra.Command {
	var cosmologies string
	var redshift float64

	cmd := &cobra.Command{
		Use:   "spectra",
		Short: "Compute spectra for previously saved cosmologies",
		Long: `Load a cosmologies file written by scale or generate (.csv, .xlsx or .json)
and compute one linear power spectrum per row.

Example: pkemu spectra --cosmologies data/cosmologies.json --redshift 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.Flags().Changed("redshift") {
				redshift = app.cfg.Engine.Redshift
			}
			res, err := app.pipeline.Spectra(cmd.Context(), cosmologies, redshift)
			if err != nil {
				return err
			}
			printResult(res.RunID.String(), len(res.Cosmologies), len(res.Spectra), res.Outputs)
			return nil
		},
	}

	cmd.Flags().StringVar(&cosmologies, "cosmologies", "", "Path of a saved cosmologies file")
	cmd.Flags().Float64Var(&redshift, "redshift", 0, "Redshift to evaluate (default REDSHIFT)")
	_ = cmd.MarkFlagRequired("cosmologies")

	return cmd
}

func newLHSCmd() *cobra.Command {
	var file string
	var n int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "lhs",
		Short: "Write a unit Latin hypercube sample over the configured parameters",
		Long: `Draw n rows with one value per stratum in every column and write them in the
layout scale and generate read.

Example: pkemu lhs --n 500 --seed 42 --file lhs_500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			if file == "" {
				file = fmt.Sprintf("lhs_%d", n)
			}
			paths, err := app.pipeline.Sample(cmd.Context(), file, n, seed)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Output name under DATA_DIR (default lhs_<n>)")
	cmd.Flags().IntVar(&n, "n", 500, "Number of samples")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")

	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			runs, err := app.pipeline.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(os.Stdout, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 for all)")

	return cmd
}
