package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"

	"pkemu/adapters/artifacts"
	"pkemu/adapters/engine/analytic"
	"pkemu/adapters/engine/command"
	"pkemu/adapters/samples"
	"pkemu/adapters/sqlstore"
	"pkemu/app"
	"pkemu/domain/cosmology"
	"pkemu/internal"
	"pkemu/internal/config"
	"pkemu/ports"
)

// application holds the configured pipeline and what must be closed
type application struct {
	cfg      *config.Config
	pipeline *app.PipelineService
	db       *sqlx.DB
}

func (a *application) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// newApplication loads configuration and wires adapters. The engine is only
// built when withEngine is set.
func newApplication(ctx context.Context, withEngine bool) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	bounds := engineBounds(cfg)
	store := artifacts.NewStore(cfg.Paths.DataDir, string(cfg.Output.TableFormat), logger)

	a := &application{cfg: cfg}
	deps := app.PipelineDeps{
		Reader:     samples.NewReader(logger),
		Scaling:    app.NewScalingService(cfg.Cosmology.Priors, cfg.Cosmology.Boundary, store, logger),
		Store:      store,
		Loader:     artifacts.ReadCosmologies,
		Parameters: cfg.Cosmology.Parameters,
		Boundary:   string(cfg.Cosmology.Boundary.Policy),
		Bounds:     bounds,
		Logger:     logger,
	}

	if withEngine {
		engine, err := newEngine(cfg, bounds, logger)
		if err != nil {
			return nil, err
		}
		deps.Spectra = app.NewSpectrumService(engine, store, logger)
	}

	if cfg.Ledger.Enabled() {
		db, err := sqlstore.Open(ctx, cfg.Ledger.URL)
		if err != nil {
			return nil, err
		}
		a.db = db
		deps.Runs = sqlstore.NewRunRepository(db)
	}

	a.pipeline = app.NewPipelineService(deps)
	return a, nil
}

func engineBounds(cfg *config.Config) cosmology.EngineBounds {
	return cosmology.EngineBounds{
		ZMin:    cfg.Engine.ZMin,
		ZMax:    cfg.Engine.ZMax,
		KMin:    cfg.Engine.KMin,
		KMax:    cfg.Engine.KMax,
		KPoints: cfg.Engine.KPoints,
	}
}

func newEngine(cfg *config.Config, bounds cosmology.EngineBounds, logger *internal.Logger) (ports.SpectrumEngine, error) {
	switch cfg.Engine.Mode {
	case config.EngineCommand:
		return command.New(command.Config{
			Command: cfg.Engine.Command,
			Timeout: cfg.Engine.Timeout,
		}, bounds, logger)
	default:
		return analytic.New(bounds, logger)
	}
}

func printResult(runID string, rows, spectra int, outputs []string) {
	fmt.Printf("run %s: %d cosmologies, %d spectra\n", runID, rows, spectra)
	for _, out := range outputs {
		fmt.Printf("  %s\n", out)
	}
}

func printRuns(w io.Writer, runs []ports.RunRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMMAND\tSTATUS\tROWS\tENGINE\tZ\tSTARTED\tINPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%g\t%s\t%s\n",
			r.ID, r.Command, r.Status, r.Rows, r.Engine, r.Redshift,
			r.StartedAt.Format(time.RFC3339), r.InputPath)
		if r.ErrorMessage != nil {
			fmt.Fprintf(tw, "\t\terror: %s\t\t\t\t\t\n", *r.ErrorMessage)
		}
	}
	tw.Flush()
}
