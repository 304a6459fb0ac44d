package app

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/domain/run"
	"pkemu/internal"
	"pkemu/internal/errors"
	"pkemu/internal/lhs"
	"pkemu/ports"
)

// Run commands recorded in manifests and the ledger
const (
	CommandScale    = "scale"
	CommandGenerate = "generate"
	CommandSpectra  = "spectra"
)

// CosmologyLoader reads previously saved cosmologies
type CosmologyLoader func(ctx context.Context, path string) ([]cosmology.Cosmology, error)

// PipelineService wires reading, scaling, spectrum generation, artifacts and
// the optional run ledger into the CLI commands.
type PipelineService struct {
	reader   ports.SampleReader
	scaling  *ScalingService
	spectra  *SpectrumService
	store    ports.ArtifactStore
	runs     ports.RunRepository
	loader   CosmologyLoader
	params   []cosmology.Parameter
	boundary string
	bounds   cosmology.EngineBounds
	logger   *internal.Logger
}

// PipelineDeps collects the collaborators of a PipelineService. Spectra,
// Runs and Loader may be nil when the commands needing them are unused.
type PipelineDeps struct {
	Reader     ports.SampleReader
	Scaling    *ScalingService
	Spectra    *SpectrumService
	Store      ports.ArtifactStore
	Runs       ports.RunRepository
	Loader     CosmologyLoader
	Parameters []cosmology.Parameter
	Boundary   string
	Bounds     cosmology.EngineBounds
	Logger     *internal.Logger
}

// RunResult is what a pipeline command produced
type RunResult struct {
	RunID       core.RunID
	Cosmologies []cosmology.Cosmology
	Spectra     []cosmology.Spectrum
	Outputs     []string
	Manifest    *run.Manifest
}

// NewPipelineService creates a pipeline service
func NewPipelineService(deps PipelineDeps) *PipelineService {
	logger := deps.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PipelineService{
		reader:   deps.Reader,
		scaling:  deps.Scaling,
		spectra:  deps.Spectra,
		store:    deps.Store,
		runs:     deps.Runs,
		loader:   deps.Loader,
		params:   deps.Parameters,
		boundary: deps.Boundary,
		bounds:   deps.Bounds,
		logger:   logger.With("pipeline"),
	}
}

// Scale reads inputPath and scales it. With save unset nothing is written.
func (p *PipelineService) Scale(ctx context.Context, inputPath string, save bool) (*RunResult, error) {
	return p.execute(ctx, CommandScale, inputPath, 0, save, func(ctx context.Context, res *RunResult) error {
		m, err := p.reader.ReadSamples(ctx, inputPath)
		if err != nil {
			return err
		}
		res.Cosmologies, res.Outputs, err = p.scaling.ScaleAndSave(ctx, m, save)
		return err
	})
}

// Generate scales and saves inputPath, then computes a spectrum for every row
// from the in-memory cosmologies.
func (p *PipelineService) Generate(ctx context.Context, inputPath string, redshift float64) (*RunResult, error) {
	if p.spectra == nil {
		return nil, errors.InternalError("no spectrum engine configured")
	}
	return p.execute(ctx, CommandGenerate, inputPath, redshift, true, func(ctx context.Context, res *RunResult) error {
		m, err := p.reader.ReadSamples(ctx, inputPath)
		if err != nil {
			return err
		}
		cosmologies, paths, err := p.scaling.ScaleAndSave(ctx, m, true)
		if err != nil {
			return err
		}
		res.Cosmologies = cosmologies
		res.Outputs = append(res.Outputs, paths...)

		spectra, paths, err := p.spectra.GenerateAndSave(ctx, cosmologies, redshift)
		if err != nil {
			return err
		}
		res.Spectra = spectra
		res.Outputs = append(res.Outputs, paths...)
		return nil
	})
}

// Spectra computes spectra for cosmologies saved by an earlier run
func (p *PipelineService) Spectra(ctx context.Context, cosmologiesPath string, redshift float64) (*RunResult, error) {
	if p.spectra == nil || p.loader == nil {
		return nil, errors.InternalError("spectra command is not configured")
	}
	return p.execute(ctx, CommandSpectra, cosmologiesPath, redshift, true, func(ctx context.Context, res *RunResult) error {
		cosmologies, err := p.loader(ctx, cosmologiesPath)
		if err != nil {
			return err
		}
		if err := p.checkNames(cosmologiesPath, cosmologies); err != nil {
			return err
		}
		res.Cosmologies = cosmologies

		spectra, paths, err := p.spectra.GenerateAndSave(ctx, cosmologies, redshift)
		if err != nil {
			return err
		}
		res.Spectra = spectra
		res.Outputs = paths
		return nil
	})
}

// Sample writes an n-row unit Latin hypercube over the configured
// parameters, named name, and returns the written paths. A name without an
// extension is written as CSV, the format input names resolve to.
func (p *PipelineService) Sample(ctx context.Context, name string, n int, seed uint64) ([]string, error) {
	if filepath.Ext(name) == "" {
		name += ".csv"
	}
	m, err := lhs.Generate(p.parameterNames(), n, seed)
	if err != nil {
		return nil, errors.InvalidInputf(err, "cannot generate %d samples", n)
	}
	return p.store.SaveSamples(ctx, name, m)
}

// ListRuns returns recent ledger entries
func (p *PipelineService) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if p.runs == nil {
		return nil, errors.ConfigInvalid("LEDGER_URL is not set")
	}
	return p.runs.ListRuns(ctx, limit)
}

// execute runs work under a run id, records it in the ledger and, when
// persist is set, writes the manifest and report.
func (p *PipelineService) execute(ctx context.Context, command, inputPath string, redshift float64, persist bool,
	work func(context.Context, *RunResult) error) (*RunResult, error) {

	runID := core.NewRunID()
	log := p.logger.With(command)
	log.Info("run %s reading %s", runID, inputPath)

	inputHash, err := hashFile(inputPath)
	if err != nil {
		return nil, err
	}

	engine, bounds := "", cosmology.EngineBounds{}
	if command != CommandScale {
		engine, bounds = p.spectra.Engine().Name(), p.bounds
	}
	fp := run.NewRunFingerprint(inputHash, run.ComputePriorsHash(p.params), p.boundary, engine, bounds, redshift)

	if p.runs != nil {
		rec := &ports.RunRecord{
			ID:        runID,
			Command:   command,
			InputPath: inputPath,
			InputHash: inputHash.String(),
			Engine:    engine,
			Redshift:  redshift,
			StartedAt: time.Now().UTC(),
		}
		if err := p.runs.StartRun(ctx, rec); err != nil {
			return nil, err
		}
	}

	res := &RunResult{RunID: runID}
	err = work(ctx, res)
	if err == nil && persist {
		err = p.saveManifest(ctx, command, inputPath, fp, res)
	}

	if err != nil {
		log.Error("run %s failed: %v", runID, err)
		if p.runs != nil {
			if ferr := p.runs.FailRun(context.WithoutCancel(ctx), runID, err); ferr != nil {
				log.Warn("could not record failure of run %s: %v", runID, ferr)
			}
		}
		return nil, err
	}

	if p.runs != nil {
		if err := p.runs.CompleteRun(ctx, runID, len(res.Cosmologies), fp.Fingerprint.String()); err != nil {
			return nil, err
		}
	}
	log.Info("run %s complete: %d rows, fingerprint %s", runID, len(res.Cosmologies), fp.Fingerprint.Short())
	return res, nil
}

func (p *PipelineService) saveManifest(ctx context.Context, command, inputPath string, fp run.RunFingerprint, res *RunResult) error {
	if len(res.Spectra) != 0 && len(res.Spectra) != len(res.Cosmologies) {
		return errors.Wrapf(core.ErrLengthMismatch, "%d spectra for %d cosmologies", len(res.Spectra), len(res.Cosmologies))
	}

	m := run.NewManifest(res.RunID, command, inputPath, p.params, fp)
	m.Rows = len(res.Cosmologies)
	m.Spectra = len(res.Spectra)
	m.Summary = Summarize(p.params, res.Cosmologies)
	m.AddOutputs(res.Outputs...)

	paths, err := p.store.SaveManifest(ctx, m)
	if err != nil {
		return err
	}
	res.Manifest = m
	res.Outputs = append(res.Outputs, paths...)
	return nil
}

func (p *PipelineService) parameterNames() []string {
	names := make([]string, len(p.params))
	for i, param := range p.params {
		names[i] = param.Name
	}
	return names
}

// checkNames requires loaded cosmologies to carry the configured parameters
// in configured order
func (p *PipelineService) checkNames(path string, cosmologies []cosmology.Cosmology) error {
	want := p.parameterNames()
	for i, c := range cosmologies {
		if got := c.Names(); !slices.Equal(got, want) {
			return errors.InvalidInputf(core.ErrColumnMismatch,
				"%s row %d has parameters %v, configured %v", path, i, got, want)
		}
	}
	return nil
}

func hashFile(path string) (core.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.IOError(path, err)
	}
	defer f.Close()

	h, err := core.HashReader(f)
	if err != nil {
		return "", errors.IOError(path, err)
	}
	return h, nil
}
