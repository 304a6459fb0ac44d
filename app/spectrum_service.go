package app

import (
	"context"
	"time"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/internal"
	"pkemu/internal/errors"
	"pkemu/ports"
)

// SpectrumService evaluates the engine once per cosmology, in order
type SpectrumService struct {
	engine ports.SpectrumEngine
	store  ports.ArtifactStore
	logger *internal.Logger
}

// NewSpectrumService creates a spectrum service. store may be nil.
func NewSpectrumService(engine ports.SpectrumEngine, store ports.ArtifactStore, logger *internal.Logger) *SpectrumService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SpectrumService{
		engine: engine,
		store:  store,
		logger: logger.With("spectra"),
	}
}

// Engine returns the engine in use
func (s *SpectrumService) Engine() ports.SpectrumEngine {
	return s.engine
}

// Generate returns spectrum i for cosmology i. The first engine failure
// aborts the batch and no spectra are returned.
func (s *SpectrumService) Generate(ctx context.Context, cosmologies []cosmology.Cosmology, redshift float64) ([]cosmology.Spectrum, error) {
	out := make([]cosmology.Spectrum, 0, len(cosmologies))
	start := time.Now()

	for i, c := range cosmologies {
		if err := ctx.Err(); err != nil {
			return nil, errors.Interrupted(err)
		}
		s.logger.Debug("row %d: %s at z=%g", i, s.engine.Name(), redshift)

		sp, err := s.engine.PkLinear(ctx, c, redshift)
		if err != nil {
			return nil, errors.Wrapf(err, "power spectrum for row %d", i)
		}
		if err := sp.Validate(); err != nil {
			return nil, errors.Wrapf(err, "power spectrum for row %d", i)
		}
		out = append(out, sp)
	}

	if len(out) != len(cosmologies) {
		return nil, errors.Wrapf(core.ErrLengthMismatch, "%d spectra for %d cosmologies", len(out), len(cosmologies))
	}
	s.logger.Info("computed %d spectra with %s in %s", len(out), s.engine.Name(), time.Since(start).Round(time.Millisecond))
	return out, nil
}

// GenerateAndSave generates spectra and persists them
func (s *SpectrumService) GenerateAndSave(ctx context.Context, cosmologies []cosmology.Cosmology, redshift float64) ([]cosmology.Spectrum, []string, error) {
	out, err := s.Generate(ctx, cosmologies, redshift)
	if err != nil {
		return nil, nil, err
	}
	if s.store == nil {
		return out, nil, nil
	}
	paths, err := s.store.SaveSpectra(ctx, out)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to save spectra")
	}
	return out, paths, nil
}
