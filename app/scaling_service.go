package app

import (
	"context"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/internal"
	"pkemu/internal/errors"
	"pkemu/internal/priors"
	"pkemu/ports"
)

// ScalingService maps unit samples through the configured prior quantiles
type ScalingService struct {
	priors   *priors.Set
	boundary priors.Boundary
	store    ports.ArtifactStore
	logger   *internal.Logger
}

// NewScalingService creates a scaling service. store may be nil when nothing
// is persisted.
func NewScalingService(set *priors.Set, boundary priors.Boundary, store ports.ArtifactStore, logger *internal.Logger) *ScalingService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ScalingService{
		priors:   set,
		boundary: boundary,
		store:    store,
		logger:   logger.With("scale"),
	}
}

// Scale returns one cosmology per row, in row order. Column j of the matrix
// feeds parameter j of the prior set; header names are not consulted.
func (s *ScalingService) Scale(ctx context.Context, m *cosmology.UnitSampleMatrix) ([]cosmology.Cosmology, error) {
	if len(m.Columns) != s.priors.Len() {
		return nil, errors.InvalidInputf(core.ErrColumnMismatch,
			"sample has %d columns, %d parameters are configured", len(m.Columns), s.priors.Len())
	}
	for j, col := range m.Columns {
		if col != s.priors.Names[j] {
			s.logger.Warn("column %d is %q, scaling it as %s", j, col, s.priors.Names[j])
		}
	}

	out := make([]cosmology.Cosmology, 0, m.Len())
	for i, row := range m.Rows {
		if err := ctx.Err(); err != nil {
			return nil, errors.Interrupted(err)
		}
		if len(row) != len(m.Columns) {
			return nil, errors.InvalidInputf(core.ErrColumnMismatch, "row %d has %d values", i, len(row))
		}

		values := make([]float64, len(row))
		for j, u := range row {
			values[j] = s.priors.Priors[j].Quantile(s.boundary.Apply(u))
		}
		c, err := cosmology.NewCosmology(s.priors.Names, values)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out = append(out, c)
	}

	s.logger.Info("scaled %d rows over %d parameters", len(out), s.priors.Len())
	return out, nil
}

// ScaleAndSave scales m and, when save is set, persists the result
func (s *ScalingService) ScaleAndSave(ctx context.Context, m *cosmology.UnitSampleMatrix, save bool) ([]cosmology.Cosmology, []string, error) {
	out, err := s.Scale(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	if !save || s.store == nil {
		return out, nil, nil
	}
	paths, err := s.store.SaveCosmologies(ctx, out)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to save cosmologies")
	}
	return out, paths, nil
}
