// Package analytic computes linear matter power spectra from the
// Eisenstein & Hu (1998) no-wiggle transfer function, normalized to sigma8.
package analytic

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
	"pkemu/internal"
	"pkemu/internal/errors"
)

// EngineName identifies this engine in manifests and the run ledger
const EngineName = "analytic"

// Required lists the parameters every cosmology must carry
var Required = []string{
	cosmology.ParamSigma8,
	cosmology.ParamOmegaCDM,
	cosmology.ParamOmegaB,
	cosmology.ParamH,
	cosmology.ParamNs,
}

// Engine implements ports.SpectrumEngine
type Engine struct {
	bounds cosmology.EngineBounds
	k      []float64
	logger *internal.Logger
}

// New creates an engine answering redshifts inside bounds on a log-spaced
// grid of bounds.KPoints wavenumbers.
func New(bounds cosmology.EngineBounds, logger *internal.Logger) (*Engine, error) {
	if err := bounds.Validate(); err != nil {
		return nil, errors.ConfigInvalidf(err, "invalid engine bounds")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{
		bounds: bounds,
		k:      floats.LogSpan(make([]float64, bounds.KPoints), bounds.KMin, bounds.KMax),
		logger: logger.With(EngineName),
	}, nil
}

func (e *Engine) Name() string { return EngineName }

// Bounds returns the bounds the engine was constructed with
func (e *Engine) Bounds() cosmology.EngineBounds { return e.bounds }

// PkLinear returns P(k, z) in (Mpc/h)^3 on the engine's k grid in h/Mpc
func (e *Engine) PkLinear(ctx context.Context, c cosmology.Cosmology, redshift float64) (cosmology.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return cosmology.Spectrum{}, errors.Interrupted(err)
	}
	if !e.bounds.Contains(redshift) {
		return cosmology.Spectrum{}, errors.InvalidInputf(core.ErrRedshiftOutOfRange,
			"z = %g outside [%g, %g]", redshift, e.bounds.ZMin, e.bounds.ZMax)
	}

	p, err := parameters(c)
	if err != nil {
		return cosmology.Spectrum{}, err
	}

	m := newModel(p[0], p[1], p[2], p[3], p[4])
	d := m.growth(redshift)
	pk := make([]float64, len(e.k))
	for i, k := range e.k {
		pk[i] = m.power(k) * d * d
	}

	e.logger.Trace("P(k) at z=%g: %d points, growth %.4f", redshift, len(pk), d)
	return cosmology.Spectrum{
		Redshift: redshift,
		K:        append([]float64(nil), e.k...),
		P:        pk,
	}, nil
}

// parameters extracts the required values in Required order
func parameters(c cosmology.Cosmology) ([]float64, error) {
	out := make([]float64, len(Required))
	for i, name := range Required {
		v, ok := c.Get(name)
		if !ok {
			return nil, errors.InvalidInputf(core.NewMissingParameterError(name), "analytic engine")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.InvalidInput(fmt.Sprintf("%s = %g is not finite", name, v))
		}
		out[i] = v
	}

	switch {
	case out[0] <= 0:
		return nil, errors.InvalidInput(fmt.Sprintf("sigma8 must be positive, got %g", out[0]))
	case out[1] < 0:
		return nil, errors.InvalidInput(fmt.Sprintf("omega_cdm must be non-negative, got %g", out[1]))
	case out[2] <= 0:
		return nil, errors.InvalidInput(fmt.Sprintf("omega_b must be positive, got %g", out[2]))
	case out[3] <= 0:
		return nil, errors.InvalidInput(fmt.Sprintf("h must be positive, got %g", out[3]))
	}
	return out, nil
}
