package ports

import (
	"context"

	"pkemu/domain/cosmology"
)

// SpectrumEngine computes the linear matter power spectrum of one cosmology.
// Implementations are called sequentially and need not be safe for
// concurrent use.
type SpectrumEngine interface {
	PkLinear(ctx context.Context, cosmo cosmology.Cosmology, redshift float64) (cosmology.Spectrum, error)
	// Name identifies the engine in manifests and the run ledger
	Name() string
}
