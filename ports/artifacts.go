package ports

import (
	"context"

	"pkemu/domain/cosmology"
	"pkemu/domain/run"
)

// ArtifactStore persists pipeline outputs. Each Save returns the paths written.
type ArtifactStore interface {
	SaveSamples(ctx context.Context, name string, m *cosmology.UnitSampleMatrix) ([]string, error)
	SaveCosmologies(ctx context.Context, cosmologies []cosmology.Cosmology) ([]string, error)
	SaveSpectra(ctx context.Context, spectra []cosmology.Spectrum) ([]string, error)
	SaveManifest(ctx context.Context, manifest *run.Manifest) ([]string, error)
}
