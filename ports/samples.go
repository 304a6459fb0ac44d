package ports

import (
	"context"

	"pkemu/domain/cosmology"
)

// SampleReader loads a unit sample matrix from persisted storage
type SampleReader interface {
	ReadSamples(ctx context.Context, path string) (*cosmology.UnitSampleMatrix, error)
}
