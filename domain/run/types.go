package run

import (
	"pkemu/domain/core"
	"pkemu/domain/cosmology"
)

// RunFingerprint ensures deterministic replay: two runs with the same
// fingerprint produce identical outputs.
type RunFingerprint struct {
	InputHash   core.Hash              `json:"input_hash"`
	PriorsHash  core.Hash              `json:"priors_hash"`
	Boundary    string                 `json:"boundary"`
	Engine      string                 `json:"engine"`
	Bounds      cosmology.EngineBounds `json:"bounds"`
	Redshift    float64                `json:"redshift"`
	Fingerprint core.Hash              `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(inputHash, priorsHash core.Hash, boundary, engine string,
	bounds cosmology.EngineBounds, redshift float64) RunFingerprint {

	var f core.HashFields
	f.String("input", inputHash.String()).
		String("priors", priorsHash.String()).
		String("boundary", boundary).
		String("engine", engine).
		Float("z_min", bounds.ZMin).
		Float("z_max", bounds.ZMax).
		Float("k_min", bounds.KMin).
		Float("k_max", bounds.KMax).
		Int("k_points", bounds.KPoints).
		Float("redshift", redshift)

	return RunFingerprint{
		InputHash:   inputHash,
		PriorsHash:  priorsHash,
		Boundary:    boundary,
		Engine:      engine,
		Bounds:      bounds,
		Redshift:    redshift,
		Fingerprint: f.Sum(),
	}
}

// ComputePriorsHash hashes the ordered parameter list
func ComputePriorsHash(params []cosmology.Parameter) core.Hash {
	var f core.HashFields
	for i, p := range params {
		f.Int("index", i).
			String("name", p.Name).
			String("distribution", p.Prior.Distribution).
			Floats("specs", p.Prior.Specs)
	}
	return f.Sum()
}
