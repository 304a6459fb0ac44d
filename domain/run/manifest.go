package run

import (
	"pkemu/domain/core"
	"pkemu/domain/cosmology"
)

// ParameterSummary describes the scaled values of one parameter
type ParameterSummary struct {
	Name   string  `json:"name"`
	Prior  string  `json:"prior"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`

	NonFinite int `json:"non_finite,omitempty"`
}

// Manifest records everything needed to reproduce a run and what it wrote.
type Manifest struct {
	RunID       core.RunID            `json:"run_id"`
	Command     string                `json:"command"`
	InputPath   string                `json:"input_path"`
	Parameters  []cosmology.Parameter `json:"parameters"`
	Rows        int                   `json:"rows"`
	Spectra     int                   `json:"spectra"`
	Summary     []ParameterSummary    `json:"summary,omitempty"`
	Outputs     []string              `json:"outputs"`
	Fingerprint RunFingerprint        `json:"fingerprint"`
	CreatedAt   core.Timestamp        `json:"created_at"`
}

// NewManifest starts a manifest for a run
func NewManifest(runID core.RunID, command, inputPath string, params []cosmology.Parameter, fp RunFingerprint) *Manifest {
	return &Manifest{
		RunID:       runID,
		Command:     command,
		InputPath:   inputPath,
		Parameters:  params,
		Fingerprint: fp,
		CreatedAt:   core.Now(),
	}
}

// AddOutputs appends written artifact paths
func (m *Manifest) AddOutputs(paths ...string) {
	m.Outputs = append(m.Outputs, paths...)
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	if len(m.Parameters) == 0 {
		return core.NewValidationError("run_manifest", "parameters cannot be empty")
	}
	if m.Spectra != 0 && m.Spectra != m.Rows {
		return core.NewValidationError("run_manifest", "spectra count differs from row count")
	}
	return nil
}
