package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pkemu/domain/cosmology"
	"pkemu/internal/errors"
)

// priorsFile is the YAML layout of PRIORS_FILE
type priorsFile struct {
	Parameters []cosmology.Parameter `yaml:"parameters"`
}

// DefaultParameters is the fixed parameter set used when no priors file is
// given. omega_cdm and omega_b are physical densities.
func DefaultParameters() []cosmology.Parameter {
	return []cosmology.Parameter{
		{Name: cosmology.ParamSigma8, Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0.6, 0.4}}},
		{Name: cosmology.ParamOmegaCDM, Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0.06, 0.34}}},
		{Name: cosmology.ParamOmegaB, Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0.019, 0.007}}},
		{Name: cosmology.ParamH, Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0.64, 0.18}}},
		{Name: cosmology.ParamNs, Prior: cosmology.PriorSpec{Distribution: "uniform", Specs: []float64{0.84, 0.26}}},
	}
}

// LoadParameters reads an ordered parameter list from a YAML file
func LoadParameters(path string) ([]cosmology.Parameter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError(path, err)
	}
	return ParseParameters(data)
}

// ParseParameters decodes the priors YAML document. Unknown keys are rejected.
func ParseParameters(data []byte) ([]cosmology.Parameter, error) {
	var file priorsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.ConfigInvalidf(err, "malformed priors file")
	}
	if err := validateParameters(file.Parameters); err != nil {
		return nil, err
	}
	return file.Parameters, nil
}

func validateParameters(params []cosmology.Parameter) error {
	if len(params) == 0 {
		return errors.ConfigInvalid("at least one cosmological parameter is required")
	}
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return errors.ConfigInvalid(fmt.Sprintf("parameter %d has no name", i))
		}
		if seen[name] {
			return errors.ConfigInvalid(fmt.Sprintf("parameter %s is listed twice", name))
		}
		seen[name] = true
	}
	return nil
}
