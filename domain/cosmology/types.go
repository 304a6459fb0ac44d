package cosmology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// Canonical parameter names understood by the built-in engine.
const (
	ParamSigma8   = "sigma8"
	ParamOmegaCDM = "omega_cdm" // physical density, Omega_cdm h^2
	ParamOmegaB   = "omega_b"   // physical density, Omega_b h^2
	ParamH        = "h"
	ParamNs       = "n_s"
)

// PriorSpec names a distribution family and its numeric arguments.
// Specs follow the scipy.stats argument order: shape parameters first, then
// optional loc and scale.
type PriorSpec struct {
	Distribution string    `json:"distribution" yaml:"distribution"`
	Specs        []float64 `json:"specs" yaml:"specs"`
}

func (p PriorSpec) String() string {
	return fmt.Sprintf("%s%v", p.Distribution, p.Specs)
}

// Parameter is one configured cosmological parameter.
type Parameter struct {
	Name  string    `json:"name" yaml:"name"`
	Prior PriorSpec `json:"prior" yaml:",inline"`
}

// UnitSampleMatrix holds LHS rows in source order. Values are in [0, 1].
type UnitSampleMatrix struct {
	Columns []string
	Rows    [][]float64
}

// Len returns the number of sample rows
func (m *UnitSampleMatrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Rows)
}

// Cosmology is a parameter-name → value mapping that remembers the
// configured parameter order. It is never mutated after construction.
type Cosmology struct {
	names  []string
	values []float64
}

// NewCosmology builds a Cosmology; names and values must have equal length.
func NewCosmology(names []string, values []float64) (Cosmology, error) {
	if len(names) != len(values) {
		return Cosmology{}, fmt.Errorf("cosmology has %d names and %d values", len(names), len(values))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return Cosmology{}, fmt.Errorf("duplicate parameter %q", n)
		}
		seen[n] = true
	}
	c := Cosmology{
		names:  append([]string(nil), names...),
		values: append([]float64(nil), values...),
	}
	return c, nil
}

// Names returns the parameter names in order
func (c Cosmology) Names() []string {
	return append([]string(nil), c.names...)
}

// Values returns the values in parameter order
func (c Cosmology) Values() []float64 {
	return append([]float64(nil), c.values...)
}

// Len returns the number of parameters
func (c Cosmology) Len() int {
	return len(c.names)
}

// Get looks a parameter up by name
func (c Cosmology) Get(name string) (float64, bool) {
	for i, n := range c.names {
		if n == name {
			return c.values[i], true
		}
	}
	return 0, false
}

// Map returns an unordered copy
func (c Cosmology) Map() map[string]float64 {
	m := make(map[string]float64, len(c.names))
	for i, n := range c.names {
		m[n] = c.values[i]
	}
	return m
}

// MarshalJSON writes the parameters as an object in configured order.
func (c Cosmology) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v, err := marshalFloat(c.values[i])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", n, err)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping the key order of the document.
func (c *Cosmology) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("cosmology must be a JSON object")
	}
	var names []string
	var values []float64
	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		v, perr := unmarshalFloat(value)
		if perr != nil {
			err = fmt.Errorf("parameter %s: %w", key.String(), perr)
			return false
		}
		names = append(names, key.String())
		values = append(values, v)
		return true
	})
	if err != nil {
		return err
	}
	parsed, err := NewCosmology(names, values)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Spectrum is a linear matter power spectrum tabulated on a wavenumber grid.
// K is in h/Mpc and P in (Mpc/h)^3.
type Spectrum struct {
	Redshift float64   `json:"redshift"`
	K        []float64 `json:"k"`
	P        []float64 `json:"pk"`
}

// Len returns the number of tabulated wavenumbers
func (s Spectrum) Len() int {
	return len(s.K)
}

// Validate checks that K and P line up, hold only finite values and that K
// is strictly increasing
func (s Spectrum) Validate() error {
	if len(s.K) != len(s.P) {
		return fmt.Errorf("spectrum has %d wavenumbers and %d powers", len(s.K), len(s.P))
	}
	for i := range s.K {
		if !isFinite(s.K[i]) || !isFinite(s.P[i]) {
			return fmt.Errorf("non-finite value at index %d: k=%g P=%g", i, s.K[i], s.P[i])
		}
	}
	for i := 1; i < len(s.K); i++ {
		if !(s.K[i] > s.K[i-1]) {
			return fmt.Errorf("wavenumbers not increasing at index %d", i)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Non-finite values are written as strings, matching what the CSV writer emits.
func marshalFloat(v float64) ([]byte, error) {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	switch s {
	case "NaN", "+Inf", "-Inf":
		return json.Marshal(s)
	}
	return []byte(s), nil
}

func unmarshalFloat(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Number:
		return strconv.ParseFloat(r.Raw, 64)
	case gjson.String:
		return strconv.ParseFloat(r.Str, 64)
	default:
		return 0, fmt.Errorf("expected number, got %s", r.Type)
	}
}

// EngineBounds are the fixed redshift and wavenumber ranges an engine is
// constructed with. KPoints log-spaced wavenumbers cover [KMin, KMax].
type EngineBounds struct {
	ZMin    float64 `json:"z_min"`
	ZMax    float64 `json:"z_max"`
	KMin    float64 `json:"k_min"`
	KMax    float64 `json:"k_max"`
	KPoints int     `json:"k_points"`
}

// Validate checks 0 <= ZMin <= ZMax, 0 < KMin < KMax and KPoints >= 2
func (b EngineBounds) Validate() error {
	if b.ZMin < 0 || b.ZMin > b.ZMax {
		return fmt.Errorf("redshift bounds [%g, %g] are invalid", b.ZMin, b.ZMax)
	}
	if !(b.KMin > 0 && b.KMin < b.KMax) {
		return fmt.Errorf("wavenumber bounds [%g, %g] are invalid", b.KMin, b.KMax)
	}
	if b.KPoints < 2 {
		return fmt.Errorf("need at least 2 wavenumbers, got %d", b.KPoints)
	}
	return nil
}

// Contains reports whether z lies inside the redshift bounds
func (b EngineBounds) Contains(z float64) bool {
	return z >= b.ZMin && z <= b.ZMax
}
