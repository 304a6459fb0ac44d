package priors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"pkemu/domain/core"
	"pkemu/domain/cosmology"
)

// Quantile is an inverse CDF defined on [0, 1].
type Quantile func(p float64) float64

// Prior is a validated prior distribution for one parameter.
type Prior struct {
	Kind     Kind
	Spec     cosmology.PriorSpec
	quantile Quantile
}

// New validates spec and builds its quantile function.
func New(spec cosmology.PriorSpec) (*Prior, error) {
	kind, err := ParseKind(spec.Distribution)
	if err != nil {
		return nil, err
	}
	lo, hi := kind.Arity()
	if n := len(spec.Specs); n < lo || n > hi {
		return nil, fmt.Errorf("%w: %s takes %d to %d arguments, got %d", core.ErrBadPriorParams, kind, lo, hi, n)
	}
	for i, v := range spec.Specs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s argument %d is not finite", core.ErrBadPriorParams, kind, i)
		}
	}

	shape := spec.Specs[:lo]
	loc, scale := 0.0, 1.0
	if len(spec.Specs) > lo {
		loc = spec.Specs[lo]
	}
	if len(spec.Specs) > lo+1 {
		scale = spec.Specs[lo+1]
	}
	if scale <= 0 {
		return nil, fmt.Errorf("%w: %s scale must be positive, got %g", core.ErrBadPriorParams, kind, scale)
	}

	q, err := kinds[kind].build(shape, loc, scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrBadPriorParams, kind, err)
	}
	return &Prior{Kind: kind, Spec: spec, quantile: q}, nil
}

// Quantile evaluates the inverse CDF. Values on the boundary of an unbounded
// family return ±Inf; u outside [0, 1] returns NaN.
func (p *Prior) Quantile(u float64) float64 {
	if !(u >= 0 && u <= 1) {
		return math.NaN()
	}
	return p.quantile(u)
}

func (p *Prior) String() string {
	return p.Spec.String()
}

// Set holds one prior per parameter in configured order.
type Set struct {
	Names  []string
	Priors []*Prior
}

// NewSet builds every prior, failing on the first invalid one.
func NewSet(params []cosmology.Parameter) (*Set, error) {
	set := &Set{
		Names:  make([]string, 0, len(params)),
		Priors: make([]*Prior, 0, len(params)),
	}
	for _, param := range params {
		prior, err := New(param.Prior)
		if err != nil {
			return nil, fmt.Errorf("prior for %s: %w", param.Name, err)
		}
		set.Names = append(set.Names, param.Name)
		set.Priors = append(set.Priors, prior)
	}
	return set, nil
}

// Len returns the number of parameters
func (s *Set) Len() int {
	return len(s.Priors)
}

func positive(name string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %g", name, v)
	}
	return nil
}

func affine(loc, scale float64, q func(float64) float64) Quantile {
	return func(p float64) float64 {
		return loc + scale*q(p)
	}
}

func buildUniform(_ []float64, loc, scale float64) (Quantile, error) {
	d := distuv.Uniform{Min: loc, Max: loc + scale}
	return d.Quantile, nil
}

func buildNormal(_ []float64, loc, scale float64) (Quantile, error) {
	d := distuv.Normal{Mu: loc, Sigma: scale}
	return d.Quantile, nil
}

// truncnorm bounds a and b are in standard units, as in scipy.
func buildTruncNorm(shape []float64, loc, scale float64) (Quantile, error) {
	a, b := shape[0], shape[1]
	if !(a < b) {
		return nil, fmt.Errorf("a must be below b, got a=%g b=%g", a, b)
	}
	q, err := truncNormQuantile(a, b)
	if err != nil {
		return nil, err
	}
	return affine(loc, scale, q), nil
}

// truncNormQuantile inverts the CDF in the lower tail only, where it keeps
// full precision. Intervals above zero are reflected onto [-b, -a].
func truncNormQuantile(a, b float64) (func(float64) float64, error) {
	if a > 0 {
		q, err := truncNormQuantile(-b, -a)
		if err != nil {
			return nil, err
		}
		return func(p float64) float64 { return -q(1 - p) }, nil
	}

	lo := distuv.UnitNormal.CDF(a)
	hi := distuv.UnitNormal.CDF(b)
	if !(hi > lo) {
		return nil, fmt.Errorf("interval [%g, %g] has no mass", a, b)
	}
	return func(p float64) float64 {
		x := distuv.UnitNormal.Quantile(lo + p*(hi-lo))
		return math.Min(math.Max(x, a), b)
	}, nil
}

func buildLogNormal(shape []float64, loc, scale float64) (Quantile, error) {
	if err := positive("s", shape[0]); err != nil {
		return nil, err
	}
	d := distuv.LogNormal{Mu: math.Log(scale), Sigma: shape[0]}
	return func(p float64) float64 { return loc + d.Quantile(p) }, nil
}

func buildBeta(shape []float64, loc, scale float64) (Quantile, error) {
	if err := positive("a", shape[0]); err != nil {
		return nil, err
	}
	if err := positive("b", shape[1]); err != nil {
		return nil, err
	}
	d := distuv.Beta{Alpha: shape[0], Beta: shape[1]}
	return affine(loc, scale, d.Quantile), nil
}

func buildGamma(shape []float64, loc, scale float64) (Quantile, error) {
	if err := positive("a", shape[0]); err != nil {
		return nil, err
	}
	d := distuv.Gamma{Alpha: shape[0], Beta: 1}
	return affine(loc, scale, d.Quantile), nil
}

func buildExponential(_ []float64, loc, scale float64) (Quantile, error) {
	d := distuv.Exponential{Rate: 1}
	return affine(loc, scale, d.Quantile), nil
}

func buildStudentsT(shape []float64, loc, scale float64) (Quantile, error) {
	if err := positive("df", shape[0]); err != nil {
		return nil, err
	}
	d := distuv.StudentsT{Mu: loc, Sigma: scale, Nu: shape[0]}
	return d.Quantile, nil
}

func buildLaplace(_ []float64, loc, scale float64) (Quantile, error) {
	d := distuv.Laplace{Mu: loc, Scale: scale}
	return d.Quantile, nil
}

func buildTriangle(shape []float64, loc, scale float64) (Quantile, error) {
	c := shape[0]
	if c < 0 || c > 1 {
		return nil, fmt.Errorf("c must be in [0, 1], got %g", c)
	}
	d := distuv.NewTriangle(loc, loc+scale, loc+c*scale, nil)
	return d.Quantile, nil
}

func buildWeibull(shape []float64, loc, scale float64) (Quantile, error) {
	if err := positive("c", shape[0]); err != nil {
		return nil, err
	}
	d := distuv.Weibull{K: shape[0], Lambda: scale}
	return func(p float64) float64 { return loc + d.Quantile(p) }, nil
}
