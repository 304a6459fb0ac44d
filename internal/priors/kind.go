package priors

import (
	"fmt"
	"sort"
	"strings"

	"pkemu/domain/core"
)

// Kind is a supported distribution family. Names follow scipy.stats so that
// prior files written for the Python tooling keep working.
type Kind string

const (
	KindUniform     Kind = "uniform"
	KindNormal      Kind = "norm"
	KindTruncNorm   Kind = "truncnorm"
	KindLogNormal   Kind = "lognorm"
	KindBeta        Kind = "beta"
	KindGamma       Kind = "gamma"
	KindExponential Kind = "expon"
	KindStudentsT   Kind = "t"
	KindLaplace     Kind = "laplace"
	KindTriangle    Kind = "triang"
	KindWeibull     Kind = "weibull_min"
)

// kindInfo describes the argument layout of a family: shapes leading
// arguments, then optional loc and scale.
type kindInfo struct {
	shapes []string
	build  func(shape []float64, loc, scale float64) (Quantile, error)
}

var kinds = map[Kind]kindInfo{
	KindUniform:     {build: buildUniform},
	KindNormal:      {build: buildNormal},
	KindTruncNorm:   {shapes: []string{"a", "b"}, build: buildTruncNorm},
	KindLogNormal:   {shapes: []string{"s"}, build: buildLogNormal},
	KindBeta:        {shapes: []string{"a", "b"}, build: buildBeta},
	KindGamma:       {shapes: []string{"a"}, build: buildGamma},
	KindExponential: {build: buildExponential},
	KindStudentsT:   {shapes: []string{"df"}, build: buildStudentsT},
	KindLaplace:     {build: buildLaplace},
	KindTriangle:    {shapes: []string{"c"}, build: buildTriangle},
	KindWeibull:     {shapes: []string{"c"}, build: buildWeibull},
}

// aliases maps long-form names to their scipy name
var aliases = map[string]Kind{
	"normal":      KindNormal,
	"gaussian":    KindNormal,
	"lognormal":   KindLogNormal,
	"exponential": KindExponential,
	"studentst":   KindStudentsT,
	"triangle":    KindTriangle,
	"weibull":     KindWeibull,
}

// ParseKind resolves a family name, case-insensitively.
func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := kinds[Kind(key)]; ok {
		return Kind(key), nil
	}
	if k, ok := aliases[key]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", core.ErrUnknownDistribution, name, strings.Join(SupportedKinds(), ", "))
}

// SupportedKinds lists the canonical family names, sorted
func SupportedKinds() []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// Arity returns the minimum and maximum number of specs a family accepts
func (k Kind) Arity() (min, max int) {
	info := kinds[k]
	return len(info.shapes), len(info.shapes) + 2
}
