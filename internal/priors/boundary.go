package priors

import (
	"fmt"
	"strings"
)

// BoundaryPolicy decides what happens to unit samples of exactly 0 or 1.
type BoundaryPolicy string

const (
	// BoundaryPropagate hands the value to the quantile function unchanged;
	// unbounded families then yield ±Inf.
	BoundaryPropagate BoundaryPolicy = "propagate"
	// BoundaryClamp moves values into [eps, 1-eps] first.
	BoundaryClamp BoundaryPolicy = "clamp"
)

// ParseBoundaryPolicy accepts "propagate" or "clamp"
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch p := BoundaryPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case BoundaryPropagate, BoundaryClamp:
		return p, nil
	case "":
		return BoundaryPropagate, nil
	default:
		return "", fmt.Errorf("unknown boundary policy %q", s)
	}
}

// Boundary applies a BoundaryPolicy.
type Boundary struct {
	Policy  BoundaryPolicy
	Epsilon float64
}

// Apply maps u according to the policy
func (b Boundary) Apply(u float64) float64 {
	if b.Policy != BoundaryClamp {
		return u
	}
	if u < b.Epsilon {
		return b.Epsilon
	}
	if u > 1-b.Epsilon {
		return 1 - b.Epsilon
	}
	return u
}

// Validate checks the epsilon of a clamp policy
func (b Boundary) Validate() error {
	if b.Policy == BoundaryClamp && !(b.Epsilon > 0 && b.Epsilon < 0.5) {
		return fmt.Errorf("boundary epsilon must be in (0, 0.5), got %g", b.Epsilon)
	}
	return nil
}
