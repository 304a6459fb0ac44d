// Package lhs draws unit Latin hypercube designs used as emulator inputs.
package lhs

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"

	"pkemu/domain/cosmology"
)

// Generate returns n rows over the unit hypercube, one column per name. Each
// column holds exactly one value in every stratum [j/n, (j+1)/n).
// The same seed always yields the same matrix.
func Generate(names []string, n int, seed uint64) (*cosmology.UnitSampleMatrix, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("lhs: at least one column is required")
	}
	if n < 0 {
		return nil, fmt.Errorf("lhs: negative sample count %d", n)
	}

	m := &cosmology.UnitSampleMatrix{
		Columns: append([]string(nil), names...),
		Rows:    make([][]float64, 0, n),
	}
	if n == 0 {
		return m, nil
	}

	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	batch := mat.NewDense(n, len(names), nil)
	samplemv.LatinHypercube{
		Q:   distmv.NewUnitUniform(len(names), src),
		Src: src,
	}.Sample(batch)

	for i := 0; i < n; i++ {
		m.Rows = append(m.Rows, mat.Row(nil, i, batch))
	}
	return m, nil
}
