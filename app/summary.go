package app

import (
	"math"

	"github.com/montanaflynn/stats"

	"pkemu/domain/cosmology"
	"pkemu/domain/run"
)

// Summarize computes per-parameter statistics over the finite scaled
// values. Parameters with no finite values get zero statistics.
func Summarize(params []cosmology.Parameter, cosmologies []cosmology.Cosmology) []run.ParameterSummary {
	out := make([]run.ParameterSummary, 0, len(params))
	for _, p := range params {
		summary := run.ParameterSummary{Name: p.Name, Prior: p.Prior.String()}

		data := make(stats.Float64Data, 0, len(cosmologies))
		for _, c := range cosmologies {
			v, ok := c.Get(p.Name)
			if !ok {
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				summary.NonFinite++
				continue
			}
			data = append(data, v)
		}

		if len(data) > 0 {
			summary.Min, _ = data.Min()
			summary.Max, _ = data.Max()
			summary.Mean, _ = data.Mean()
			summary.StdDev, _ = data.StandardDeviation()
		}
		out = append(out, summary)
	}
	return out
}
