package imputation

import (
	"math/rand"

	"cimpute/domain/quant"

	"gonum.org/v1/gonum/stat/distuv"
)

// ImputeMinProb replaces every missing cell with an independent draw from a normal
// distribution truncated to [0,1], shifted by the detection limit and stretched by
// bounds.Scale(). Results therefore lie in [DMin, DMin+Scale]. This follows the MinProb
// approach for left-censored values (Lazar et al., 2016). The input is not modified.
func ImputeMinProb(rows [][]float64, bounds quant.DetectionBounds, r *rand.Rand) [][]float64 {
	out := cloneRows(rows)
	scale := bounds.Scale()
	for _, row := range out {
		for c, v := range row {
			if quant.IsMissing(v) {
				row[c] = bounds.DMin + truncatedUnitNormal(r)*scale
			}
		}
	}
	return out
}

var (
	cdfLower = distuv.UnitNormal.CDF(0)
	cdfUpper = distuv.UnitNormal.CDF(1)
)

// truncatedUnitNormal samples N(0,1) restricted to [0,1] by inverse transform
func truncatedUnitNormal(r *rand.Rand) float64 {
	u := cdfLower + r.Float64()*(cdfUpper-cdfLower)
	t := distuv.UnitNormal.Quantile(u)
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}
