package imputation

import (
	"math"

	"cimpute/domain/quant"
)

// ConfidenceScore rates how trustworthy imputing this row would be, in [0,1].
//
//	NoMissing  1
//	MAR        0
//	MCAR       present/n
//	MNAR       missing/n
//
// Fractions are rounded to two decimals, halves to even.
func ConfidenceScore(row []float64, class quant.MVClass) float64 {
	n := len(row)
	if n == 0 {
		return 0
	}
	missing := quant.CountMissing(row)

	switch class {
	case quant.NoMissing:
		return 1
	case quant.MCAR:
		return round2(float64(n-missing) / float64(n))
	case quant.MNAR:
		return round2(float64(missing) / float64(n))
	default:
		return 0
	}
}

// round2 rounds to two decimals with ties to even, so 0.625 becomes 0.62
func round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
