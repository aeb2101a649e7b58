package imputation

import (
	"cimpute/domain/core"
	"cimpute/domain/quant"

	"gonum.org/v1/gonum/floats"
)

// GetLimits computes the detection bounds over the given columns of m; nil columns means
// every column. up_mnar = d_min + locationFraction*(d_max-d_min).
func GetLimits(m *quant.Matrix, columns []string, locationFraction float64) (quant.DetectionBounds, error) {
	if err := validateLocationFraction(locationFraction); err != nil {
		return quant.DetectionBounds{}, err
	}
	if columns == nil {
		columns = m.Columns
	}
	sel, err := m.Select(columns)
	if err != nil {
		return quant.DetectionBounds{}, err
	}
	return computeBounds(sel.Data, len(columns), locationFraction)
}

func computeBounds(data [][]float64, columns int, locationFraction float64) (quant.DetectionBounds, error) {
	observed := make([]float64, 0, len(data)*columns)
	for _, row := range data {
		for _, v := range row {
			if !quant.IsMissing(v) {
				observed = append(observed, v)
			}
		}
	}
	if len(observed) == 0 {
		return quant.DetectionBounds{}, core.NewEmptyInputError(columns)
	}

	dMin, dMax := floats.Min(observed), floats.Max(observed)
	return quant.DetectionBounds{
		DMin:   dMin,
		UpMNAR: dMin + locationFraction*(dMax-dMin),
		DMax:   dMax,
	}, nil
}
