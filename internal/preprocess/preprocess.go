// Package preprocess holds the table transforms that usually run before imputation:
// dropping sparsely quantified entities and moving intensities onto a log2 scale.
package preprocess

import (
	"fmt"
	"math"

	"cimpute/domain/core"
	"cimpute/domain/quant"
)

// FilterGroups keeps the rows that have at least minPresentFraction observed values
// in at least one group. Row order is preserved and the input is not modified.
func FilterGroups(m *quant.Matrix, groups quant.GroupColumns, minPresentFraction float64) (*quant.Matrix, error) {
	if math.IsNaN(minPresentFraction) || minPresentFraction < 0 || minPresentFraction > 1 {
		return nil, core.NewInvalidConfigError("min_present_fraction",
			fmt.Sprintf("%v is outside [0, 1]", minPresentFraction))
	}
	if m == nil {
		return nil, core.NewEmptyInputError(0)
	}
	if err := groups.Validate(m); err != nil {
		return nil, err
	}

	idx := make([][]int, len(groups))
	for gi, g := range groups {
		for _, c := range g.Columns {
			ci, _ := m.ColumnIndex(c)
			idx[gi] = append(idx[gi], ci)
		}
	}

	out := &quant.Matrix{Columns: append([]string(nil), m.Columns...)}
	for r, row := range m.Data {
		if !keepRow(row, idx, minPresentFraction) {
			continue
		}
		out.Data = append(out.Data, append([]float64(nil), row...))
		out.EntityIDs = append(out.EntityIDs, m.EntityIDs[r])
	}
	return out, nil
}

func keepRow(row []float64, groupIdx [][]int, minFraction float64) bool {
	for _, cols := range groupIdx {
		present := 0
		for _, c := range cols {
			if !quant.IsMissing(row[c]) {
				present++
			}
		}
		if float64(present)/float64(len(cols)) >= minFraction {
			return true
		}
	}
	return false
}

// Log2 returns a copy of m with the named columns log2 transformed. Missing cells stay
// missing; zero or negative intensities cannot be transformed and are rejected.
func Log2(m *quant.Matrix, columns []string) (*quant.Matrix, error) {
	if m == nil {
		return nil, core.NewEmptyInputError(0)
	}
	out := m.Clone()

	for _, name := range columns {
		c, ok := out.ColumnIndex(name)
		if !ok {
			return nil, core.NewShapeMismatchError("log2", fmt.Sprintf("column %q not found", name))
		}
		for r := range out.Data {
			v := out.Data[r][c]
			if quant.IsMissing(v) {
				continue
			}
			if v <= 0 {
				return nil, core.NewInvalidConfigError("log2",
					fmt.Sprintf("non-positive value %v in %q for %s", v, name, out.EntityIDs[r]))
			}
			out.Data[r][c] = math.Log2(v)
		}
	}
	return out, nil
}
