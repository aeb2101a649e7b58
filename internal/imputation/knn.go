package imputation

import (
	"fmt"
	"math"
	"sort"

	"cimpute/domain/core"
	"cimpute/domain/quant"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ImputeKNN fills missing cells from the k nearest rows of the same partition.
//
// Distances are nan-Euclidean: only coordinates observed in both rows contribute and the
// sum is scaled by ncols/nshared. Donors for a cell are the other rows observing that
// column. With fewer than k donors all of them are used; when no donor shares an observed
// coordinate with the receiver the column mean is used; a column observed in no row
// stays missing. The input is not modified.
func ImputeKNN(rows [][]float64, k int, weights Weighting) ([][]float64, error) {
	if k < 1 {
		return nil, core.NewInvalidConfigError("n_neighbors", fmt.Sprintf("%d is below 1", k))
	}
	if len(rows) == 0 {
		return [][]float64{}, nil
	}
	if k > len(rows) {
		return nil, fmt.Errorf("%w: %d rows, n_neighbors is %d", core.ErrInsufficientSamples, len(rows), k)
	}

	nr, nc := len(rows), len(rows[0])
	if nc == 0 {
		return cloneRows(rows), nil
	}
	x := mat.NewDense(nr, nc, nil)
	for i, row := range rows {
		if len(row) != nc {
			return nil, core.NewShapeMismatchError("knn", fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), nc))
		}
		x.SetRow(i, row)
	}
	out := mat.DenseCopyOf(x)

	colMeans := observedColumnMeans(x)
	dist := make([]float64, nr)
	for i := 0; i < nr; i++ {
		receiver := x.RawRowView(i)
		if quant.CountMissing(receiver) == 0 {
			continue
		}
		for j := 0; j < nr; j++ {
			dist[j] = nanEuclidean(receiver, x.RawRowView(j))
		}

		for c := 0; c < nc; c++ {
			if !quant.IsMissing(receiver[c]) {
				continue
			}
			if v, ok := neighborEstimate(x, dist, i, c, k, weights); ok {
				out.Set(i, c, v)
			} else if !quant.IsMissing(colMeans[c]) {
				out.Set(i, c, colMeans[c])
			}
		}
	}

	filled := make([][]float64, nr)
	for i := range filled {
		filled[i] = mat.Row(nil, i, out)
	}
	return filled, nil
}

// neighborEstimate averages column c over the k nearest donors of row i
func neighborEstimate(x *mat.Dense, dist []float64, i, c, k int, weights Weighting) (float64, bool) {
	nr, _ := x.Dims()
	donors := make([]int, 0, nr)
	for j := 0; j < nr; j++ {
		if j == i || quant.IsMissing(x.At(j, c)) || math.IsNaN(dist[j]) {
			continue
		}
		donors = append(donors, j)
	}
	if len(donors) == 0 {
		return 0, false
	}

	sort.SliceStable(donors, func(a, b int) bool { return dist[donors[a]] < dist[donors[b]] })
	if len(donors) > k {
		donors = donors[:k]
	}

	values := make([]float64, len(donors))
	w := make([]float64, len(donors))
	exact := false
	for n, j := range donors {
		values[n] = x.At(j, c)
		if dist[j] == 0 {
			exact = true
		}
	}
	for n, j := range donors {
		switch {
		case weights != WeightDistance:
			w[n] = 1
		case exact:
			// zero-distance donors take all the weight
			if dist[j] == 0 {
				w[n] = 1
			}
		default:
			w[n] = 1 / dist[j]
		}
	}
	return floats.Dot(w, values) / floats.Sum(w), true
}

// nanEuclidean is the Euclidean distance over coordinates observed in both rows, scaled
// up for the coordinates that could not be compared. NaN when nothing is shared.
func nanEuclidean(a, b []float64) float64 {
	shared := 0
	sum := 0.0
	for c := range a {
		if quant.IsMissing(a[c]) || quant.IsMissing(b[c]) {
			continue
		}
		d := a[c] - b[c]
		sum += d * d
		shared++
	}
	if shared == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(len(a)) / float64(shared) * sum)
}

func observedColumnMeans(x *mat.Dense) []float64 {
	nr, nc := x.Dims()
	means := make([]float64, nc)
	for c := 0; c < nc; c++ {
		col := make([]float64, 0, nr)
		for i := 0; i < nr; i++ {
			if v := x.At(i, c); !quant.IsMissing(v) {
				col = append(col, v)
			}
		}
		if len(col) == 0 {
			means[c] = quant.Missing
			continue
		}
		means[c] = floats.Sum(col) / float64(len(col))
	}
	return means
}

func cloneRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
