package profiling

import (
	"math"
	"testing"

	"cimpute/domain/core"
	"cimpute/domain/quant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{4, nan, 1, 3, 2})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Median)
	assert.InDelta(t, math.Sqrt(1.25), s.StdDev, 1e-12)
	assert.InDelta(t, 0, s.Skewness, 1e-12, "symmetric")
}

func TestSummarize_Empty(t *testing.T) {
	s, err := Summarize([]float64{nan, nan})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)
}

func TestSkewnessSign(t *testing.T) {
	right, err := Summarize([]float64{1, 1, 1, 2, 10})
	require.NoError(t, err)
	assert.Greater(t, right.Skewness, 0.0)

	left, err := Summarize([]float64{-10, -2, -1, -1, -1})
	require.NoError(t, err)
	assert.Less(t, left.Skewness, 0.0)
}

func TestCompareImputation(t *testing.T) {
	ids := []core.EntityID{"P1", "P2", "P3"}
	cols := []string{"A_1", "A_2", "B_1"}
	raw, err := quant.NewMatrix(ids, cols, [][]float64{
		{10, nan, 8},
		{12, 14, nan},
		{nan, nan, 9},
	})
	require.NoError(t, err)
	imputed, err := quant.NewMatrix(ids, cols, [][]float64{
		{10, 2, 8},
		{12, 14, nan},
		{3, 7, 9},
	})
	require.NoError(t, err)

	result := &quant.Result{
		Matrix: imputed,
		Bounds: quant.DetectionBounds{DMin: 1, UpMNAR: 5, DMax: 14},
	}
	groups := quant.GroupColumns{
		{Name: "A", Columns: []string{"A_1", "A_2"}},
		{Name: "B", Columns: []string{"B_1"}},
	}

	profiles, err := CompareImputation(raw, result, groups)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	a := profiles[0]
	assert.Equal(t, core.GroupName("A"), a.Group)
	assert.Equal(t, 3, a.Observed.Count)
	assert.Equal(t, 12.0, a.Observed.Mean)
	assert.Equal(t, 3, a.Imputed.Count)
	assert.Equal(t, 4.0, a.Imputed.Mean)
	assert.InDelta(t, 2.0/3.0, a.ImputedLowFraction, 1e-12)

	b := profiles[1]
	assert.Equal(t, 2, b.Observed.Count)
	assert.Equal(t, 0, b.Imputed.Count, "P2 stayed missing")
	assert.Equal(t, 0.0, b.ImputedLowFraction)
}

func TestCompareImputation_ShapeMismatch(t *testing.T) {
	raw, err := quant.NewMatrix([]core.EntityID{"P1"}, []string{"A_1"}, [][]float64{{1}})
	require.NoError(t, err)
	result := &quant.Result{Matrix: &quant.Matrix{}}

	_, err = CompareImputation(raw, result, quant.GroupColumns{{Name: "A", Columns: []string{"A_1"}}})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestCompareImputation_GroupColumnAbsent(t *testing.T) {
	ids := []core.EntityID{"P1"}
	raw, err := quant.NewMatrix(ids, []string{"A_1", "A_2"}, [][]float64{{1, nan}})
	require.NoError(t, err)
	imputed, err := quant.NewMatrix(ids, []string{"A_1"}, [][]float64{{1}})
	require.NoError(t, err)

	_, err = CompareImputation(raw, &quant.Result{Matrix: imputed},
		quant.GroupColumns{{Name: "A", Columns: []string{"A_1", "A_2"}}})
	assert.ErrorIs(t, err, core.ErrColumnNotFound)
}
