package imputation

import (
	"context"
	"math"
	"testing"

	"cimpute/adapters/rng"
	"cimpute/domain/core"
	"cimpute/domain/quant"
	"cimpute/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture: d_min=1, d_max=17, so up_mnar=5 at the default location fraction
//
//	     A_1 A_2 A_3 | B_1 B_2 B_3    A      B
//	P1    1   2  nan | 10  11  12    MNAR   NM
//	P2   10  11  12  | 10  nan 12    NM     MCAR
//	P3    9  10  11  |  9  10  11    NM     NM
//	P4   nan nan nan | 12  13  17    MNAR   NM
//	P5    2  nan 14  | 11  12  13    MAR    NM
//	P6   13  14  15  | 14  nan 16    NM     MCAR
//	P7   13  14  15  | 12  13  nan   NM     MCAR
func fixture(t *testing.T) (*quant.Matrix, quant.GroupColumns) {
	t.Helper()
	m, err := quant.NewMatrix(
		[]core.EntityID{"P1", "P2", "P3", "P4", "P5", "P6", "P7"},
		[]string{"A_1", "A_2", "A_3", "B_1", "B_2", "B_3"},
		[][]float64{
			{1, 2, nan, 10, 11, 12},
			{10, 11, 12, 10, nan, 12},
			{9, 10, 11, 9, 10, 11},
			{nan, nan, nan, 12, 13, 17},
			{2, nan, 14, 11, 12, 13},
			{13, 14, 15, 14, nan, 16},
			{13, 14, 15, 12, 13, nan},
		},
	)
	require.NoError(t, err)
	groups := quant.GroupColumns{
		{Name: "A", Columns: []string{"A_1", "A_2", "A_3"}},
		{Name: "B", Columns: []string{"B_1", "B_2", "B_3"}},
	}
	return m, groups
}

func testEngine() *Engine {
	return NewEngine(rng.New(), internal.NewLogger(internal.LogLevelError))
}

func testOptions(minCS float64) Options {
	opts := DefaultOptions()
	opts.MinCS = minCS
	opts.NNeighbors = 2
	opts.Seed = 11
	return opts
}

func cell(t *testing.T, r *quant.Result, id core.EntityID, column string) float64 {
	t.Helper()
	c, ok := r.Matrix.ColumnIndex(column)
	require.True(t, ok, "column %s", column)
	for i, rid := range r.Matrix.EntityIDs {
		if rid == id {
			return r.Matrix.Data[i][c]
		}
	}
	t.Fatalf("row %s not found", id)
	return 0
}

func rowOf(m *quant.Matrix, id core.EntityID) []float64 {
	for i, rid := range m.EntityIDs {
		if rid == id {
			return m.Data[i]
		}
	}
	return nil
}

func sameValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.IsNaN(a[i]) != math.IsNaN(b[i]) {
			return false
		}
		if !math.IsNaN(a[i]) && a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRun_ClassesAndScores(t *testing.T) {
	m, groups := fixture(t)

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(0.5))
	require.NoError(t, err)

	assert.Equal(t, quant.DetectionBounds{DMin: 1, UpMNAR: 5, DMax: 17}, res.Bounds)
	assert.Equal(t, []core.GroupName{"A", "B"}, res.Groups)
	assert.Equal(t,
		[]quant.MVClass{quant.MNAR, quant.NoMissing, quant.NoMissing, quant.MNAR, quant.MAR, quant.NoMissing, quant.NoMissing},
		res.GroupClasses["A"])
	assert.Equal(t,
		[]quant.MVClass{quant.NoMissing, quant.MCAR, quant.NoMissing, quant.NoMissing, quant.NoMissing, quant.MCAR, quant.MCAR},
		res.GroupClasses["B"])
	assert.Equal(t, []float64{0.33, 1, 1, 1, 0, 1, 1}, res.GroupScores["A"])
	assert.Equal(t, []float64{1, 0.67, 1, 1, 1, 0.67, 0.67}, res.GroupScores["B"])

	// P3 scores 1 everywhere, P5 scores 0 and 1
	assert.Equal(t, 1.0, res.CScore[2])
	assert.Equal(t, 0.0, res.CStd[2])
	assert.Equal(t, 0.5, res.CScore[4])
	assert.Equal(t, 0.5, res.CStd[4])
}

func TestRun_ImputesConfidentRows(t *testing.T) {
	m, groups := fixture(t)
	before := m.Fingerprint()

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(0.5))
	require.NoError(t, err)

	// P1 in A is MNAR with score 0.33: below the gate
	assert.True(t, math.IsNaN(cell(t, res, "P1", "A_3")))

	// P4 in A is MNAR with score 1: every cell sampled within [d_min, d_min+scale]
	hi := res.Bounds.DMin + res.Bounds.Scale()
	for _, c := range []string{"A_1", "A_2", "A_3"} {
		v := cell(t, res, "P4", c)
		assert.GreaterOrEqual(t, v, res.Bounds.DMin)
		assert.LessOrEqual(t, v, hi)
	}

	// P5 in A is MAR and min_cs is not 0
	assert.True(t, math.IsNaN(cell(t, res, "P5", "A_2")))

	// MCAR partition of B: P2, P6, P7
	assert.Equal(t, 13.0, cell(t, res, "P2", "B_2"))
	assert.Equal(t, 13.0, cell(t, res, "P6", "B_2"))
	assert.Equal(t, 14.0, cell(t, res, "P7", "B_3"))

	assert.Equal(t, before, m.Fingerprint(), "input matrix must not change")
}

func TestRun_PreservesShapeAndOrder(t *testing.T) {
	m, groups := fixture(t)

	// reorder groups: output columns follow the mapping, rows follow the input
	swapped := quant.GroupColumns{groups[1], groups[0]}
	res, err := testEngine().Run(context.Background(), m, swapped, testOptions(0.5))
	require.NoError(t, err)

	assert.Equal(t, m.EntityIDs, res.Matrix.EntityIDs)
	assert.Equal(t, len(groups.AllColumns()), res.Matrix.ColumnCount())
	assert.Equal(t, swapped.AllColumns(), res.Matrix.Columns)
	assert.Len(t, res.CScore, m.RowCount())
	assert.Len(t, res.CStd, m.RowCount())
	assert.Equal(t,
		[]string{"c_score", "c_std", "CS_B", "CS_A", "MV_B", "MV_A"},
		res.DiagnosticColumns())
	assert.Equal(t, []interface{}{0.5, 0.5, 1.0, 0.0, "NM", "MAR"}, res.DiagnosticRow(4))
}

func TestRun_MNARThresholdScenario(t *testing.T) {
	m, groups := fixture(t)

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(0.5))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(cell(t, res, "P1", "A_3")))

	res, err = testEngine().Run(context.Background(), m, groups, testOptions(0.3))
	require.NoError(t, err)
	v := cell(t, res, "P1", "A_3")
	assert.False(t, math.IsNaN(v))
	assert.GreaterOrEqual(t, v, 1.0)
	assert.LessOrEqual(t, v, 1.0+res.Bounds.Scale())
	assert.Equal(t, 1.0, cell(t, res, "P1", "A_1"))
	assert.Equal(t, 2.0, cell(t, res, "P1", "A_2"))
}

func TestRun_MCARThresholdGating(t *testing.T) {
	m, groups := fixture(t)
	const cs = 0.67

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(cs+0.01))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(cell(t, res, "P2", "B_2")))

	res, err = testEngine().Run(context.Background(), m, groups, testOptions(cs))
	require.NoError(t, err)
	for _, c := range []string{"B_1", "B_2", "B_3"} {
		assert.False(t, math.IsNaN(cell(t, res, "P2", c)))
	}
}

func TestRun_NoMissingRowsUntouched(t *testing.T) {
	m, groups := fixture(t)
	want := append([]float64(nil), rowOf(m, "P3")...)

	for _, minCS := range []float64{0.1, 0.5, 1} {
		for _, k := range []int{1, 2, 3} {
			opts := testOptions(minCS)
			opts.NNeighbors = k
			res, err := testEngine().Run(context.Background(), m, groups, opts)
			require.NoError(t, err, "min_cs=%v k=%d", minCS, k)
			assert.Equal(t, want, rowOf(res.Matrix, "P3"), "min_cs=%v k=%d", minCS, k)
		}
	}
}

func TestRun_MAROnlyWithZeroThreshold(t *testing.T) {
	m, groups := fixture(t)

	// A has a single MAR row, so two neighbors cannot be found
	_, err := testEngine().Run(context.Background(), m, groups, testOptions(0))
	assert.ErrorIs(t, err, core.ErrInsufficientSamples)

	opts := testOptions(0)
	opts.NNeighbors = 1
	opts.Groups = []core.GroupName{"A"}
	res, err := testEngine().Run(context.Background(), m, groups, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"A_1", "A_2", "A_3"}, res.Matrix.Columns)
	// the lone MAR row has no donor, and its column is not observed in the partition
	assert.True(t, math.IsNaN(cell(t, res, "P5", "A_2")))
	assert.Equal(t, 1, res.Summary.Groups[0].Counts[quant.MAR])
}

func TestRun_FullyMissingRowIsMNAR(t *testing.T) {
	m, groups := fixture(t)

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(1))
	require.NoError(t, err)
	assert.Equal(t, quant.MNAR, res.GroupClasses["A"][3])
	assert.Equal(t, 1.0, res.GroupScores["A"][3])
	for _, c := range []string{"A_1", "A_2", "A_3"} {
		assert.False(t, math.IsNaN(cell(t, res, "P4", c)))
	}
}

func TestRun_SeededRunsRepeatAcrossWorkerCounts(t *testing.T) {
	m, groups := fixture(t)

	sequential := testOptions(0.3)
	parallel := testOptions(0.3)
	parallel.Workers = 2

	a, err := testEngine().Run(context.Background(), m, groups, sequential)
	require.NoError(t, err)
	b, err := testEngine().Run(context.Background(), m, groups, parallel)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	for i := range a.Matrix.Data {
		assert.True(t, sameValues(a.Matrix.Data[i], b.Matrix.Data[i]), "row %d differs", i)
	}
}

func TestRun_Summary(t *testing.T) {
	m, groups := fixture(t)

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(0.5))
	require.NoError(t, err)

	s := res.Summary
	require.Len(t, s.Groups, 2)
	a, b := s.Groups[0], s.Groups[1]
	assert.Equal(t, core.GroupName("A"), a.Group)
	assert.Equal(t, 3, a.ImputedCells)
	assert.Equal(t, 1, a.ImputedRows)
	assert.Equal(t, 2, a.UntouchedRows)
	assert.Equal(t, 2, a.Counts[quant.MNAR])
	assert.Equal(t, 3, b.ImputedCells)
	assert.Equal(t, 0, b.UntouchedRows)
	assert.Equal(t, 3, b.Counts[quant.MCAR])

	assert.Equal(t, 6, s.ImputedCells)
	assert.Equal(t, 2, s.RemainingMissing)
	assert.InDelta(t, 8.0/42.0, s.MissingBefore, 1e-12)
	assert.InDelta(t, 2.0/42.0, s.MissingAfter, 1e-12)
	assert.Equal(t, res.InputHash, m.Fingerprint())
}

func TestRun_RejectsBadInput(t *testing.T) {
	m, groups := fixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Options, *quant.GroupColumns)
		want   error
	}{
		{"min_cs above 1", func(o *Options, _ *quant.GroupColumns) { o.MinCS = 1.5 }, core.ErrInvalidConfig},
		{"negative location", func(o *Options, _ *quant.GroupColumns) { o.LocationFraction = -0.1 }, core.ErrInvalidConfig},
		{"zero neighbors", func(o *Options, _ *quant.GroupColumns) { o.NNeighbors = 0 }, core.ErrInvalidConfig},
		{"unknown weighting", func(o *Options, _ *quant.GroupColumns) { o.Weights = "cosine" }, core.ErrInvalidConfig},
		{"unknown group", func(o *Options, _ *quant.GroupColumns) { o.Groups = []core.GroupName{"Z"} }, core.ErrInvalidConfig},
		{"absent column", func(_ *Options, g *quant.GroupColumns) {
			*g = quant.GroupColumns{{Name: "A", Columns: []string{"A_1", "A_9"}}}
		}, core.ErrShapeMismatch},
		{"too many neighbors", func(o *Options, _ *quant.GroupColumns) { o.NNeighbors = 4 }, core.ErrInsufficientSamples},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(0.5)
			g := append(quant.GroupColumns(nil), groups...)
			tt.mutate(&opts, &g)

			res, err := testEngine().Run(ctx, m, g, opts)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, res)
		})
	}
}

func TestRun_RejectsInfiniteValue(t *testing.T) {
	// built without NewMatrix so the engine's own validation is exercised
	m := &quant.Matrix{
		EntityIDs: []core.EntityID{"P1", "P2", "P3"},
		Columns:   []string{"A_1", "A_2", "A_3"},
		Data: [][]float64{
			{1, 2, nan},
			{3, math.Inf(1), 4},
			{5, 6, 7},
		},
	}
	groups := quant.GroupColumns{{Name: "A", Columns: []string{"A_1", "A_2", "A_3"}}}

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(0.3))
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	assert.Nil(t, res)
}

func TestRun_GroupSubsetKeepsFullBounds(t *testing.T) {
	m, groups := fixture(t)
	ctx := context.Background()

	full, err := testEngine().Run(ctx, m, groups, testOptions(0.5))
	require.NoError(t, err)

	opts := testOptions(0.5)
	opts.Groups = []core.GroupName{"B"}
	subset, err := testEngine().Run(ctx, m, groups, opts)
	require.NoError(t, err)

	assert.Equal(t, full.Bounds, subset.Bounds)
	assert.Equal(t, 1.0, subset.Bounds.DMin)
	assert.Equal(t, []core.GroupName{"B"}, subset.Groups)
	assert.Equal(t, []string{"B_1", "B_2", "B_3"}, subset.Matrix.Columns)
}

func TestRun_EmptyInput(t *testing.T) {
	m, err := quant.NewMatrix([]core.EntityID{"P1"}, []string{"A_1", "A_2"}, [][]float64{{nan, nan}})
	require.NoError(t, err)
	groups := quant.GroupColumns{{Name: "A", Columns: []string{"A_1", "A_2"}}}

	res, err := testEngine().Run(context.Background(), m, groups, testOptions(0.5))
	assert.ErrorIs(t, err, core.ErrEmptyInput)
	assert.Nil(t, res)
}

func TestRun_CancelledContext(t *testing.T) {
	m, groups := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEngine().Run(ctx, m, groups, testOptions(0.5))
	assert.ErrorIs(t, err, context.Canceled)
}
