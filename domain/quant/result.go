package quant

import (
	"cimpute/domain/core"
)

// Diagnostic column naming
const (
	ColCScore   = "c_score"
	ColCStd     = "c_std"
	PrefixScore = "CS"
	PrefixClass = "MV"
)

// ScoreColumn names the per-group confidence column
func ScoreColumn(g core.GroupName) string { return PrefixScore + "_" + g.String() }

// ClassColumn names the per-group classification column
func ClassColumn(g core.GroupName) string { return PrefixClass + "_" + g.String() }

// Result is the output of one imputation run. Every per-row slice is aligned with
// Matrix.EntityIDs, which follows the input row order.
type Result struct {
	RunID     core.RunID
	CreatedAt core.Timestamp
	InputHash core.Hash

	Bounds DetectionBounds
	Groups []core.GroupName

	// Imputed values for the union of group columns, grouped in Groups order
	Matrix *Matrix

	// Aggregate confidence across groups
	CScore []float64
	CStd   []float64

	GroupScores  map[core.GroupName][]float64
	GroupClasses map[core.GroupName][]MVClass

	Summary RunSummary
}

// GroupSummary reports what happened inside one group
type GroupSummary struct {
	Group         core.GroupName  `json:"group"`
	Counts        map[MVClass]int `json:"counts"`
	ImputedCells  int             `json:"imputed_cells"`
	ImputedRows   int             `json:"imputed_rows"`
	UntouchedRows int             `json:"untouched_rows"`
}

// RunSummary aggregates GroupSummary values over the run
type RunSummary struct {
	Groups           []GroupSummary `json:"groups"`
	MissingBefore    float64        `json:"missing_before"`
	MissingAfter     float64        `json:"missing_after"`
	MeanConfidence   float64        `json:"mean_confidence"`
	ImputedCells     int            `json:"imputed_cells"`
	RemainingMissing int            `json:"remaining_missing"`
}

// DiagnosticColumns lists the auxiliary columns in output order
func (r *Result) DiagnosticColumns() []string {
	cols := []string{ColCScore, ColCStd}
	for _, g := range r.Groups {
		cols = append(cols, ScoreColumn(g))
	}
	for _, g := range r.Groups {
		cols = append(cols, ClassColumn(g))
	}
	return cols
}

// DiagnosticRow renders row i of the diagnostic columns, numbers as float64 and classes
// as their labels.
func (r *Result) DiagnosticRow(i int) []interface{} {
	row := make([]interface{}, 0, 2+2*len(r.Groups))
	row = append(row, r.CScore[i], r.CStd[i])
	for _, g := range r.Groups {
		row = append(row, r.GroupScores[g][i])
	}
	for _, g := range r.Groups {
		row = append(row, r.GroupClasses[g][i].String())
	}
	return row
}
