package imputation

import (
	"context"
	"fmt"

	"cimpute/domain/core"
	"cimpute/domain/quant"
	"cimpute/internal"
	"cimpute/ports"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// streamKey namespaces the per-group random streams so seeded runs are reproducible
const streamKey = "cimpute"

// Engine runs conditional imputation: classify missing values per group, score them and
// fill the confident ones with MinProb (MNAR) or KNN (MCAR).
type Engine struct {
	rng    ports.RNGPort
	logger *internal.Logger
}

// NewEngine creates an engine. A nil logger falls back to internal.DefaultLogger.
func NewEngine(rng ports.RNGPort, logger *internal.Logger) *Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{rng: rng, logger: logger.With("Engine")}
}

// Run imputes every group of m and attaches confidence diagnostics. The output keeps the
// input row order. All validation, including KNN partition sizes, happens before any
// value is imputed; on error no result is returned.
func (e *Engine) Run(ctx context.Context, m *quant.Matrix, groups quant.GroupColumns, opts Options) (*quant.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, core.NewShapeMismatchError("matrix", "nil")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := groups.Validate(m); err != nil {
		return nil, err
	}

	// bounds always cover every mapped group, even when only a subset is imputed
	bounds, err := GetLimits(m, groups.AllColumns(), opts.LocationFraction)
	if err != nil {
		return nil, err
	}
	if len(opts.Groups) > 0 {
		if groups, err = groups.Subset(opts.Groups); err != nil {
			return nil, err
		}
	}

	plans := make([]*groupPlan, len(groups))
	for i, g := range groups {
		data, err := m.Select(g.Columns)
		if err != nil {
			return nil, err
		}
		plans[i] = planGroup(g, data, bounds, opts.MinCS)
		if err := plans[i].check(opts); err != nil {
			return nil, err
		}
		for _, class := range plans[i].gatedOut(opts.MinCS) {
			e.logger.Warn("group %s: no %s row reaches min_cs=%.2f, partition left as is", g.Name, class, opts.MinCS)
		}
	}

	runID := core.NewRunID()
	e.logger.Info("run %s: %d rows, %d groups, d_min=%.4g up_mnar=%.4g d_max=%.4g",
		runID, m.RowCount(), len(groups), bounds.DMin, bounds.UpMNAR, bounds.DMax)

	outputs := make([]*quant.Matrix, len(plans))
	summaries := make([]quant.GroupSummary, len(plans))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Workers)
	for i, p := range plans {
		i, p := i, p
		eg.Go(func() error {
			r, err := e.rng.Stream(egCtx, streamKey, p.group.String(), opts.Seed)
			if err != nil {
				return err
			}
			out, summary, err := p.execute(opts, bounds, r)
			if err != nil {
				return fmt.Errorf("group %s: %w", p.group, err)
			}
			outputs[i], summaries[i] = out, summary
			e.logger.Debug("group %s: NM=%d MCAR=%d MNAR=%d MAR=%d imputed_cells=%d untouched_rows=%d",
				p.group, summary.Counts[quant.NoMissing], summary.Counts[quant.MCAR],
				summary.Counts[quant.MNAR], summary.Counts[quant.MAR],
				summary.ImputedCells, summary.UntouchedRows)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged, err := quant.ConcatColumns(outputs...)
	if err != nil {
		return nil, err
	}
	if merged.RowCount() != m.RowCount() {
		return nil, core.NewShapeMismatchError("merge",
			fmt.Sprintf("%d rows after merge, expected %d", merged.RowCount(), m.RowCount()))
	}

	result := &quant.Result{
		RunID:        runID,
		CreatedAt:    core.Now(),
		InputHash:    m.Fingerprint(),
		Bounds:       bounds,
		Groups:       groups.Names(),
		Matrix:       merged,
		GroupScores:  make(map[core.GroupName][]float64, len(plans)),
		GroupClasses: make(map[core.GroupName][]quant.MVClass, len(plans)),
	}
	for _, p := range plans {
		result.GroupScores[p.group] = p.scores
		result.GroupClasses[p.group] = p.classes
	}
	result.CScore, result.CStd = aggregateScores(plans, m.RowCount())
	result.Summary = summarizeRun(summaries, plans, merged, result.CScore)

	e.logger.Info("run %s: imputed %d cells, %d still missing",
		runID, result.Summary.ImputedCells, result.Summary.RemainingMissing)
	return result, nil
}

// aggregateScores returns per-row mean and population std of the group scores
func aggregateScores(plans []*groupPlan, rows int) ([]float64, []float64) {
	means := make([]float64, rows)
	stds := make([]float64, rows)
	scores := make([]float64, len(plans))
	for i := 0; i < rows; i++ {
		for g, p := range plans {
			scores[g] = p.scores[i]
		}
		mean, err := stats.Mean(scores)
		if err != nil {
			continue
		}
		std, err := stats.StandardDeviationPopulation(scores)
		if err != nil {
			continue
		}
		means[i], stds[i] = round2(mean), round2(std)
	}
	return means, stds
}

func summarizeRun(groups []quant.GroupSummary, plans []*groupPlan, merged *quant.Matrix, cScore []float64) quant.RunSummary {
	s := quant.RunSummary{Groups: groups}

	before := 0
	for _, p := range plans {
		before += p.data.MissingCount()
	}
	after := merged.MissingCount()
	cells := merged.RowCount() * merged.ColumnCount()
	if cells > 0 {
		s.MissingBefore = float64(before) / float64(cells)
		s.MissingAfter = float64(after) / float64(cells)
	}
	for _, g := range groups {
		s.ImputedCells += g.ImputedCells
	}
	s.RemainingMissing = after

	if mean, err := stats.Mean(cScore); err == nil {
		s.MeanConfidence = round2(mean)
	}
	return s
}
