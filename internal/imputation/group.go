package imputation

import (
	"math/rand"

	"cimpute/domain/core"
	"cimpute/domain/quant"
)

// strategy is the fill method applied to one class partition
type strategy int

const (
	strategyNone strategy = iota
	strategyKNN
	strategyMinProb
)

// strategyFor maps a class to its fill method. MAR borrows the MCAR method only when the
// confidence gate is disabled (minCS == 0).
func strategyFor(class quant.MVClass, minCS float64) strategy {
	switch class {
	case quant.MCAR:
		return strategyKNN
	case quant.MNAR:
		return strategyMinProb
	case quant.MAR:
		if minCS == 0 {
			return strategyKNN
		}
	}
	return strategyNone
}

// groupPlan holds the classification and gating decisions for one group before any
// values are written.
type groupPlan struct {
	group   core.GroupName
	data    *quant.Matrix
	classes []quant.MVClass
	scores  []float64

	// row indices per class whose score reached min_cs
	selected map[quant.MVClass][]int
}

func planGroup(group quant.Group, data *quant.Matrix, bounds quant.DetectionBounds, minCS float64) *groupPlan {
	p := &groupPlan{
		group:    group.Name,
		data:     data,
		classes:  make([]quant.MVClass, data.RowCount()),
		scores:   make([]float64, data.RowCount()),
		selected: make(map[quant.MVClass][]int, len(quant.Classes)),
	}
	for i, row := range data.Data {
		class := Classify(row, bounds.UpMNAR)
		score := ConfidenceScore(row, class)
		p.classes[i] = class
		p.scores[i] = score
		if score >= minCS {
			p.selected[class] = append(p.selected[class], i)
		}
	}
	return p
}

// gatedOut lists the imputable classes present in the group whose rows all fell below min_cs
func (p *groupPlan) gatedOut(minCS float64) []quant.MVClass {
	present := make(map[quant.MVClass]bool)
	for _, c := range p.classes {
		present[c] = true
	}
	var out []quant.MVClass
	for _, class := range quant.Classes {
		if present[class] && len(p.selected[class]) == 0 && strategyFor(class, minCS) != strategyNone {
			out = append(out, class)
		}
	}
	return out
}

// check verifies every KNN partition can supply k neighbors
func (p *groupPlan) check(opts Options) error {
	for _, class := range quant.Classes {
		rows := len(p.selected[class])
		if rows == 0 || strategyFor(class, opts.MinCS) != strategyKNN {
			continue
		}
		if opts.NNeighbors > rows {
			return core.NewInsufficientSamplesError(p.group, class.String(), rows, opts.NNeighbors)
		}
	}
	return nil
}

// execute fills the selected partitions into a copy of the group data
func (p *groupPlan) execute(opts Options, bounds quant.DetectionBounds, r *rand.Rand) (*quant.Matrix, quant.GroupSummary, error) {
	out := p.data.Clone()
	for _, class := range quant.Classes {
		idx := p.selected[class]
		if len(idx) == 0 {
			continue
		}

		rows := make([][]float64, len(idx))
		for n, i := range idx {
			rows[n] = out.Data[i]
		}

		var filled [][]float64
		switch strategyFor(class, opts.MinCS) {
		case strategyKNN:
			var err error
			filled, err = ImputeKNN(rows, opts.NNeighbors, opts.Weights)
			if err != nil {
				return nil, quant.GroupSummary{}, err
			}
		case strategyMinProb:
			filled = ImputeMinProb(rows, bounds, r)
		default:
			continue
		}

		for n, i := range idx {
			out.Data[i] = filled[n]
		}
	}
	return out, p.summarize(out), nil
}

func (p *groupPlan) summarize(out *quant.Matrix) quant.GroupSummary {
	s := quant.GroupSummary{
		Group:  p.group,
		Counts: make(map[quant.MVClass]int, len(quant.Classes)),
	}
	for i, class := range p.classes {
		s.Counts[class]++
		before := quant.CountMissing(p.data.Data[i])
		after := quant.CountMissing(out.Data[i])
		s.ImputedCells += before - after
		if after < before {
			s.ImputedRows++
		}
		if after > 0 {
			s.UntouchedRows++
		}
	}
	return s
}
