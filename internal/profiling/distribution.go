// Package profiling summarizes intensity distributions before and after imputation.
package profiling

import (
	"math"

	"cimpute/domain/core"
	"cimpute/domain/quant"
	"cimpute/internal/groups"

	"github.com/montanaflynn/stats"
)

// Summary holds location and spread of a set of intensities
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
}

// GroupProfile contrasts the values observed in a group with the values imputed into it
type GroupProfile struct {
	Group    core.GroupName `json:"group"`
	Observed Summary        `json:"observed"`
	Imputed  Summary        `json:"imputed"`

	// Share of imputed values at or below the upper MNAR bound
	ImputedLowFraction float64 `json:"imputed_low_fraction"`
}

// Summarize describes data; missing values are skipped. An empty input gives a zero
// Summary.
func Summarize(data []float64) (Summary, error) {
	values := make([]float64, 0, len(data))
	for _, v := range data {
		if !quant.IsMissing(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return Summary{}, nil
	}

	s := Summary{Count: len(values)}
	var err error
	if s.Mean, err = stats.Mean(values); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(values); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(values); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(values); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(values); err != nil {
		return s, err
	}
	if s.Q25, err = stats.Percentile(values, 25); err != nil {
		return s, err
	}
	if s.Q75, err = stats.Percentile(values, 75); err != nil {
		return s, err
	}
	s.Skewness = calculateSkewness(values, s.Mean, s.StdDev)
	return s, nil
}

// CompareImputation profiles every group of result against the raw matrix it was
// computed from. raw must hold the result's rows and columns.
func CompareImputation(raw *quant.Matrix, result *quant.Result, mapping quant.GroupColumns) ([]GroupProfile, error) {
	imputed := result.Matrix
	if raw.RowCount() != imputed.RowCount() {
		return nil, core.NewShapeMismatchError("profile", "raw and imputed row counts differ")
	}

	owner := groups.ColumnGroups(mapping)
	observed := make(map[core.GroupName][]float64, len(mapping))
	filled := make(map[core.GroupName][]float64, len(mapping))
	found := 0
	for ii, col := range imputed.Columns {
		g, ok := owner[col]
		if !ok {
			continue
		}
		ri, ok := raw.ColumnIndex(col)
		if !ok {
			return nil, core.NewMissingColumnError(g, col)
		}
		found++
		for r := range raw.Data {
			before, after := raw.Data[r][ri], imputed.Data[r][ii]
			switch {
			case !quant.IsMissing(before):
				observed[g] = append(observed[g], before)
			case !quant.IsMissing(after):
				filled[g] = append(filled[g], after)
			}
		}
	}
	if found != len(owner) {
		for _, g := range mapping {
			for _, col := range g.Columns {
				if _, ok := imputed.ColumnIndex(col); !ok {
					return nil, core.NewMissingColumnError(g.Name, col)
				}
			}
		}
	}

	profiles := make([]GroupProfile, 0, len(mapping))
	for _, g := range mapping {
		p := GroupProfile{Group: g.Name}
		var err error
		if p.Observed, err = Summarize(observed[g.Name]); err != nil {
			return nil, err
		}
		if p.Imputed, err = Summarize(filled[g.Name]); err != nil {
			return nil, err
		}
		if n := len(filled[g.Name]); n > 0 {
			low := 0
			for _, v := range filled[g.Name] {
				if v <= result.Bounds.UpMNAR {
					low++
				}
			}
			p.ImputedLowFraction = float64(low) / float64(n)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n
	return skewness * math.Sqrt(n*(n-1)) / (n - 2)
}
