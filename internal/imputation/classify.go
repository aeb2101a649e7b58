package imputation

import (
	"cimpute/domain/quant"
)

// rowCounts splits a group row relative to the MNAR boundary
type rowCounts struct {
	n         int
	missing   int
	above     int
	belowOrEq int
}

func countRow(row []float64, upMNAR float64) rowCounts {
	c := rowCounts{n: len(row)}
	for _, v := range row {
		switch {
		case quant.IsMissing(v):
			c.missing++
		case v > upMNAR:
			c.above++
		default:
			c.belowOrEq++
		}
	}
	return c
}

type classGuard struct {
	class quant.MVClass
	match func(rowCounts) bool
}

// classGuards is evaluated in order and the first match wins. NoMissing comes first so
// a fully observed row that sits on one side of the boundary is never reported as
// MNAR or MCAR. The final guard always matches, which makes Classify total.
var classGuards = []classGuard{
	{quant.NoMissing, func(c rowCounts) bool { return c.missing == 0 }},
	{quant.MNAR, func(c rowCounts) bool { return c.belowOrEq+c.missing == c.n }},
	{quant.MCAR, func(c rowCounts) bool { return c.above+c.missing == c.n }},
	{quant.MAR, func(rowCounts) bool { return true }},
}

// Classify assigns the missing-value class of one entity within one group.
// A row with every value missing is MNAR.
func Classify(row []float64, upMNAR float64) quant.MVClass {
	c := countRow(row, upMNAR)
	for _, g := range classGuards {
		if g.match(c) {
			return g.class
		}
	}
	return quant.MAR
}
