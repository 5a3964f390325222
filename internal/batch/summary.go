package batch

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stat is a mean and sample standard deviation.
type Stat struct {
	Mean   float64
	StdDev float64
}

func describe(x []float64) Stat {
	if len(x) == 0 {
		return Stat{}
	}
	if len(x) == 1 {
		return Stat{Mean: x[0]}
	}
	mean, std := stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Stat{Mean: mean, StdDev: std}
}

// Summary aggregates the rows of one test.
type Summary struct {
	Test      int
	Dir       string
	Runs      int
	Precision Stat
	Recall    Stat
	F1        Stat
	// Best is the label of the run with the highest F1; the first wins ties.
	Best string
}

// Summarize groups rows by test, in the order tests first appear.
func Summarize(rows []Row) []Summary {
	var order []int
	byTest := make(map[int][]Row)
	for _, r := range rows {
		if _, ok := byTest[r.Test]; !ok {
			order = append(order, r.Test)
		}
		byTest[r.Test] = append(byTest[r.Test], r)
	}

	out := make([]Summary, 0, len(order))
	for _, test := range order {
		group := byTest[test]
		p := make([]float64, len(group))
		rc := make([]float64, len(group))
		f := make([]float64, len(group))
		best := 0
		for i, r := range group {
			p[i], rc[i], f[i] = r.Result.Precision, r.Result.Recall, r.Result.F1
			if f[i] > f[best] {
				best = i
			}
		}
		out = append(out, Summary{
			Test:      test,
			Dir:       group[0].Dir,
			Runs:      len(group),
			Precision: describe(p),
			Recall:    describe(rc),
			F1:        describe(f),
			Best:      group[best].Label,
		})
	}
	return out
}
