package sweep

import (
	"context"
	"errors"

	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/monitoring"
)

// ErrEmptyGrid is returned when a grid has no combinations.
var ErrEmptyGrid = errors.New("sweep: empty grid")

// Grid lists the tolerances to try. Times are whole frames.
type Grid struct {
	Times     []int
	Positions []float64
}

// Size is the number of combinations.
func (g Grid) Size() int { return len(g.Times) * len(g.Positions) }

// Combo is one scored tolerance.
type Combo struct {
	Tolerance mitosis.Tolerance
	Result    mitosis.Result
}

// Report is the outcome of a sweep.
type Report struct {
	Combos []Combo
	// Best indexes Combos; earlier combinations win ties.
	Best   int
	Metric Metric
}

// BestCombo returns the winning combination.
func (r *Report) BestCombo() Combo { return r.Combos[r.Best] }

// Options controls Run.
type Options struct {
	Metric Metric
	// Out, when set, receives one row per combination as it is scored.
	Out *CSVWriter
}

// Run scores every combination of grid, time-major, stopping early when ctx
// is done.
func Run(ctx context.Context, obj Objective, grid Grid, opts Options) (*Report, error) {
	if grid.Size() == 0 {
		return nil, ErrEmptyGrid
	}
	if opts.Metric == "" {
		opts.Metric = MetricF1
	}

	rep := &Report{Combos: make([]Combo, 0, grid.Size()), Metric: opts.Metric}
	for _, t := range grid.Times {
		for _, p := range grid.Positions {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tol := mitosis.Tolerance{Time: float64(t), Position: p}
			c := Combo{Tolerance: tol, Result: obj(tol)}
			rep.Combos = append(rep.Combos, c)
			if i := len(rep.Combos) - 1; opts.Metric.Value(c.Result) > opts.Metric.Value(rep.Combos[rep.Best].Result) {
				rep.Best = i
			}
			if opts.Out != nil {
				if err := opts.Out.WriteCombo(c); err != nil {
					return nil, err
				}
			}
			monitoring.Debugf("sweep: t=%d pos=%g F1=%.4f", t, p, c.Result.F1)
		}
	}
	if opts.Out != nil {
		if err := opts.Out.Flush(); err != nil {
			return nil, err
		}
	}
	return rep, nil
}
