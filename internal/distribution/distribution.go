// Package distribution bins mitosis times into histograms, either for a
// single table or per evaluation outcome.
package distribution

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/tracks"
)

// DefaultFrameInterval is the acquisition interval, in minutes, of the lab's
// time-lapses.
const DefaultFrameInterval = 30

// ErrBins is returned for a non-positive bin count.
var ErrBins = errors.New("distribution: bins must be positive")

// ErrNonFinite is returned when a value to bin is NaN or infinite.
var ErrNonFinite = errors.New("distribution: value is not finite")

// Days converts frame numbers to days since the first frame.
func Days(frames []float64, intervalMinutes float64) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f * intervalMinutes / 60 / 24
	}
	return out
}

// Edges returns bins+1 equally spaced edges spanning every value in sets.
// A zero-width span is widened to one unit centred on the value. Edges is
// nil when sets hold no values, and fails with ErrNonFinite when any value
// is NaN or infinite.
func Edges(bins int, sets ...[]float64) ([]float64, error) {
	if bins <= 0 {
		return nil, ErrBins
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range sets {
		if len(s) == 0 {
			continue
		}
		if i := nonFinite(s); i >= 0 {
			return nil, fmt.Errorf("%w: %v", ErrNonFinite, s[i])
		}
		lo = math.Min(lo, floats.Min(s))
		hi = math.Max(hi, floats.Max(s))
	}
	if math.IsInf(lo, 1) {
		return nil, nil
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	return floats.Span(make([]float64, bins+1), lo, hi), nil
}

// nonFinite returns the index of the first NaN or infinite value, or -1.
func nonFinite(values []float64) int {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}

// Count bins values over edges. Bins are half-open except the last, which
// also holds values equal to the upper edge. Values outside the edges, and
// NaN values, are ignored. Edges must be finite.
func Count(values, edges []float64) []float64 {
	if len(edges) < 2 || nonFinite(edges) >= 0 {
		return nil
	}
	n := len(edges) - 1
	top := edges[n]
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= edges[0] && v <= top {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return make([]float64, n)
	}
	sort.Float64s(sorted)

	dividers := append([]float64(nil), edges...)
	dividers[n] = math.Nextafter(top, math.Inf(1))
	return stat.Histogram(make([]float64, n), dividers, sorted, nil)
}

// Bin is one histogram bar.
type Bin struct {
	Lo, Hi float64
	Count  float64
}

// Histogram bins values into equal-width bins over their own range.
func Histogram(values []float64, bins int) ([]Bin, error) {
	edges, err := Edges(bins, values)
	if err != nil || edges == nil {
		return nil, err
	}
	counts := Count(values, edges)
	out := make([]Bin, len(counts))
	for i, c := range counts {
		out[i] = Bin{Lo: edges[i], Hi: edges[i+1], Count: c}
	}
	return out, nil
}

// Series is a named set of values sharing the bins of a table.
type Series struct {
	Name   string
	Values []float64
}

// Table bins every series over common edges and renders one row per bin:
// bin_start, bin_end, then one count column per series.
func Table(series []Series, bins int) (*tracks.Table, error) {
	sets := make([][]float64, len(series))
	header := []string{"bin_start", "bin_end"}
	for i, s := range series {
		sets[i] = s.Values
		header = append(header, s.Name)
	}
	out := tracks.New(header...)

	edges, err := Edges(bins, sets...)
	if err != nil || edges == nil {
		return out, err
	}
	counts := make([][]float64, len(series))
	for i, s := range series {
		counts[i] = Count(s.Values, edges)
	}
	for b := 0; b < len(edges)-1; b++ {
		row := []string{tracks.FormatFloat(edges[b]), tracks.FormatFloat(edges[b+1])}
		for i := range series {
			row = append(row, strconv.Itoa(int(counts[i][b])))
		}
		out.Append(row...)
	}
	return out, nil
}

// Metrics splits an evaluation into detected, ground_truth, tp, fp and fn
// series of times in days.
func Metrics(groundTruth []mitosis.Event, res mitosis.Result, intervalMinutes float64) []Series {
	var detected, tp, fp, fn []float64
	for _, c := range res.Predicted {
		detected = append(detected, c.T)
		switch c.Outcome {
		case mitosis.TruePositive:
			tp = append(tp, c.T)
		case mitosis.FalsePositive:
			fp = append(fp, c.T)
		}
	}
	for _, c := range res.Missed {
		fn = append(fn, c.T)
	}
	gt := make([]float64, len(groundTruth))
	for i, e := range groundTruth {
		gt[i] = e.T
	}

	return []Series{
		{Name: "detected", Values: Days(detected, intervalMinutes)},
		{Name: "ground_truth", Values: Days(gt, intervalMinutes)},
		{Name: "tp", Values: Days(tp, intervalMinutes)},
		{Name: "fp", Values: Days(fp, intervalMinutes)},
		{Name: "fn", Values: Days(fn, intervalMinutes)},
	}
}
