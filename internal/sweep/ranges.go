// Package sweep searches the tolerance space of the mitosis evaluator:
// every combination of a time tolerance and a position tolerance is scored
// against the same ground truth and detections, and the best one reported.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxValues caps a generated range so a mistyped step cannot exhaust memory.
const maxValues = 10000

// RangeSpec is an inclusive float range.
type RangeSpec struct {
	Min, Max, Step float64
}

// IntRangeSpec is an inclusive integer range.
type IntRangeSpec struct {
	Min, Max, Step int
}

func splitSpec(s string) ([3]string, error) {
	var out [3]string
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return out, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out, nil
}

var specFields = [3]string{"min", "max", "step"}

// ParseRangeSpec parses "min:max:step". Step must be positive.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts, err := splitSpec(s)
	if err != nil {
		return RangeSpec{}, err
	}
	var v [3]float64
	for i, p := range parts {
		if v[i], err = strconv.ParseFloat(p, 64); err != nil {
			return RangeSpec{}, fmt.Errorf("invalid %s value %q: %w", specFields[i], p, err)
		}
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return RangeSpec{}, fmt.Errorf("invalid %s value %q: not finite", specFields[i], p)
		}
	}
	if v[2] <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %g", v[2])
	}
	return RangeSpec{Min: v[0], Max: v[1], Step: v[2]}, nil
}

// ParseIntRangeSpec parses an integer "min:max:step". Step must be positive.
func ParseIntRangeSpec(s string) (IntRangeSpec, error) {
	parts, err := splitSpec(s)
	if err != nil {
		return IntRangeSpec{}, err
	}
	var v [3]int
	for i, p := range parts {
		if v[i], err = strconv.Atoi(p); err != nil {
			return IntRangeSpec{}, fmt.Errorf("invalid %s value %q: %w", specFields[i], p, err)
		}
	}
	if v[2] <= 0 {
		return IntRangeSpec{}, fmt.Errorf("step must be positive, got %d", v[2])
	}
	return IntRangeSpec{Min: v[0], Max: v[1], Step: v[2]}, nil
}

// Values expands the range. Values are rounded to three decimals so that
// 0.1 steps do not accumulate error. Empty when Min > Max or the range
// would exceed maxValues.
func (r RangeSpec) Values() []float64 {
	if r.Step <= 0 || r.Min > r.Max || (r.Max-r.Min)/r.Step+1 > maxValues {
		return nil
	}
	var out []float64
	for i := 0; len(out) < maxValues; i++ {
		v := math.Round((r.Min+float64(i)*r.Step)*1000) / 1000
		if v > r.Max {
			break
		}
		out = append(out, v)
	}
	return out
}

// Values expands the range, with the same limits as RangeSpec.Values. The
// span is measured unsigned so ranges near the int limits neither overflow
// nor wrap.
func (r IntRangeSpec) Values() []int {
	if r.Step <= 0 || r.Min > r.Max {
		return nil
	}
	steps := (uint64(r.Max) - uint64(r.Min)) / uint64(r.Step)
	if steps >= maxValues {
		return nil
	}
	out := make([]int, 0, steps+1)
	for i := uint64(0); i <= steps; i++ {
		out = append(out, int(uint64(r.Min)+i*uint64(r.Step)))
	}
	return out
}

// ParseParamList accepts either "min:max:step" or a comma-separated list.
func ParseParamList(s string) ([]float64, error) {
	if strings.Contains(s, ":") {
		spec, err := ParseRangeSpec(s)
		if err != nil {
			return nil, err
		}
		return spec.Values(), nil
	}
	return ParseCSVFloat64s(s)
}

// ParseIntParamList is ParseParamList for integers.
func ParseIntParamList(s string) ([]int, error) {
	if strings.Contains(s, ":") {
		spec, err := ParseIntRangeSpec(s)
		if err != nil {
			return nil, err
		}
		return spec.Values(), nil
	}
	return ParseCSVInts(s)
}
