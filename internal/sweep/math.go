package sweep

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func parseList[T any](s, kind string, parse func(string) (T, error)) ([]T, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := parse(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s '%s': %w", kind, p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseCSVFloat64s parses a comma-separated list of floats. Blank items are
// skipped; an empty string gives nil.
func ParseCSVFloat64s(s string) ([]float64, error) {
	return parseList(s, "float", func(p string) (float64, error) {
		v, err := strconv.ParseFloat(p, 64)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return 0, errors.New("not finite")
		}
		return v, err
	})
}

// ParseCSVInts parses a comma-separated list of integers.
func ParseCSVInts(s string) ([]int, error) {
	return parseList(s, "int", strconv.Atoi)
}
