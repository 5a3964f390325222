package distribution

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/labsinal/celltrack/internal/mitosis"
)

func TestDays(t *testing.T) {
	got := Days([]float64{0, 24, 48}, DefaultFrameInterval)
	if diff := cmp.Diff([]float64{0, 0.5, 1}, got); diff != "" {
		t.Errorf("Days mismatch (-want +got):\n%s", diff)
	}
	if got := Days([]float64{6}, 10); got[0] != 6*10.0/60/24 {
		t.Errorf("Days with 10 min interval = %v", got[0])
	}
}

func TestHistogram(t *testing.T) {
	testCases := []struct {
		name   string
		values []float64
		bins   int
		want   []Bin
	}{
		{
			name:   "max lands in last bin",
			values: []float64{4, 0, 2, 1, 3},
			bins:   4,
			want:   []Bin{{0, 1, 1}, {1, 2, 1}, {2, 3, 1}, {3, 4, 2}},
		},
		{
			name:   "single value",
			values: []float64{5, 5},
			bins:   2,
			want:   []Bin{{4.5, 5, 0}, {5, 5.5, 2}},
		},
		{
			name: "empty",
			bins: 3,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Histogram(tc.values, tc.bins)
			if err != nil {
				t.Fatalf("Histogram failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("bins mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHistogram_BadBins(t *testing.T) {
	if _, err := Histogram([]float64{1}, 0); !errors.Is(err, ErrBins) {
		t.Errorf("expected ErrBins, got %v", err)
	}
}

func TestCount_IgnoresOutOfRange(t *testing.T) {
	got := Count([]float64{-1, 0, 5, 10, 11}, []float64{0, 5, 10})
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if Count([]float64{1}, []float64{0}) != nil {
		t.Error("expected nil for a single edge")
	}
}

func TestTable(t *testing.T) {
	tbl, err := Table([]Series{
		{Name: "a", Values: []float64{0, 2}},
		{Name: "b", Values: []float64{4}},
		{Name: "empty"},
	}, 2)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if diff := cmp.Diff([]string{"bin_start", "bin_end", "a", "b", "empty"}, tbl.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	want := [][]string{
		{"0", "2", "1", "0", "0"},
		{"2", "4", "1", "1", "0"},
	}
	if diff := cmp.Diff(want, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_RejectsNonFinite(t *testing.T) {
	testCases := []struct {
		name   string
		values []float64
	}{
		{"positive infinity", []float64{1, 2, math.Inf(1)}},
		{"negative infinity", []float64{math.Inf(-1), 1}},
		{"nan", []float64{math.NaN(), 1, 2}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Table([]Series{{Name: "m", Values: tc.values}}, 5); !errors.Is(err, ErrNonFinite) {
				t.Errorf("Table: expected ErrNonFinite, got %v", err)
			}
			if _, err := Edges(5, []float64{0}, tc.values); !errors.Is(err, ErrNonFinite) {
				t.Errorf("Edges: expected ErrNonFinite, got %v", err)
			}
			if _, err := Histogram(tc.values, 5); !errors.Is(err, ErrNonFinite) {
				t.Errorf("Histogram: expected ErrNonFinite, got %v", err)
			}
		})
	}
}

func TestCount_NonFiniteEdges(t *testing.T) {
	if got := Count([]float64{1, 2}, []float64{0, math.Inf(1)}); got != nil {
		t.Errorf("expected nil for infinite edges, got %v", got)
	}
	got := Count([]float64{math.NaN(), 1}, []float64{0, 2})
	if diff := cmp.Diff([]float64{1}, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_NoValues(t *testing.T) {
	tbl, err := Table([]Series{{Name: "a"}}, 5)
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if tbl.Len() != 0 {
		t.Errorf("expected no rows, got %d", tbl.Len())
	}
}

func TestMetrics(t *testing.T) {
	gt := []mitosis.Event{{T: 0, X: 10, Y: 10}, {T: 96, X: 500, Y: 500}}
	pred := []mitosis.Event{{ID: "1", T: 0, X: 12, Y: 9}, {ID: "2", T: 48, X: 900, Y: 900}}
	res := mitosis.Evaluate(gt, pred, mitosis.Tolerance{Time: 2, Position: 20})

	series := Metrics(gt, res, DefaultFrameInterval)
	got := make(map[string][]float64)
	for _, s := range series {
		got[s.Name] = s.Values
	}
	want := map[string][]float64{
		"detected":     {0, 1},
		"ground_truth": {0, 2},
		"tp":           {0},
		"fp":           {1},
		"fn":           {2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}
