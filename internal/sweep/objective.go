package sweep

import (
	"fmt"
	"strings"

	"github.com/labsinal/celltrack/internal/mitosis"
)

// EvalContext is everything an objective needs besides the tolerance. It is
// read-only once built, so one context can back many objectives.
type EvalContext struct {
	GroundTruth []mitosis.Event
	Predicted   []mitosis.Event
}

// Objective scores one tolerance.
type Objective func(tol mitosis.Tolerance) mitosis.Result

// NewObjective binds an objective to ec.
func NewObjective(ec *EvalContext) Objective {
	return func(tol mitosis.Tolerance) mitosis.Result {
		return mitosis.Evaluate(ec.GroundTruth, ec.Predicted, tol)
	}
}

// Metric picks the score a sweep maximises.
type Metric string

const (
	MetricF1        Metric = "f1"
	MetricPrecision Metric = "precision"
	MetricRecall    Metric = "recall"
)

// ParseMetric accepts f1, precision or recall, case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricF1, MetricPrecision, MetricRecall:
		return m, nil
	}
	return "", fmt.Errorf("unknown metric %q: want f1, precision or recall", s)
}

// Value extracts the metric from a result. Unknown metrics read as F1.
func (m Metric) Value(r mitosis.Result) float64 {
	switch m {
	case MetricPrecision:
		return r.Precision
	case MetricRecall:
		return r.Recall
	}
	return r.F1
}
