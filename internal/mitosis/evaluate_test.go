package mitosis

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/labsinal/celltrack/internal/testutil"
)

func ev(t, x, y float64) Event { return Event{T: t, X: x, Y: y} }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		gt, pred   []Event
		tol        Tolerance
		tp, fp, fn int
		p, r, f1   float64
	}{
		{
			name: "match inside the box",
			gt:   []Event{ev(10, 100, 100)},
			pred: []Event{ev(11, 105, 98)},
			tol:  Tolerance{Time: 3, Position: 20},
			tp:   1, p: 1, r: 1, f1: 1,
		},
		{
			name: "too far in time",
			gt:   []Event{ev(10, 100, 100)},
			pred: []Event{ev(20, 100, 100)},
			tol:  Tolerance{Time: 3, Position: 20},
			fp:   1, fn: 1,
		},
		{
			name: "box edges are inclusive",
			gt:   []Event{ev(10, 100, 100)},
			pred: []Event{ev(13, 120, 80)},
			tol:  Tolerance{Time: 3, Position: 20},
			tp:   1, p: 1, r: 1, f1: 1,
		},
		{
			name: "box is per axis, not a radius",
			gt:   []Event{ev(0, 0, 0)},
			pred: []Event{ev(0, 19, 19)},
			tol:  Tolerance{Time: 0, Position: 20},
			tp:   1, p: 1, r: 1, f1: 1,
		},
		{
			name: "one axis out of range",
			gt:   []Event{ev(0, 0, 0)},
			pred: []Event{ev(0, 0, 20.5)},
			tol:  Tolerance{Time: 0, Position: 20},
			fp:   1, fn: 1,
		},
		{
			name: "ground truth consumed once",
			gt:   []Event{ev(5, 50, 50)},
			pred: []Event{ev(5, 50, 50), ev(5, 51, 51)},
			tol:  Tolerance{Time: 1, Position: 5},
			tp:   1, fp: 1,
			p: 0.5, r: 1, f1: 2.0 / 3,
		},
		{
			name: "partial",
			gt:   []Event{ev(0, 0, 0), ev(50, 0, 0), ev(100, 0, 0), ev(150, 0, 0)},
			pred: []Event{ev(1, 0, 0), ev(99, 0, 0), ev(300, 0, 0)},
			tol:  Tolerance{Time: 2, Position: 10},
			tp:   2, fp: 1, fn: 2,
			p: 2.0 / 3, r: 0.5, f1: 4.0 / 7,
		},
		{
			name: "empty ground truth",
			pred: []Event{ev(1, 1, 1)},
			tol:  Tolerance{Time: 2, Position: 20},
			fp:   1,
		},
		{
			name: "empty predictions",
			gt:   []Event{ev(1, 1, 1)},
			tol:  Tolerance{Time: 2, Position: 20},
			fn:   1,
		},
		{
			name: "both empty",
			tol:  Tolerance{Time: 2, Position: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.gt, tt.pred, tt.tol)
			if res.TP != tt.tp || res.FP != tt.fp || res.FN != tt.fn {
				t.Errorf("TP/FP/FN = %d/%d/%d, want %d/%d/%d", res.TP, res.FP, res.FN, tt.tp, tt.fp, tt.fn)
			}
			testutil.AssertFloat(t, "precision", res.Precision, tt.p)
			testutil.AssertFloat(t, "recall", res.Recall, tt.r)
			testutil.AssertFloat(t, "f1", res.F1, tt.f1)
			if len(res.Predicted) != len(tt.pred) {
				t.Errorf("classified %d predictions, want %d", len(res.Predicted), len(tt.pred))
			}
			if len(res.Missed) != tt.fn {
				t.Errorf("missed %d ground-truth events, want %d", len(res.Missed), tt.fn)
			}
		})
	}
}

// The first candidate in ground-truth order is consumed, even when a later
// one is closer. A second prediction that only fits the first candidate then
// goes unmatched.
func TestEvaluate_FirstFoundWins(t *testing.T) {
	gt := []Event{ev(10, 100, 100), ev(10, 110, 100)}
	pred := []Event{ev(10, 109, 100), ev(10, 95, 100)}
	tol := Tolerance{Time: 0, Position: 10}

	res := Evaluate(gt, pred, tol)
	if res.TP != 1 || res.FP != 1 || res.FN != 1 {
		t.Fatalf("TP/FP/FN = %d/%d/%d, want 1/1/1", res.TP, res.FP, res.FN)
	}
	want := []Classified{
		{Event: pred[0], Outcome: TruePositive, Match: 0},
		{Event: pred[1], Outcome: FalsePositive, Match: -1},
	}
	if diff := cmp.Diff(want, res.Predicted); diff != "" {
		t.Errorf("predicted mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Classified{{Event: gt[1], Outcome: FalseNegative, Match: -1}}, res.Missed); diff != "" {
		t.Errorf("missed mismatch (-want +got):\n%s", diff)
	}

	// Visiting the predictions the other way round matches both.
	res = Evaluate(gt, []Event{pred[1], pred[0]}, tol)
	if res.TP != 2 {
		t.Errorf("reversed order TP = %d, want 2", res.TP)
	}
}

func TestEvaluate_DoesNotMutateInputs(t *testing.T) {
	gt := []Event{ev(1, 1, 1), ev(2, 2, 2), ev(3, 3, 3)}
	pred := []Event{ev(1, 1, 1), ev(3, 3, 3)}
	gtCopy := append([]Event(nil), gt...)
	predCopy := append([]Event(nil), pred...)
	tol := Tolerance{Time: 0, Position: 0}

	first := Evaluate(gt, pred, tol)
	second := Evaluate(gt, pred, tol)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(gtCopy, gt); diff != "" {
		t.Errorf("ground truth mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(predCopy, pred); diff != "" {
		t.Errorf("predictions mutated (-want +got):\n%s", diff)
	}
}

func TestScores(t *testing.T) {
	tests := []struct {
		tp, fp, fn int
		p, r, f1   float64
	}{
		{0, 0, 0, 0, 0, 0},
		{0, 3, 0, 0, 0, 0},
		{0, 0, 3, 0, 0, 0},
		{3, 0, 0, 1, 1, 1},
		{1, 1, 1, 0.5, 0.5, 0.5},
		{1, 3, 0, 0.25, 1, 0.4},
	}
	for _, tt := range tests {
		p, r, f1 := Scores(tt.tp, tt.fp, tt.fn)
		testutil.AssertFloat(t, "precision", p, tt.p)
		testutil.AssertFloat(t, "recall", r, tt.r)
		testutil.AssertFloat(t, "f1", f1, tt.f1)
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{TruePositive: "TP", FalsePositive: "FP", FalseNegative: "FN", Outcome(9): "unknown"} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
