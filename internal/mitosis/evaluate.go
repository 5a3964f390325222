package mitosis

// Outcome classifies a single event after matching.
type Outcome int

const (
	TruePositive Outcome = iota
	FalsePositive
	FalseNegative
)

func (o Outcome) String() string {
	switch o {
	case TruePositive:
		return "TP"
	case FalsePositive:
		return "FP"
	case FalseNegative:
		return "FN"
	}
	return "unknown"
}

// Classified is an event and its outcome. Match is the index into the
// ground truth of the event consumed by a true positive, -1 otherwise.
type Classified struct {
	Event
	Outcome Outcome
	Match   int
}

// Result holds the counts and scores of one evaluation.
type Result struct {
	TP, FP, FN int

	Precision float64
	Recall    float64
	F1        float64

	// Predicted holds every predicted event, in input order, as TP or FP.
	Predicted []Classified
	// Missed holds the ground-truth events no prediction consumed, as FN.
	Missed []Classified
}

// Evaluate matches predicted events against the ground truth.
//
// Predictions are visited in order. Each one is a true positive when some
// not yet consumed ground-truth event lies within tol; the first such event,
// in ground-truth order, is then consumed. Otherwise it is a false positive.
// Matching is greedy, so a different prediction order can change the counts.
//
// Neither slice is modified.
func Evaluate(groundTruth, predicted []Event, tol Tolerance) Result {
	consumed := make([]bool, len(groundTruth))
	res := Result{Predicted: make([]Classified, 0, len(predicted))}

	for _, p := range predicted {
		c := Classified{Event: p, Outcome: FalsePositive, Match: -1}
		for i, g := range groundTruth {
			if consumed[i] || !tol.Within(g, p) {
				continue
			}
			consumed[i] = true
			c.Outcome = TruePositive
			c.Match = i
			res.TP++
			break
		}
		res.Predicted = append(res.Predicted, c)
	}

	for i, g := range groundTruth {
		if !consumed[i] {
			res.Missed = append(res.Missed, Classified{Event: g, Outcome: FalseNegative, Match: -1})
		}
	}

	res.FP = len(predicted) - res.TP
	res.FN = len(groundTruth) - res.TP
	res.Precision, res.Recall, res.F1 = Scores(res.TP, res.FP, res.FN)
	return res
}

// Scores derives precision, recall and F1 from raw counts. Each is 0 when its
// denominator is 0.
func Scores(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
