package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/labsinal/celltrack/internal/counter"
	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/monitoring"
	"github.com/labsinal/celltrack/internal/store"
	"github.com/labsinal/celltrack/internal/tracks"
)

// evalInputs are the flags shared by commands that score a prediction.
type evalInputs struct {
	groundTruth string
	tracking    string
	isMitosis   bool
}

func bindEvalInputs(fs *flag.FlagSet, in *evalInputs) {
	fs.StringVar(&in.groundTruth, "ground-truth", "", "Annotated ground-truth mitoses (.csv, columns t,x,y)")
	fs.StringVar(&in.groundTruth, "gt", "", "Shorthand for --ground-truth")
	fs.StringVar(&in.tracking, "tracking", "", "Tracking table, or isolated mitoses with --is-mitosis (.csv)")
	fs.StringVar(&in.tracking, "t", "", "Shorthand for --tracking")
	fs.BoolVar(&in.isMitosis, "is-mitosis", false, "The tracking table already holds isolated mitoses")
}

// loadEvents reads both tables. Tracking tables go through Isolate unless they
// already hold one row per mitosis.
func (a *app) loadEvents(in evalInputs) (gt, pred []mitosis.Event, err error) {
	if err := require("ground-truth", in.groundTruth, "tracking", in.tracking); err != nil {
		return nil, nil, err
	}
	gtTable, err := a.readTable(in.groundTruth, tracks.Comma)
	if err != nil {
		return nil, nil, err
	}
	gt, err = mitosis.EventsFromTable(gtTable, mitosis.ReadOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", in.groundTruth, err)
	}

	predTable, err := a.readTable(in.tracking, tracks.Comma)
	if err != nil {
		return nil, nil, err
	}
	if in.isMitosis {
		pred, err = mitosis.EventsFromTable(predTable, mitosis.ReadOptions{UniqueIDs: predTable.Has("track_id")})
	} else {
		pred, err = mitosis.Isolate(predTable)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", in.tracking, err)
	}
	monitoring.Debugf("loaded %d ground-truth and %d detected mitoses", len(gt), len(pred))
	return gt, pred, nil
}

func (a *app) runEvaluate(args []string) error {
	fs := a.newFlagSet("evaluate")
	var in evalInputs
	bindEvalInputs(fs, &in)
	tTol := fs.Int("t-tolerance", a.cfg.GetTimeTolerance(), "Frames a detection may be off by")
	fs.IntVar(tTol, "tt", a.cfg.GetTimeTolerance(), "Shorthand for --t-tolerance")
	posTol := fs.Float64("pos-tolerance", a.cfg.GetPositionTolerance(), "Distance per axis a detection may be off by")
	fs.Float64Var(posTol, "pt", a.cfg.GetPositionTolerance(), "Shorthand for --pos-tolerance")
	saveScores := fs.String("save-scores", "", "Append the scores to this text file")
	details := fs.String("details", "", "Write every event and its outcome to this CSV ('-' for stdout)")
	dbPath := fs.String("db", a.cfg.GetDB(), "Store the result in this SQLite database")
	label := fs.String("label", "", "Label stored with the result")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkTolerance(float64(*tTol), *posTol); err != nil {
		return err
	}

	gt, pred, err := a.loadEvents(in)
	if err != nil {
		return err
	}
	tol := mitosis.Tolerance{Time: float64(*tTol), Position: *posTol}
	res := mitosis.Evaluate(gt, pred, tol)

	scores := formatScores(res)
	fmt.Fprint(a.stdout, scores)

	if *saveScores != "" {
		w, err := a.fsys.Append(*saveScores)
		if err != nil {
			return fmt.Errorf("save scores: %w", err)
		}
		if _, err := fmt.Fprint(w, scores); err != nil {
			w.Close()
			return fmt.Errorf("save scores: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("save scores: %w", err)
		}
	}

	if *details != "" {
		if err := a.writeTable(*details, outcomesTable(res)); err != nil {
			return err
		}
	}

	db, evals, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	if db == nil {
		return nil
	}
	defer db.Close()
	ev := store.NewEvaluation(store.KindEvaluate, *label, tol, res)
	ev.GroundTruth, ev.Predicted = in.groundTruth, in.tracking
	if err := evals.Insert(ev); err != nil {
		return err
	}
	monitoring.Logf("stored evaluation %s", ev.EvaluationID)
	return nil
}

func formatScores(res mitosis.Result) string {
	return fmt.Sprintf("Precision: %v\nRecall: %v\nF1-Score: %v\n", res.Precision, res.Recall, res.F1)
}

// outcomesTable lists predictions then misses with their outcome. match is
// the ground-truth row a true positive consumed, empty otherwise.
func outcomesTable(res mitosis.Result) *tracks.Table {
	out := tracks.New("outcome", "track_id", "t", "x", "y", "match")
	add := func(c mitosis.Classified) {
		match := ""
		if c.Match >= 0 {
			match = strconv.Itoa(c.Match)
		}
		out.Append(c.Outcome.String(), c.ID,
			tracks.FormatFloat(c.T), tracks.FormatFloat(c.X), tracks.FormatFloat(c.Y), match)
	}
	for _, c := range res.Predicted {
		add(c)
	}
	for _, c := range res.Missed {
		add(c)
	}
	return out
}

func (a *app) runIsolate(args []string) error {
	fs := a.newFlagSet("isolate")
	input := fs.String("input", "", "Tracking table (.csv)")
	fs.StringVar(input, "i", "", "Shorthand for --input")
	output := fs.String("output", "", "Mitosis table to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("input", *input); err != nil {
		return err
	}

	tbl, err := a.readTable(*input, tracks.Comma)
	if err != nil {
		return err
	}
	events, err := mitosis.Isolate(tbl)
	if err != nil {
		return fmt.Errorf("%s: %w", *input, err)
	}
	monitoring.Debugf("isolated %d mitoses from %d rows", len(events), tbl.Len())
	return a.writeTable(*output, mitosis.EventsTable(events))
}

func (a *app) runCounter(args []string) error {
	fs := a.newFlagSet("counter")
	input := fs.String("input", "", "CellCounter XML file")
	fs.StringVar(input, "i", "", "Shorthand for --input")
	output := fs.String("output", "", "Ground-truth table to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("input", *input); err != nil {
		return err
	}

	f, err := a.fsys.Open(*input)
	if err != nil {
		return err
	}
	defer f.Close()
	markers, err := counter.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", *input, err)
	}
	return a.writeTable(*output, counter.Table(markers))
}
