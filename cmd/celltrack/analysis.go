package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/labsinal/celltrack/internal/batch"
	"github.com/labsinal/celltrack/internal/distribution"
	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/monitoring"
	"github.com/labsinal/celltrack/internal/store"
	"github.com/labsinal/celltrack/internal/sweep"
	"github.com/labsinal/celltrack/internal/tracks"
)

func (a *app) runBatch(args []string) error {
	fs := a.newFlagSet("batch")
	root := fs.String("root", "", "Directory of tests, each with mitosis_true.csv and mitosis/*.csv")
	fs.StringVar(root, "i", "", "Shorthand for --root")
	output := fs.String("output", "", "Per-batch scores to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	summary := fs.String("summary", "", "Per-test mean and standard deviation to write (.csv)")
	tTol := fs.Int("t-tolerance", a.cfg.GetTimeTolerance(), "Frames a detection may be off by")
	posTol := fs.Float64("pos-tolerance", a.cfg.GetPositionTolerance(), "Distance per axis a detection may be off by")
	workers := fs.Int("workers", a.cfg.GetWorkers(), "Concurrent evaluations")
	isolate := fs.Bool("isolate", false, "Candidates are full tracking tables; isolate their mitoses first")
	dbPath := fs.String("db", a.cfg.GetDB(), "Store every score in this SQLite database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("root", *root); err != nil {
		return err
	}
	if err := checkTolerance(float64(*tTol), *posTol); err != nil {
		return err
	}

	tol := mitosis.Tolerance{Time: float64(*tTol), Position: *posTol}
	rows, err := batch.Run(a.ctx, a.fsys, *root, batch.Options{
		Tolerance: tol,
		Workers:   *workers,
		Isolate:   *isolate,
		Confine:   a.confine,
	})
	if err != nil {
		return err
	}
	monitoring.Debugf("batch: scored %d candidates", len(rows))

	if err := a.writeWith(*output, func(w io.Writer) error { return batch.WriteCSV(w, rows) }); err != nil {
		return err
	}
	if *summary != "" {
		sums := batch.Summarize(rows)
		if err := a.writeWith(*summary, func(w io.Writer) error { return batch.WriteSummaryCSV(w, sums) }); err != nil {
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
	records := make([]*store.Evaluation, len(rows))
	for i, r := range rows {
		ev := store.NewEvaluation(store.KindBatch, r.Dir+"/"+r.Label, tol, r.Result)
		ev.GroundTruth, ev.Predicted = r.GroundTruth, r.Candidate
		records[i] = ev
	}
	if err := evals.InsertAll(records); err != nil {
		return err
	}
	monitoring.Logf("stored %d batch evaluations", len(records))
	return nil
}

// sweepParams is the grid recorded with a stored sweep result.
type sweepParams struct {
	TimeRange     string `json:"t_range"`
	PositionRange string `json:"pos_range"`
	Metric        string `json:"metric"`
	Combinations  int    `json:"combinations"`
}

func (a *app) runSweep(args []string) error {
	fs := a.newFlagSet("sweep")
	var in evalInputs
	bindEvalInputs(fs, &in)
	tRange := fs.String("t-range", "0:6:1", "Time tolerances: min:max:step or a comma list")
	posRange := fs.String("pos-range", "5:50:5", "Position tolerances: min:max:step or a comma list")
	metricName := fs.String("metric", string(sweep.MetricF1), "Score to maximise: f1, precision or recall")
	output := fs.String("output", "", "Per-combination scores to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	dbPath := fs.String("db", a.cfg.GetDB(), "Store the best combination in this SQLite database")
	label := fs.String("label", "", "Label stored with the result")
	if err := fs.Parse(args); err != nil {
		return err
	}

	times, err := sweep.ParseIntParamList(*tRange)
	if err != nil {
		return fmt.Errorf("%w: --t-range: %v", errUsage, err)
	}
	positions, err := sweep.ParseParamList(*posRange)
	if err != nil {
		return fmt.Errorf("%w: --pos-range: %v", errUsage, err)
	}
	if len(times) == 0 || len(positions) == 0 {
		return fmt.Errorf("%w: %v", errUsage, sweep.ErrEmptyGrid)
	}
	for _, t := range times {
		if err := checkTolerance(float64(t), 0); err != nil {
			return fmt.Errorf("--t-range: %w", err)
		}
	}
	for _, p := range positions {
		if err := checkTolerance(0, p); err != nil {
			return fmt.Errorf("--pos-range: %w", err)
		}
	}
	metric, err := sweep.ParseMetric(*metricName)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	gt, pred, err := a.loadEvents(in)
	if err != nil {
		return err
	}

	grid := sweep.Grid{Times: times, Positions: positions}
	var rep *sweep.Report
	err = a.writeWith(*output, func(w io.Writer) error {
		var err error
		rep, err = sweep.Run(a.ctx, sweep.NewObjective(&sweep.EvalContext{GroundTruth: gt, Predicted: pred}), grid,
			sweep.Options{Metric: metric, Out: sweep.NewCSVWriter(w)})
		return err
	})
	if err != nil {
		return err
	}

	best := rep.BestCombo()
	line := fmt.Sprintf("best: t_tolerance=%g pos_tolerance=%g %s=%v (of %d combinations)",
		best.Tolerance.Time, best.Tolerance.Position, metric, metric.Value(best.Result), len(rep.Combos))
	if *output == "" || *output == "-" {
		monitoring.Logf("%s", line)
	} else {
		fmt.Fprintln(a.stdout, line)
	}

	db, evals, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	if db == nil {
		return nil
	}
	defer db.Close()
	ev := store.NewEvaluation(store.KindSweep, *label, best.Tolerance, best.Result)
	ev.GroundTruth, ev.Predicted = in.groundTruth, in.tracking
	params, err := json.Marshal(sweepParams{
		TimeRange:     *tRange,
		PositionRange: *posRange,
		Metric:        string(metric),
		Combinations:  grid.Size(),
	})
	if err != nil {
		return err
	}
	ev.ParamsJSON = params
	return evals.Insert(ev)
}

func (a *app) runDistribution(args []string) error {
	fs := a.newFlagSet("distribution")
	input := fs.String("input", "", "Mitosis table (t column), or a tracking table with --ground-truth")
	fs.StringVar(input, "i", "", "Shorthand for --input")
	groundTruth := fs.String("ground-truth", "", "Score --input against this table and bin every outcome")
	fs.StringVar(groundTruth, "gt", "", "Shorthand for --ground-truth")
	isMitosis := fs.Bool("is-mitosis", false, "With --ground-truth: --input already holds isolated mitoses")
	output := fs.String("output", "", "Histogram table to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	bins := fs.Int("bins", a.cfg.GetBins(), "Number of equal-width bins")
	interval := fs.Float64("time-interval", a.cfg.GetFrameInterval(), "Minutes between frames")
	tTol := fs.Int("t-tolerance", a.cfg.GetTimeTolerance(), "With --ground-truth: frames a detection may be off by")
	posTol := fs.Float64("pos-tolerance", a.cfg.GetPositionTolerance(), "With --ground-truth: distance per axis a detection may be off by")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("input", *input); err != nil {
		return err
	}
	if *bins < 1 {
		return fmt.Errorf("%w: --bins must be at least 1", errUsage)
	}
	if !(*interval > 0) {
		return fmt.Errorf("%w: --time-interval must be positive", errUsage)
	}
	if err := checkTolerance(float64(*tTol), *posTol); err != nil {
		return err
	}

	var series []distribution.Series
	if *groundTruth == "" {
		tbl, err := a.readTable(*input, tracks.Comma)
		if err != nil {
			return err
		}
		frames, err := tbl.Floats("t")
		if err != nil {
			return fmt.Errorf("%s: %w", *input, err)
		}
		for r, f := range frames {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%s: %w: row %d column \"t\": %v", *input, mitosis.ErrMalformedRow, r+1, f)
			}
		}
		series = []distribution.Series{{Name: "mitosis", Values: distribution.Days(frames, *interval)}}
	} else {
		gt, pred, err := a.loadEvents(evalInputs{groundTruth: *groundTruth, tracking: *input, isMitosis: *isMitosis})
		if err != nil {
			return err
		}
		res := mitosis.Evaluate(gt, pred, mitosis.Tolerance{Time: float64(*tTol), Position: *posTol})
		series = distribution.Metrics(gt, res, *interval)
	}

	tbl, err := distribution.Table(series, *bins)
	if err != nil {
		return err
	}
	return a.writeTable(*output, tbl)
}

// writeWith runs fn against the file at path, or stdout when path is empty
// or "-". The file is created along with its parent directory.
func (a *app) writeWith(path string, fn func(w io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(a.stdout)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := a.fsys.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := a.fsys.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
