package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/security"
	"github.com/labsinal/celltrack/internal/store"
	"github.com/labsinal/celltrack/internal/synth"
	"github.com/labsinal/celltrack/internal/tracks"
)

func (a *app) runHistory(args []string) error {
	fs := a.newFlagSet("history")
	dbPath := fs.String("db", a.cfg.GetDB(), "SQLite database of stored evaluations")
	kind := fs.String("kind", "", "Only list evaluate, batch or sweep results")
	label := fs.String("label", "", "Only list results with this label")
	limit := fs.Int("limit", 0, "Maximum number of results (0 for all)")
	show := fs.String("show", "", "Print one evaluation as JSON")
	del := fs.String("delete", "", "Delete one evaluation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("db", *dbPath); err != nil {
		return err
	}
	switch *kind {
	case "", store.KindEvaluate, store.KindBatch, store.KindSweep:
	default:
		return fmt.Errorf("%w: unknown --kind %q", errUsage, *kind)
	}

	db, evals, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case *show != "":
		ev, err := evals.Get(*show)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ev)
	case *del != "":
		if err := evals.Delete(*del); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "deleted %s\n", *del)
		return nil
	}

	list, err := evals.List(store.Filter{Kind: *kind, Label: *label, Limit: *limit})
	if err != nil {
		return err
	}
	return tracks.Write(a.stdout, historyTable(list), tracks.Comma)
}

func historyTable(list []*store.Evaluation) *tracks.Table {
	out := tracks.New("evaluation_id", "created_at", "kind", "label",
		"t_tolerance", "pos_tolerance", "tp", "fp", "fn", "precision", "recall", "f1")
	for _, e := range list {
		out.Append(
			e.EvaluationID,
			e.Created().UTC().Format(time.RFC3339),
			e.Kind,
			e.Label,
			tracks.FormatFloat(e.TimeTolerance),
			tracks.FormatFloat(e.PositionTolerance),
			strconv.Itoa(e.TP),
			strconv.Itoa(e.FP),
			strconv.Itoa(e.FN),
			tracks.FormatFloat(e.Precision),
			tracks.FormatFloat(e.Recall),
			tracks.FormatFloat(e.F1),
		)
	}
	return out
}

// runSynth writes a simulated ultrack table and a matching ground truth:
// the table's mitoses, jittered within half the tolerance and shuffled.
func (a *app) runSynth(args []string) error {
	fs := a.newFlagSet("synth")
	outDir := fs.String("out", ".", "Directory to write into")
	name := fs.String("name", "synthetic", "File name prefix")
	seed := fs.Uint64("seed", 1, "Random seed; equal seeds give equal tables")
	defaults := synth.DefaultLineageOptions()
	roots := fs.Int("roots", defaults.Roots, "Cells in the first frame")
	frames := fs.Int("frames", defaults.Frames, "Number of frames")
	division := fs.Float64("division-rate", defaults.DivisionRate, "Per-frame division probability")
	death := fs.Float64("death-rate", defaults.DeathRate, "Per-frame death probability")
	tTol := fs.Int("t-tolerance", a.cfg.GetTimeTolerance(), "Frames the ground truth may be off by")
	posTol := fs.Float64("pos-tolerance", a.cfg.GetPositionTolerance(), "Distance per axis the ground truth may be off by")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *roots < 1 || *frames < 1 {
		return fmt.Errorf("%w: --roots and --frames must be at least 1", errUsage)
	}
	if *division < 0 || *death < 0 || *division+*death > 1 {
		return fmt.Errorf("%w: rates must be non-negative and sum to at most 1", errUsage)
	}

	opts := defaults
	opts.Roots, opts.Frames = *roots, *frames
	opts.DivisionRate, opts.DeathRate = *division, *death

	gen := synth.New(*seed)
	lineage := gen.Lineage(opts)
	events, err := mitosis.Isolate(lineage)
	if err != nil {
		return err
	}
	tol := mitosis.Tolerance{Time: float64(*tTol / 2), Position: *posTol / 2}
	truth := gen.Shuffle(gen.Jitter(events, tol))

	if err := a.fsys.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	prefix := filepath.Join(*outDir, security.SanitizeFilename(*name))
	tracksPath := prefix + "_tracks.csv"
	truthPath := prefix + "_mitosis_true.csv"
	if err := a.writeTable(tracksPath, lineage); err != nil {
		return err
	}
	if err := a.writeTable(truthPath, mitosis.EventsTable(truth)); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s (%d rows) and %s (%d mitoses)\n", tracksPath, lineage.Len(), truthPath, len(truth))
	return nil
}
