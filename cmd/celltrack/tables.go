package main

import (
	"fmt"

	"github.com/labsinal/celltrack/internal/monitoring"
	"github.com/labsinal/celltrack/internal/tracks"
)

// ioFlags are the -i/-o pair of single-table commands.
type ioFlags struct {
	input, output *string
}

func (a *app) ioFlagSet(name, inputHelp, outputHelp string) (*ioFlags, func([]string) error) {
	fs := a.newFlagSet(name)
	f := &ioFlags{
		input:  fs.String("input", "", inputHelp),
		output: fs.String("output", "", outputHelp),
	}
	fs.StringVar(f.input, "i", "", "Shorthand for --input")
	fs.StringVar(f.output, "o", "", "Shorthand for --output")
	return f, fs.Parse
}

func (a *app) runFate(args []string) error {
	f, parse := a.ioFlagSet("fate", "Ultrack tracking table (.csv)", "Table to write (.csv, default: overwrite the input)")
	if err := parse(args); err != nil {
		return err
	}
	if err := require("input", *f.input); err != nil {
		return err
	}
	out := *f.output
	if out == "" {
		out = *f.input
	}

	tbl, err := a.readTable(*f.input, tracks.Comma)
	if err != nil {
		return err
	}
	withFate, err := tracks.AddFate(tbl)
	if err != nil {
		return fmt.Errorf("%s: %w", *f.input, err)
	}
	return a.writeTable(out, withFate)
}

func (a *app) runClovars(args []string) error {
	fs := a.newFlagSet("clovars")
	input := fs.String("input", "", "Tracking table")
	fs.StringVar(input, "i", "", "Shorthand for --input")
	output := fs.String("output", "", "CloVarS table to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	source := fs.String("source", "ultrack", "Tracker that produced the input: ultrack or btrack")
	interval := fs.Float64("time-interval", a.cfg.GetFrameInterval(), "Minutes between frames")
	colony := fs.String("colony", a.cfg.GetColony(), "Colony name")
	treatment := fs.String("treatment", a.cfg.GetTreatment(), "Treatment name")
	onlyMitosis := fs.Bool("only-mitosis", false, "Drop lineages of a single cell (btrack only)")
	space := fs.Bool("space", false, "Input is space separated (default for btrack)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("input", *input); err != nil {
		return err
	}
	if *interval <= 0 {
		return fmt.Errorf("%w: --time-interval must be positive", errUsage)
	}

	opts := tracks.ClovarsOptions{
		TimeInterval: *interval,
		Colony:       *colony,
		Treatment:    *treatment,
		OnlyMitosis:  *onlyMitosis,
	}
	var convert func(*tracks.Table, tracks.ClovarsOptions) (*tracks.Table, error)
	delim := delimiter(*space)
	switch *source {
	case "ultrack":
		if *onlyMitosis {
			monitoring.Logf("clovars: --only-mitosis is ignored for ultrack input")
		}
		convert = tracks.ToClovars
	case "btrack":
		convert = tracks.BtrackToClovars
		delim = tracks.Space
	default:
		return fmt.Errorf("%w: unknown --source %q: want ultrack or btrack", errUsage, *source)
	}

	tbl, err := a.readTable(*input, delim)
	if err != nil {
		return err
	}
	out, err := convert(tbl, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", *input, err)
	}
	return a.writeTable(*output, out)
}

func (a *app) runAnnotate(args []string) error {
	fs := a.newFlagSet("annotate")
	tracking := fs.String("tracking", "", "Tracking table (.csv)")
	fs.StringVar(tracking, "t", "", "Shorthand for --tracking")
	annotation := fs.String("annotation", "", "Annotation table with id, frame, destino (.csv)")
	fs.StringVar(annotation, "a", "", "Shorthand for --annotation")
	output := fs.String("output", "", "Reconciled table to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("tracking", *tracking, "annotation", *annotation); err != nil {
		return err
	}

	trackTbl, err := a.readTable(*tracking, tracks.Comma)
	if err != nil {
		return err
	}
	annTbl, err := a.readTable(*annotation, tracks.Comma)
	if err != nil {
		return err
	}
	out, err := tracks.Reconcile(trackTbl, annTbl)
	if err != nil {
		return err
	}
	monitoring.Debugf("annotate: %d of %d rows kept", out.Len(), trackTbl.Len())
	return a.writeTable(*output, out)
}

func (a *app) runValidators(args []string) error {
	fs := a.newFlagSet("validators")
	input := fs.String("input", "", "Tracking table (.csv)")
	fs.StringVar(input, "i", "", "Shorthand for --input")
	output := fs.String("output", "", "Validators table to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	fateColumn := fs.String("fate-column", "", "Column holding the fate (default fate, else destino)")
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
	out, err := tracks.ValidatorsTable(tbl, *fateColumn)
	if err != nil {
		return fmt.Errorf("%s: %w", *input, err)
	}
	return a.writeTable(*output, out)
}

func (a *app) runMerge(args []string) error {
	fs := a.newFlagSet("merge")
	tracking := fs.String("tracking", "", "Tracking table with t, x, y (.csv)")
	fs.StringVar(tracking, "u", "", "Shorthand for --tracking")
	seg := fs.String("segmentation", "", "Segmentation features with img_name, cx, cy (.csv)")
	fs.StringVar(seg, "b", "", "Shorthand for --segmentation")
	output := fs.String("output", "", "Merged table to write (.csv, default stdout)")
	fs.StringVar(output, "o", "", "Shorthand for --output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := require("tracking", *tracking, "segmentation", *seg); err != nil {
		return err
	}

	trackTbl, err := a.readTable(*tracking, tracks.Comma)
	if err != nil {
		return err
	}
	segTbl, err := a.readTable(*seg, tracks.Comma)
	if err != nil {
		return err
	}
	out, err := tracks.MergeSegmentation(trackTbl, segTbl)
	if err != nil {
		return err
	}
	if out.Len() < trackTbl.Len() {
		monitoring.Logf("merge: %d of %d tracking rows had no segmentation match", trackTbl.Len()-out.Len(), trackTbl.Len())
	}
	return a.writeTable(*output, out)
}
