// Package batch evaluates many detection runs against per-test ground truth.
//
// A batch root holds one directory per test. Each test directory contains the
// annotated divisions in mitosis_true.csv and one CSV of detected divisions
// per candidate run under mitosis/:
//
//	root/
//	  01_colony/
//	    mitosis_true.csv
//	    mitosis/
//	      batches_a.csv
//	      batches_b.csv
//	  02_colony/
//	    ...
//
// Tests are numbered from 1 in sorted directory order.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/labsinal/celltrack/internal/fsutil"
	"github.com/labsinal/celltrack/internal/mitosis"
	"github.com/labsinal/celltrack/internal/monitoring"
	"github.com/labsinal/celltrack/internal/security"
	"github.com/labsinal/celltrack/internal/tracks"
)

// File names inside a test directory.
const (
	GroundTruthFile = "mitosis_true.csv"
	CandidateDir    = "mitosis"
)

// ErrNoTests is returned when the root has no test directories.
var ErrNoTests = errors.New("batch: no test directories")

// Options controls a batch run.
type Options struct {
	Tolerance mitosis.Tolerance
	// Workers bounds concurrent evaluations. Values below 1 mean 1.
	Workers int
	// Isolate treats candidates as full tracking tables and extracts their
	// divisions before scoring.
	Isolate bool
	// Confine rejects files that resolve, through symlinks, outside the
	// root. It needs a real filesystem.
	Confine bool
}

// Job is one candidate file to score.
type Job struct {
	Test        int
	Dir         string
	GroundTruth string
	Candidate   string
	// Label is the candidate file name without the "batches_" prefix and
	// ".csv" suffix.
	Label string
}

// Row is the outcome of one Job.
type Row struct {
	Job
	Result mitosis.Result
}

// Label derives a batch label from a candidate file name.
func Label(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, "batches_"), ".csv")
}

// Discover lists the jobs under root in test, then file name, order. Test
// directories without a mitosis/ subdirectory contribute no jobs; a missing
// ground-truth file is an error.
func Discover(fsys fsutil.FileSystem, root string, opts Options) ([]Job, error) {
	entries, err := fsys.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("batch: read root: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTests, root)
	}

	var jobs []Job
	for i, d := range dirs {
		dir := filepath.Join(root, d)
		gt := filepath.Join(dir, GroundTruthFile)
		if !fsys.Exists(gt) {
			return nil, fmt.Errorf("batch: test %d (%s): missing %s", i+1, d, GroundTruthFile)
		}
		if err := confine(opts, gt, root); err != nil {
			return nil, err
		}

		candDir := filepath.Join(dir, CandidateDir)
		files, err := fsys.ReadDir(candDir)
		if err != nil {
			monitoring.Logf("batch: test %d (%s): no %s directory, skipping", i+1, d, CandidateDir)
			continue
		}
		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".csv") {
				names = append(names, f.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			path := filepath.Join(candDir, n)
			if err := confine(opts, path, root); err != nil {
				return nil, err
			}
			jobs = append(jobs, Job{
				Test:        i + 1,
				Dir:         d,
				GroundTruth: gt,
				Candidate:   path,
				Label:       Label(n),
			})
		}
	}
	return jobs, nil
}

func confine(opts Options, path, root string) error {
	if !opts.Confine {
		return nil
	}
	if err := security.ValidatePathWithinDirectory(path, root); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	return nil
}

// Run scores every job under root. Ground-truth files are read once per
// test; candidates are evaluated on a bounded worker pool. Rows come back in
// Discover order regardless of completion order.
func Run(ctx context.Context, fsys fsutil.FileSystem, root string, opts Options) ([]Row, error) {
	jobs, err := Discover(fsys, root, opts)
	if err != nil {
		return nil, err
	}

	truth := make(map[string][]mitosis.Event)
	for _, j := range jobs {
		if _, ok := truth[j.GroundTruth]; ok {
			continue
		}
		tbl, err := tracks.Load(fsys, j.GroundTruth, tracks.Comma)
		if err != nil {
			return nil, fmt.Errorf("batch: test %d: %w", j.Test, err)
		}
		events, err := mitosis.EventsFromTable(tbl, mitosis.ReadOptions{})
		if err != nil {
			return nil, fmt.Errorf("batch: %s: %w", j.GroundTruth, err)
		}
		truth[j.GroundTruth] = events
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	rows := make([]Row, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pred, err := loadCandidate(fsys, j.Candidate, opts.Isolate)
			if err != nil {
				return fmt.Errorf("batch: test %d: %s: %w", j.Test, j.Candidate, err)
			}
			rows[i] = Row{Job: j, Result: mitosis.Evaluate(truth[j.GroundTruth], pred, opts.Tolerance)}
			monitoring.Debugf("batch: test %d %s: P=%.3f R=%.3f F1=%.3f",
				j.Test, j.Label, rows[i].Result.Precision, rows[i].Result.Recall, rows[i].Result.F1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func loadCandidate(fsys fsutil.FileSystem, path string, isolate bool) ([]mitosis.Event, error) {
	tbl, err := tracks.Load(fsys, path, tracks.Comma)
	if err != nil {
		return nil, err
	}
	if isolate {
		return mitosis.Isolate(tbl)
	}
	return mitosis.EventsFromTable(tbl, mitosis.ReadOptions{UniqueIDs: tbl.Has("track_id")})
}
