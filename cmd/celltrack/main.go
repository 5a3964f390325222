package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/labsinal/celltrack/internal/config"
	"github.com/labsinal/celltrack/internal/fsutil"
	"github.com/labsinal/celltrack/internal/monitoring"
	"github.com/labsinal/celltrack/internal/store"
	"github.com/labsinal/celltrack/internal/tracks"
	"github.com/labsinal/celltrack/internal/version"
)

// errUsage marks bad invocations; main prints usage for them.
var errUsage = errors.New("usage")

// app carries what every command needs. Tests swap fsys for a
// MemoryFileSystem and capture stdout.
type app struct {
	ctx    context.Context
	fsys   fsutil.FileSystem
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	// confine enables symlink checks, which only work on the real disk.
	confine bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run parses the global flags, resolves configuration and dispatches to a
// command. It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("celltrack", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { printUsage(stderr) }
	configPath := global.String("config", "", "JSON configuration file")
	envFile := global.String("env-file", config.DefaultEnvFile, "dotenv file with CELLTRACK_* variables")
	verbose := global.Bool("verbose", false, "Enable debug logging")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	monitoring.SetVerbose(*verbose)

	if global.NArg() < 1 {
		printUsage(stderr)
		return 1
	}
	command := global.Arg(0)
	rest := global.Args()[1:]

	switch command {
	case "version":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help":
		printUsage(stdout)
		return 0
	}

	handler, ok := commands[command]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 1
	}

	cfg, err := config.Resolve(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	a := &app{
		ctx:     ctx,
		fsys:    fsutil.OSFileSystem{},
		stdout:  stdout,
		stderr:  stderr,
		cfg:     cfg,
		confine: true,
	}
	return a.exec(command, handler, rest)
}

func (a *app) exec(command string, handler func(*app, []string) error, args []string) int {
	if err := handler(a, args); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errUsage):
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			fmt.Fprintf(a.stderr, "Run 'celltrack %s -h' for usage.\n", command)
			return 2
		}
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

var commands = map[string]func(*app, []string) error{
	"evaluate":     (*app).runEvaluate,
	"isolate":      (*app).runIsolate,
	"counter":      (*app).runCounter,
	"fate":         (*app).runFate,
	"clovars":      (*app).runClovars,
	"annotate":     (*app).runAnnotate,
	"validators":   (*app).runValidators,
	"merge":        (*app).runMerge,
	"batch":        (*app).runBatch,
	"sweep":        (*app).runSweep,
	"distribution": (*app).runDistribution,
	"history":      (*app).runHistory,
	"synth":        (*app).runSynth,
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `celltrack - cell-tracking table tooling and mitosis evaluation

Usage: celltrack [global flags] <command> [options]

Commands:
  evaluate      Score detected mitoses against a ground truth
  isolate       Extract the mitosis events of a tracking table
  counter       Convert an ImageJ CellCounter XML file to a mitosis table
  fate          Add a fate column (mitosis, lived, death) to a tracking table
  clovars       Convert an ultrack or btrack table to the CloVarS schema
  annotate      Apply human annotations to a tracking table
  validators    Summarise each track for manual validation
  merge         Join segmentation features onto a tracking table
  batch         Evaluate every candidate of a directory of tests
  sweep         Score a grid of tolerances and report the best one
  distribution  Histogram mitosis times, or evaluation outcomes
  history       List or delete stored evaluations
  synth         Generate synthetic tracking and mitosis tables
  version       Show celltrack version
  help          Show this help message

Global Flags:
  --config <file>    JSON configuration file
  --env-file <file>  dotenv file (default .env)
  --verbose          Enable debug logging

Configuration precedence: command flags, then CELLTRACK_* environment
variables, then the --config file, then built-in defaults.

Examples:
  # Evaluate an ultrack table against annotated mitoses
  celltrack evaluate -gt mitosis_true.csv -t tracks.csv --t-tolerance 2 --pos-tolerance 20

  # Evaluate every batch of every test and store the scores
  celltrack batch --root experiments/ --db celltrack.db

  # Find the tolerance with the best F1
  celltrack sweep -gt mitosis_true.csv -t mitosis.csv --t-range 0:6:1 --pos-range 5:40:5`)
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// require takes flag name and value pairs and returns an errUsage-wrapped
// error naming the first empty one.
func require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: --%s is required", errUsage, pairs[i])
		}
	}
	return nil
}

// checkTolerance rejects negative or NaN tolerances as a usage error.
func checkTolerance(frames, position float64) error {
	if !(frames >= 0) || !(position >= 0) {
		return fmt.Errorf("%w: tolerances must be non-negative, got t=%v pos=%v", errUsage, frames, position)
	}
	return nil
}

func delimiter(space bool) rune {
	if space {
		return tracks.Space
	}
	return tracks.Comma
}

func (a *app) readTable(path string, delim rune) (*tracks.Table, error) {
	tbl, err := tracks.Load(a.fsys, path, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// writeTable saves tbl to path, or prints it when path is empty or "-".
func (a *app) writeTable(path string, tbl *tracks.Table) error {
	if path == "" || path == "-" {
		return tracks.Write(a.stdout, tbl, tracks.Comma)
	}
	if err := tracks.Save(a.fsys, path, tbl, tracks.Comma); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	monitoring.Debugf("wrote %d rows to %s", tbl.Len(), path)
	return nil
}

// openStore opens the evaluation store, or returns nil when path is empty.
func openStore(path string) (*store.DB, *store.EvaluationStore, error) {
	if path == "" {
		return nil, nil, nil
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return db, store.NewEvaluationStore(db), nil
}
