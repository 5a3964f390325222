// Package mitosis scores detected cell divisions against a manually
// annotated ground truth.
//
// Both sides are reduced to Events, points in (t, x, y). Evaluate pairs them
// greedily within a per-axis tolerance box and derives precision, recall and
// F1. Isolate extracts the division events implied by a tracking table's
// lineage.
package mitosis

import (
	"errors"
	"fmt"
	"math"

	"github.com/labsinal/celltrack/internal/tracks"
)

// ErrMalformedRow is returned when a row lacks a coordinate or holds one
// that is not a finite number.
var ErrMalformedRow = errors.New("malformed row")

// Event is a mitosis observed at frame T and position (X, Y). ID carries the
// parent track identifier for detected events and is empty for annotations
// that have none.
type Event struct {
	ID   string
	T    float64
	X, Y float64
}

// Tolerance is the matching window. Time is in frames, Position in the
// table's spatial unit (usually pixels) and applies to x and y separately.
type Tolerance struct {
	Time     float64
	Position float64
}

// Within reports whether b lies inside the tolerance box centred on a.
func (tol Tolerance) Within(a, b Event) bool {
	return math.Abs(a.T-b.T) <= tol.Time &&
		math.Abs(a.X-b.X) <= tol.Position &&
		math.Abs(a.Y-b.Y) <= tol.Position
}

// ReadOptions controls EventsFromTable.
type ReadOptions struct {
	// UniqueIDs rejects tables in which a track_id appears more than once.
	// Detected mitosis tables hold exactly one row per dividing track.
	UniqueIDs bool
}

// EventsFromTable reads the t, x and y columns (and track_id, when present)
// of every row. Any missing or non-numeric coordinate yields an error
// wrapping ErrMalformedRow.
func EventsFromTable(tbl *tracks.Table, opts ReadOptions) ([]Event, error) {
	if err := tbl.Require("t", "x", "y"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	if opts.UniqueIDs {
		if err := tbl.Require("track_id"); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
	}
	hasID := tbl.Has("track_id")

	events := make([]Event, 0, tbl.Len())
	seen := make(map[string]int)
	for r := range tbl.Rows {
		var e Event
		for _, c := range []struct {
			name string
			dst  *float64
		}{{"t", &e.T}, {"x", &e.X}, {"y", &e.Y}} {
			v, err := tbl.Float(r, c.name)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %q: %v", ErrMalformedRow, r+1, c.name, v)
			}
			*c.dst = v
		}
		if hasID {
			e.ID = tracks.NormalizeID(tbl.Get(r, "track_id"))
			if opts.UniqueIDs {
				if prev, dup := seen[e.ID]; dup {
					return nil, fmt.Errorf("%w: row %d: track_id %s already seen on row %d", ErrMalformedRow, r+1, e.ID, prev)
				}
				seen[e.ID] = r + 1
			}
		}
		events = append(events, e)
	}
	return events, nil
}

// EventsTable renders events as a track_id,t,x,y table.
func EventsTable(events []Event) *tracks.Table {
	out := tracks.New("track_id", "t", "x", "y")
	for _, e := range events {
		out.Append(e.ID, tracks.FormatFloat(e.T), tracks.FormatFloat(e.X), tracks.FormatFloat(e.Y))
	}
	return out
}
