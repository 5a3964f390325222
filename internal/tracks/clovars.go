package tracks

import (
	"fmt"
	"strconv"
)

// Fates in the CloVarS fate_at_next_frame column.
const (
	NextMigration = "migration"
	NextDivision  = "division"
	NextDeath     = "death"
)

// ClovarsColumns is the column order of a CloVarS simulation table.
var ClovarsColumns = []string{
	"id", "name",
	"branch_name", "colony_name",
	"generation",
	"x", "y", "area",
	"signal_value",
	"seconds_since_birth",
	"fate_at_next_frame",
	"treatment_name",
	"simulation_frames",
	"simulation_seconds", "simulation_hours",
	"simulation_days",
}

// ClovarsOptions parameterises the conversion to the CloVarS schema.
type ClovarsOptions struct {
	// TimeInterval is the time between frames, in minutes.
	TimeInterval float64
	Colony       string
	Treatment    string
	// OnlyMitosis drops lineages made of a single cell (btrack only).
	OnlyMitosis bool
}

// DefaultClovarsOptions mirrors the defaults of the lab's converters.
func DefaultClovarsOptions() ClovarsOptions {
	return ClovarsOptions{TimeInterval: 30, Colony: "1a", Treatment: "None"}
}

// ToClovars converts an ultrack table (track_id, parent_track_id, t, x, y,
// area, ...) into a CloVarS table.
//
// Roots (parent_track_id == -1) are named "<colony>-<n>" in order of first
// appearance; the k-th child of a cell named N is named "N.k" and inherits
// its branch. A track's rows get fate_at_next_frame "division" or "death"
// on the frame after which it disappears, depending on whether it has
// children; every other row is "migration".
func ToClovars(t *Table, opts ClovarsOptions) (*Table, error) {
	if err := t.Require("track_id", "parent_track_id", "t"); err != nil {
		return nil, err
	}

	out := t.Clone()
	frames := make([]int, out.Len())
	seconds := make([]float64, out.Len())
	ids := make([]string, out.Len())
	maxFrame := 0
	for r := range out.Rows {
		f, err := out.Int(r, "t")
		if err != nil {
			return nil, err
		}
		frames[r] = f
		if f > maxFrame {
			maxFrame = f
		}
		ids[r] = NormalizeID(out.Get(r, "track_id"))
		seconds[r] = float64(f) * opts.TimeInterval * 60
		hours := float64(f) * opts.TimeInterval / 60
		out.Set(r, "simulation_seconds", FormatFloat(seconds[r]))
		out.Set(r, "simulation_hours", FormatFloat(hours))
		out.Set(r, "simulation_days", FormatFloat(hours/24))
	}
	out.Rename("t", "simulation_frames")

	out.Fill("colony_name", opts.Colony)
	out.Fill("treatment_name", opts.Treatment)
	out.Fill("signal_value", "0")
	out.Fill("name", "")
	out.Fill("generation", "-1")
	out.Fill("branch_name", "")

	rowsOf := make(map[string][]int)
	var roots []string
	children := make(map[string][]string)
	seenTrack := make(map[string]bool)
	parentSet := make(map[string]bool)
	for r := range out.Rows {
		id := ids[r]
		parent := NormalizeID(out.Get(r, "parent_track_id"))
		rowsOf[id] = append(rowsOf[id], r)
		parentSet[parent] = true
		if seenTrack[id] {
			continue
		}
		seenTrack[id] = true
		if parent == Root {
			roots = append(roots, id)
		} else {
			children[parent] = append(children[parent], id)
		}
	}

	visited := make(map[string]bool)
	var label func(id, name, branch string, generation int)
	label = func(id, name, branch string, generation int) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, r := range rowsOf[id] {
			out.Set(r, "name", name)
			out.Set(r, "branch_name", branch)
			out.Set(r, "generation", strconv.Itoa(generation))
		}
		for i, child := range children[id] {
			label(child, fmt.Sprintf("%s.%d", name, i+1), branch, generation+1)
		}
	}
	for i, root := range roots {
		branch := fmt.Sprintf("%s-%d", opts.Colony, i+1)
		label(root, branch, branch, 0)
	}

	birth := make(map[string]float64)
	for r, id := range ids {
		if b, ok := birth[id]; !ok || seconds[r] < b {
			birth[id] = seconds[r]
		}
	}
	for r, id := range ids {
		out.Set(r, "seconds_since_birth", FormatFloat(seconds[r]-birth[id]))
	}

	out.Fill("fate_at_next_frame", NextMigration)
	present := make(map[int]map[string]bool)
	for r, id := range ids {
		if present[frames[r]] == nil {
			present[frames[r]] = make(map[string]bool)
		}
		present[frames[r]][id] = true
	}
	for r, id := range ids {
		f := frames[r]
		if f < 0 || f >= maxFrame || present[f+1][id] {
			continue
		}
		if parentSet[id] {
			out.Set(r, "fate_at_next_frame", NextDivision)
		} else {
			out.Set(r, "fate_at_next_frame", NextDeath)
		}
	}

	out.Drop("parent_id", "parent_track_id", "id")
	out.Rename("track_id", "id")
	return out.Reindex(ClovarsColumns), nil
}
