package tracks

import (
	"fmt"
	"strconv"
)

// BtrackToClovars converts a btrack export (ID, t, x, y, parent, root,
// state, generation, dummy, ...) into a CloVarS table.
//
// btrack marks roots by making a cell its own parent. Cells are grouped into
// branches in order of first appearance: a cell whose parent is already in a
// branch joins it, otherwise it opens a new one. The first cell of a branch
// is named "<colony>-<n>"; later cells alternate ".1"/".2" suffixes on their
// parent's name.
func BtrackToClovars(t *Table, opts ClovarsOptions) (*Table, error) {
	if err := t.Require("ID", "t", "parent", "generation"); err != nil {
		return nil, err
	}

	out := t.Clone()
	n := out.Len()
	frames := make([]int, n)
	ids := make([]string, n)
	for r := range out.Rows {
		f, err := out.Int(r, "t")
		if err != nil {
			return nil, err
		}
		g, err := out.Int(r, "generation")
		if err != nil {
			return nil, err
		}
		frames[r] = f
		ids[r] = NormalizeID(out.Get(r, "ID"))
		out.Set(r, "t", strconv.Itoa(f))
		out.Set(r, "generation", strconv.Itoa(g))
	}
	out.Rename("ID", "id")
	out.Rename("t", "simulation_frames")

	out.Fill("colony_name", opts.Colony)
	out.Fill("signal_value", "0")
	out.Fill("treatment_name", opts.Treatment)

	firstFrame := make(map[string]int)
	lastFrame := make(map[string]int)
	rowsOf := make(map[string][]int)
	var order []string
	maxFrame := 0
	for r, id := range ids {
		f := frames[r]
		if _, ok := rowsOf[id]; !ok {
			order = append(order, id)
			firstFrame[id], lastFrame[id] = f, f
		}
		rowsOf[id] = append(rowsOf[id], r)
		if f < firstFrame[id] {
			firstFrame[id] = f
		}
		if f > lastFrame[id] {
			lastFrame[id] = f
		}
		if r == 0 || f > maxFrame {
			maxFrame = f
		}
	}

	for r, id := range ids {
		secs := float64(frames[r]) * opts.TimeInterval * 60
		hours := secs / 3600
		out.Set(r, "simulation_seconds", FormatFloat(secs))
		out.Set(r, "simulation_hours", FormatFloat(hours))
		out.Set(r, "simulation_days", FormatFloat(hours/24))
		out.Set(r, "seconds_since_birth", FormatFloat(float64(frames[r]-firstFrame[id])*opts.TimeInterval*60))
	}

	parentOf := make(map[string]string, len(order))
	for _, id := range order {
		var parents []string
		for _, r := range rowsOf[id] {
			parents = append(parents, NormalizeID(out.Get(r, "parent")))
		}
		parentOf[id] = minID(parents)
	}

	var branches [][]string
	branchOf := make(map[string]int)
	for _, id := range order {
		if b, ok := branchOf[parentOf[id]]; ok {
			branches[b] = append(branches[b], id)
			branchOf[id] = b
			continue
		}
		branchOf[id] = len(branches)
		branches = append(branches, []string{id})
	}

	nameOf := make(map[string]string)
	for b, branch := range branches {
		branchName := fmt.Sprintf("%s-%d", opts.Colony, b+1)
		for i, id := range branch {
			name := branchName
			if i > 0 {
				name = fmt.Sprintf("%s.%d", nameOf[parentOf[id]], (i-1)%2+1)
			}
			nameOf[id] = name
			for _, r := range rowsOf[id] {
				out.Set(r, "branch_name", branchName)
				out.Set(r, "name", name)
			}
		}
	}

	parentsAt := make(map[int]map[string]bool)
	for r := range out.Rows {
		if parentsAt[frames[r]] == nil {
			parentsAt[frames[r]] = make(map[string]bool)
		}
		parentsAt[frames[r]][NormalizeID(out.Get(r, "parent"))] = true
	}
	out.Fill("fate_at_next_frame", NextMigration)
	for _, id := range order {
		last := lastFrame[id]
		if last == maxFrame {
			continue
		}
		fate := NextDeath
		if parentsAt[last+1][id] {
			fate = NextDivision
		}
		for _, r := range rowsOf[id] {
			if frames[r] == last {
				out.Set(r, "fate_at_next_frame", fate)
			}
		}
	}

	out.Drop("parent", "root", "state", "dummy")
	result := out.Reindex(ClovarsColumns)

	if opts.OnlyMitosis {
		single := make(map[string]bool)
		for _, branch := range branches {
			if len(branch) == 1 {
				single[branch[0]] = true
			}
		}
		result = result.Filter(func(r int) bool { return !single[ids[r]] })
	}
	return result, nil
}

// minID returns the smallest identifier, comparing numerically when possible.
func minID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	m := ids[0]
	for _, id := range ids[1:] {
		if lessID(id, m) {
			m = id
		}
	}
	return m
}
