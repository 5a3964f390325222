package tracks

import (
	"sort"
	"strconv"
)

// ValidatorsTable summarises each track for manual validation: first and
// last frame and the last known fate. fateColumn selects the fate column;
// when empty, "fate" is used if present, otherwise "destino". Tracks are
// ordered by identifier.
func ValidatorsTable(t *Table, fateColumn string) (*Table, error) {
	if err := t.Require("track_id", "t"); err != nil {
		return nil, err
	}
	if fateColumn == "" {
		fateColumn = "fate"
		if !t.Has(fateColumn) && t.Has("destino") {
			fateColumn = "destino"
		}
	}

	type span struct {
		min, max int
		fate     string
	}
	spans := make(map[string]*span)
	var ids []string
	for r := range t.Rows {
		id := NormalizeID(t.Get(r, "track_id"))
		f, err := t.Int(r, "t")
		if err != nil {
			return nil, err
		}
		s, ok := spans[id]
		if !ok {
			s = &span{min: f, max: f}
			spans[id] = s
			ids = append(ids, id)
		}
		if f < s.min {
			s.min = f
		}
		if f > s.max {
			s.max = f
		}
		if v := t.Get(r, fateColumn); v != "" {
			s.fate = v
		}
	}

	sort.SliceStable(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })

	out := New("track_id", "t_min", "t_max", "fate")
	for _, id := range ids {
		s := spans[id]
		out.Append(id, strconv.Itoa(s.min), strconv.Itoa(s.max), s.fate)
	}
	return out, nil
}

// lessID orders identifiers numerically when both parse, lexically otherwise.
func lessID(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		return fa < fb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
