package tracks

// Cell fates assigned by AddFate.
const (
	FateMitosis = "mitosis"
	FateLived   = "lived"
	FateDeath   = "death"
)

// AddFate labels every row with the fate of its track in a new (or
// overwritten) "fate" column:
//
//   - mitosis: the track is the parent of at least one other track
//   - lived:   the track is still present in the last frame
//   - death:   otherwise
func AddFate(t *Table) (*Table, error) {
	if err := t.Require("track_id", "parent_track_id", "t"); err != nil {
		return nil, err
	}

	out := t.Clone()
	if out.Len() == 0 {
		out.EnsureColumn("fate", "")
		return out, nil
	}

	frames := make([]int, out.Len())
	maxFrame := 0
	for r := range out.Rows {
		f, err := out.Int(r, "t")
		if err != nil {
			return nil, err
		}
		frames[r] = f
		if r == 0 || f > maxFrame {
			maxFrame = f
		}
	}

	parents := make(map[string]bool)
	lastFrame := make(map[string]bool)
	for r := range out.Rows {
		parents[NormalizeID(out.Get(r, "parent_track_id"))] = true
		if frames[r] == maxFrame {
			lastFrame[NormalizeID(out.Get(r, "track_id"))] = true
		}
	}

	for r := range out.Rows {
		id := NormalizeID(out.Get(r, "track_id"))
		switch {
		case parents[id]:
			out.Set(r, "fate", FateMitosis)
		case lastFrame[id]:
			out.Set(r, "fate", FateLived)
		default:
			out.Set(r, "fate", FateDeath)
		}
	}
	return out, nil
}
