package tracks

import (
	"fmt"

	"github.com/labsinal/celltrack/internal/monitoring"
)

// Annotation verdicts, as written by the lab's reviewers.
const (
	VerdictCorrect = "certo"  // track is right as is
	VerdictSwap    = "troca"  // identity swapped with another cell
	VerdictMiddle  = "meio"   // track starts mid-way through another cell
	VerdictMitosis = "mitose" // an undetected division at frame
	VerdictDeath   = "morte"  // the cell dies at frame
)

// Reconcile applies human annotation rows (columns id, frame, destino) to a
// tracking table, in annotation order:
//
//   - certo: keep the track
//   - troca, meio: remove every row of the track
//   - mitose: rows of the track from frame onwards become track "<id>.1",
//     and tracks whose parent was <id> are re-parented to "<id>.1"
//   - morte: remove the track's rows after frame
//
// The tracking time column is "frame" when present, "t" otherwise. Unknown
// verdicts are logged and skipped.
func Reconcile(tracking, annotation *Table) (*Table, error) {
	if err := annotation.Require("id", "frame", "destino"); err != nil {
		return nil, fmt.Errorf("annotation: %w", err)
	}
	if err := tracking.Require("track_id"); err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}
	timeCol := "t"
	if tracking.Has("frame") {
		timeCol = "frame"
	}
	if err := tracking.Require(timeCol); err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}

	out := tracking.Clone()
	for a := range annotation.Rows {
		id := NormalizeID(annotation.Get(a, "id"))
		verdict := annotation.Get(a, "destino")

		switch verdict {
		case VerdictCorrect:
			continue

		case VerdictSwap, VerdictMiddle:
			out = out.Filter(func(r int) bool {
				return NormalizeID(out.Get(r, "track_id")) != id
			})

		case VerdictMitosis:
			frame, err := annotation.Int(a, "frame")
			if err != nil {
				return nil, fmt.Errorf("annotation: %w", err)
			}
			daughter := id + ".1"
			for r := range out.Rows {
				if NormalizeID(out.Get(r, "track_id")) != id {
					continue
				}
				f, err := out.Int(r, timeCol)
				if err != nil {
					return nil, fmt.Errorf("tracking: %w", err)
				}
				if f >= frame {
					out.Set(r, "track_id", daughter)
				}
			}
			if out.Has("parent_track_id") {
				for r := range out.Rows {
					if NormalizeID(out.Get(r, "parent_track_id")) == id {
						out.Set(r, "parent_track_id", daughter)
					}
				}
			}

		case VerdictDeath:
			frame, err := annotation.Int(a, "frame")
			if err != nil {
				return nil, fmt.Errorf("annotation: %w", err)
			}
			var ferr error
			out = out.Filter(func(r int) bool {
				if NormalizeID(out.Get(r, "track_id")) != id {
					return true
				}
				f, err := out.Int(r, timeCol)
				if err != nil && ferr == nil {
					ferr = err
				}
				return f <= frame
			})
			if ferr != nil {
				return nil, fmt.Errorf("tracking: %w", ferr)
			}

		default:
			monitoring.Logf("annotation row %d: unknown verdict %q for track %s, skipping", a+1, verdict, id)
		}
	}
	return out, nil
}
