package mitosis

import (
	"fmt"

	"github.com/labsinal/celltrack/internal/tracks"
)

// Isolate extracts one Event per dividing track of an ultrack table: the
// track's row at its last frame, which is where the division happens. Parents
// are visited in order of first appearance in parent_track_id. Parents that
// never appear as a track_id are skipped. A parent with more than one row at
// its last frame is an error.
func Isolate(tbl *tracks.Table) ([]Event, error) {
	if err := tbl.Require("track_id", "parent_track_id", "t", "x", "y"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}

	all, err := EventsFromTable(tbl, ReadOptions{})
	if err != nil {
		return nil, err
	}

	rowsOf := make(map[string][]int)
	for r, e := range all {
		rowsOf[e.ID] = append(rowsOf[e.ID], r)
	}

	parents, err := tbl.Distinct("parent_track_id")
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, parent := range parents {
		if parent == tracks.Root {
			continue
		}
		rows := rowsOf[parent]
		if len(rows) == 0 {
			continue
		}
		last := rows[0]
		count := 0
		for _, r := range rows {
			switch {
			case all[r].T > all[last].T:
				last, count = r, 1
			case all[r].T == all[last].T:
				count++
			}
		}
		if count > 1 {
			return nil, fmt.Errorf("%w: track %s has %d rows at frame %s", ErrMalformedRow, parent, count, tracks.FormatFloat(all[last].T))
		}
		events = append(events, all[last])
	}
	return events, nil
}
