package mitosis

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/labsinal/celltrack/internal/testutil"
	"github.com/labsinal/celltrack/internal/tracks"
)

func table(t *testing.T, csv string) *tracks.Table {
	t.Helper()
	tbl, err := tracks.Read(strings.NewReader(strings.TrimSpace(csv)+"\n"), tracks.Comma)
	testutil.AssertNoError(t, err)
	return tbl
}

func TestEventsFromTable(t *testing.T) {
	tbl := table(t, `
name,t,x,y
Type_1,3,10.5,20
Type_1,7,11,21.25
`)
	events, err := EventsFromTable(tbl, ReadOptions{})
	testutil.AssertNoError(t, err)
	want := []Event{{T: 3, X: 10.5, Y: 20}, {T: 7, X: 11, Y: 21.25}}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsFromTable_TrackIDs(t *testing.T) {
	tbl := table(t, `
track_id,t,x,y
4.0,3,1,1
9,5,2,2
`)
	events, err := EventsFromTable(tbl, ReadOptions{UniqueIDs: true})
	testutil.AssertNoError(t, err)
	if events[0].ID != "4" || events[1].ID != "9" {
		t.Errorf("ids = %q, %q", events[0].ID, events[1].ID)
	}
}

func TestEventsFromTable_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		opts ReadOptions
	}{
		{"missing column", "t,x\n1,2", ReadOptions{}},
		{"empty cell", "t,x,y\n1,,2", ReadOptions{}},
		{"text cell", "t,x,y\n1,abc,2", ReadOptions{}},
		{"nan cell", "t,x,y\n1,NaN,2", ReadOptions{}},
		{"unique ids need track_id", "t,x,y\n1,1,2", ReadOptions{UniqueIDs: true}},
		{"repeated track", "track_id,t,x,y\n1,1,1,1\n1.0,2,2,2", ReadOptions{UniqueIDs: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EventsFromTable(table(t, tt.csv), tt.opts)
			testutil.AssertErrorIs(t, err, ErrMalformedRow)
		})
	}
}

func TestEventsFromTable_MissingColumnIsAlsoReported(t *testing.T) {
	_, err := EventsFromTable(table(t, "t,y\n1,2"), ReadOptions{})
	if !errors.Is(err, tracks.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn in %v", err)
	}
	if !strings.Contains(err.Error(), `"x"`) {
		t.Errorf("error should name the column: %v", err)
	}
}

func TestEventsTable(t *testing.T) {
	out := EventsTable([]Event{{ID: "3", T: 12, X: 1.5, Y: 2}})
	if diff := cmp.Diff([]string{"track_id", "t", "x", "y"}, out.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"3", "12", "1.5", "2"}}, out.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTolerance_Within(t *testing.T) {
	tol := Tolerance{Time: 2, Position: 10}
	center := Event{T: 5, X: 50, Y: 50}
	inside := []Event{{T: 3, X: 40, Y: 60}, {T: 7, X: 60, Y: 40}, center}
	outside := []Event{{T: 7.5, X: 50, Y: 50}, {T: 5, X: 39.9, Y: 50}, {T: 5, X: 50, Y: 60.1}}
	for _, e := range inside {
		if !tol.Within(center, e) {
			t.Errorf("%+v should be within", e)
		}
	}
	for _, e := range outside {
		if tol.Within(center, e) {
			t.Errorf("%+v should be outside", e)
		}
	}
}
