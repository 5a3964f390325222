package tracks

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeSegmentation(t *testing.T) {
	tracking := mustRead(t, `
track_id,t,x,y,area
1,0,10,20,5
1,1,11,21,6
2,1,30,40,7
`)
	seg := mustRead(t, `
img_name,cx,cy,area,intensity
b.tif,11,21,60,0.5
a.tif,10.0,20,50,0.4
b.tif,99,99,1,1
`)

	out, err := MergeSegmentation(tracking, seg)
	if err != nil {
		t.Fatalf("MergeSegmentation failed: %v", err)
	}

	wantHeader := []string{"track_id", "t", "x", "y", "area_x", "img_name", "area_y", "intensity"}
	wantRows := [][]string{
		{"1", "0", "10", "20", "5", "a.tif", "50", "0.4"},
		{"1", "1", "11", "21", "6", "b.tif", "60", "0.5"},
	}
	if diff := cmp.Diff(wantHeader, out.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantRows, out.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeSegmentation_RequiresColumns(t *testing.T) {
	tracking := mustRead(t, "t,x,y\n0,1,1")
	if _, err := MergeSegmentation(tracking, mustRead(t, "img_name,cx\na,1")); err == nil {
		t.Error("expected error when cy is missing")
	}
}
