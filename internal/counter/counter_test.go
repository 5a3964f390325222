package counter

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<CellCounter_Marker_File>
  <Image_Properties>
    <Image_Filename>colony.tif</Image_Filename>
  </Image_Properties>
  <Marker_Data>
    <Current_Type>1</Current_Type>
    <Marker_Type>
      <Type>1</Type>
      <Name>Cell Division</Name>
      <Marker>
        <MarkerX>120</MarkerX>
        <MarkerY>45</MarkerY>
        <MarkerZ>3</MarkerZ>
      </Marker>
      <Marker>
        <MarkerX>300</MarkerX>
        <MarkerY>512</MarkerY>
        <MarkerZ>1</MarkerZ>
      </Marker>
    </Marker_Type>
    <Marker_Type>
      <Type>2</Type>
      <Marker>
        <MarkerX>7.5</MarkerX>
        <MarkerY>8</MarkerY>
        <MarkerZ>10</MarkerZ>
      </Marker>
    </Marker_Type>
    <Marker_Type>
      <Type>3</Type>
      <Name>Unused</Name>
    </Marker_Type>
  </Marker_Data>
</CellCounter_Marker_File>
`

func TestParse(t *testing.T) {
	markers, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []Marker{
		{Name: "Cell_Division", T: 2, X: 120, Y: 45},
		{Name: "Cell_Division", T: 0, X: 300, Y: 512},
		{Name: "Type_2", T: 9, X: 7.5, Y: 8},
	}
	if diff := cmp.Diff(want, markers); diff != "" {
		t.Errorf("markers mismatch (-want +got):\n%s", diff)
	}
}

func TestTable(t *testing.T) {
	markers, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tbl := Table(markers)
	if diff := cmp.Diff([]string{"name", "t", "x", "y"}, tbl.Header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	wantRows := [][]string{
		{"Cell_Division", "2", "120", "45"},
		{"Cell_Division", "0", "300", "512"},
		{"Type_2", "9", "7.5", "8"},
	}
	if diff := cmp.Diff(wantRows, tbl.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "hello"},
		{"wrong root", "<Other></Other>"},
		{"bad coordinate", `<CellCounter_Marker_File><Marker_Data><Marker_Type><Name>a</Name>
<Marker><MarkerX>x</MarkerX><MarkerY>1</MarkerY><MarkerZ>1</MarkerZ></Marker></Marker_Type></Marker_Data></CellCounter_Marker_File>`},
		{"bad slice", `<CellCounter_Marker_File><Marker_Data><Marker_Type><Name>a</Name>
<Marker><MarkerX>1</MarkerX><MarkerY>1</MarkerY><MarkerZ>1.5</MarkerZ></Marker></Marker_Type></Marker_Data></CellCounter_Marker_File>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_NoMarkerData(t *testing.T) {
	_, err := Parse(strings.NewReader("<CellCounter_Marker_File></CellCounter_Marker_File>"))
	if !errors.Is(err, ErrNoMarkerData) {
		t.Errorf("expected ErrNoMarkerData, got %v", err)
	}
}
