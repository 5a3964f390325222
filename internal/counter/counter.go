// Package counter reads marker files saved by the ImageJ CellCounter plugin,
// the format mitoses are annotated in by hand.
package counter

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/labsinal/celltrack/internal/tracks"
)

// ErrNoMarkerData is returned for XML documents without a Marker_Data element.
var ErrNoMarkerData = errors.New("cellcounter: no Marker_Data element")

// Marker is one annotated point. T is zero-based; CellCounter slices start at 1.
type Marker struct {
	Name string
	T    int
	X, Y float64
}

type document struct {
	XMLName    xml.Name    `xml:"CellCounter_Marker_File"`
	MarkerData *markerData `xml:"Marker_Data"`
}

type markerData struct {
	Types []markerType `xml:"Marker_Type"`
}

type markerType struct {
	Type    string      `xml:"Type"`
	Name    *string     `xml:"Name"`
	Markers []rawMarker `xml:"Marker"`
}

type rawMarker struct {
	X string `xml:"MarkerX"`
	Y string `xml:"MarkerY"`
	Z string `xml:"MarkerZ"`
}

// Parse decodes a CellCounter XML document. Marker types are read in file
// order; spaces in type names become underscores, and a type with no Name
// element is called Type_<n> after its Type number (or its position).
func Parse(r io.Reader) ([]Marker, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("cellcounter: %w", err)
	}
	if doc.MarkerData == nil {
		return nil, ErrNoMarkerData
	}

	var markers []Marker
	for i, mt := range doc.MarkerData.Types {
		name := typeName(mt, i)
		for j, m := range mt.Markers {
			x, err := parseFloat(m.X)
			if err != nil {
				return nil, fmt.Errorf("cellcounter: %s marker %d: MarkerX: %w", name, j+1, err)
			}
			y, err := parseFloat(m.Y)
			if err != nil {
				return nil, fmt.Errorf("cellcounter: %s marker %d: MarkerY: %w", name, j+1, err)
			}
			z, err := strconv.Atoi(strings.TrimSpace(m.Z))
			if err != nil {
				return nil, fmt.Errorf("cellcounter: %s marker %d: MarkerZ: %w", name, j+1, err)
			}
			markers = append(markers, Marker{Name: name, T: z - 1, X: x, Y: y})
		}
	}
	return markers, nil
}

func typeName(mt markerType, i int) string {
	if mt.Name != nil {
		return strings.ReplaceAll(strings.TrimSpace(*mt.Name), " ", "_")
	}
	if n := strings.TrimSpace(mt.Type); n != "" {
		return "Type_" + n
	}
	return "Type_" + strconv.Itoa(i+1)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Table renders markers as a name,t,x,y table, the ground-truth layout the
// evaluator reads.
func Table(markers []Marker) *tracks.Table {
	out := tracks.New("name", "t", "x", "y")
	for _, m := range markers {
		out.Append(m.Name, strconv.Itoa(m.T), tracks.FormatFloat(m.X), tracks.FormatFloat(m.Y))
	}
	return out
}
