package sweep

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/labsinal/celltrack/internal/tracks"
)

// Columns of the sweep CSV.
var Columns = []string{"t_tolerance", "pos_tolerance", "tp", "fp", "fn", "precision", "recall", "f1"}

// CSVWriter streams sweep rows.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter wraps w. The header is written with the first row.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteCombo appends one row.
func (c *CSVWriter) WriteCombo(combo Combo) error {
	if !c.wroteHeader {
		if err := c.w.Write(Columns); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	r := combo.Result
	return c.w.Write([]string{
		tracks.FormatFloat(combo.Tolerance.Time),
		tracks.FormatFloat(combo.Tolerance.Position),
		strconv.Itoa(r.TP),
		strconv.Itoa(r.FP),
		strconv.Itoa(r.FN),
		tracks.FormatFloat(r.Precision),
		tracks.FormatFloat(r.Recall),
		tracks.FormatFloat(r.F1),
	})
}

// Flush writes any buffered rows.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
