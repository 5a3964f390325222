package batch

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/labsinal/celltrack/internal/tracks"
)

// Columns of the per-run CSV.
var Columns = []string{"batches", "teste", "precision", "recall", "f1-score"}

// WriteCSV writes one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Label,
			strconv.Itoa(r.Test),
			tracks.FormatFloat(r.Result.Precision),
			tracks.FormatFloat(r.Result.Recall),
			tracks.FormatFloat(r.Result.F1),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one line per test.
func WriteSummaryCSV(w io.Writer, sums []Summary) error {
	cw := csv.NewWriter(w)
	header := []string{
		"teste", "dir", "runs",
		"precision_mean", "precision_std",
		"recall_mean", "recall_std",
		"f1_mean", "f1_std",
		"best",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range sums {
		rec := []string{
			strconv.Itoa(s.Test), s.Dir, strconv.Itoa(s.Runs),
			tracks.FormatFloat(s.Precision.Mean), tracks.FormatFloat(s.Precision.StdDev),
			tracks.FormatFloat(s.Recall.Mean), tracks.FormatFloat(s.Recall.StdDev),
			tracks.FormatFloat(s.F1.Mean), tracks.FormatFloat(s.F1.StdDev),
			s.Best,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
