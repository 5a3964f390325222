// Package tracks holds the column-oriented tracking tables exported by
// btrack and ultrack, and the reshaping operations applied to them: fate
// inference, CloVarS conversion, annotation reconciliation, validator
// summaries and segmentation merges.
//
// Tables keep every cell as text so columns the operations do not touch
// pass through unchanged.
package tracks

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when an operation needs a column the table lacks.
var ErrMissingColumn = errors.New("missing column")

// ErrBadValue is returned when a cell cannot be parsed as the required type.
var ErrBadValue = errors.New("bad value")

// Root is the parent_track_id ultrack assigns to tracks without a parent.
const Root = "-1"

// Table is a delimited table with a header row. Change Header through the
// column methods so the name index follows it.
type Table struct {
	Header []string
	Rows   [][]string

	// index maps a column name to its first position; nil until built.
	index map[string]int
}

// New returns an empty table with the given columns.
func New(header ...string) *Table {
	t := &Table{Header: append([]string(nil), header...)}
	t.reindexHeader()
	return t
}

func (t *Table) reindexHeader() {
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
}

func (t *Table) col(name string) (int, bool) {
	if t.index == nil {
		t.reindexHeader()
	}
	i, ok := t.index[name]
	return i, ok
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.col(name)
	return ok
}

// Require returns an error naming the first of cols that is absent.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return fmt.Errorf("%w %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// Get returns the cell at row/col, or "" when the column is absent.
func (t *Table) Get(row int, name string) string {
	i, ok := t.col(name)
	if !ok || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Float parses the cell at row/col as a float.
func (t *Table) Float(row int, name string) (float64, error) {
	if !t.Has(name) {
		return 0, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	s := strings.TrimSpace(t.Get(row, name))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("row %d column %q: %w: %q", row+1, name, ErrBadValue, s)
	}
	return v, nil
}

// Int parses the cell at row/col as an integer. Integral floats such as
// "3.0" are accepted because pandas writes integer columns that way once
// they have held a NaN.
func (t *Table) Int(row int, name string) (int, error) {
	v, err := t.Float(row, name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("row %d column %q: %w: %v is not an integer", row+1, name, ErrBadValue, v)
	}
	return int(v), nil
}

// ID returns the normalised identifier at row/col.
func (t *Table) ID(row int, name string) (string, error) {
	if !t.Has(name) {
		return "", fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	return NormalizeID(t.Get(row, name)), nil
}

// Set writes a cell, adding the column when it does not exist yet.
func (t *Table) Set(row int, name, value string) {
	i := t.EnsureColumn(name, "")
	t.Rows[row][i] = value
}

// EnsureColumn returns the index of name, appending it filled with fill when
// absent. Existing columns are left untouched.
func (t *Table) EnsureColumn(name, fill string) int {
	if i, ok := t.col(name); ok {
		return i
	}
	t.Header = append(t.Header, name)
	t.reindexHeader()
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], fill)
	}
	return len(t.Header) - 1
}

// Fill sets every cell of name to value, adding the column if needed.
func (t *Table) Fill(name, value string) {
	i := t.EnsureColumn(name, value)
	for r := range t.Rows {
		t.Rows[r][i] = value
	}
}

// Append adds a row. Short rows are padded to the header width.
func (t *Table) Append(row ...string) {
	r := make([]string, len(t.Header))
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// Rename renames a column. Renaming a missing column is a no-op.
func (t *Table) Rename(from, to string) {
	if i, ok := t.col(from); ok {
		t.Header[i] = to
		t.reindexHeader()
	}
}

// Drop removes the named columns; absent names are ignored.
func (t *Table) Drop(names ...string) {
	drop := make(map[int]bool)
	for _, n := range names {
		if i, ok := t.col(n); ok {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := func(cells []string) []string {
		out := make([]string, 0, len(cells)-len(drop))
		for i, c := range cells {
			if !drop[i] {
				out = append(out, c)
			}
		}
		return out
	}
	t.Header = keep(t.Header)
	for r := range t.Rows {
		t.Rows[r] = keep(t.Rows[r])
	}
	t.reindexHeader()
}

// Reindex returns a table with exactly cols, in order. Columns missing from
// t are present and empty.
func (t *Table) Reindex(cols []string) *Table {
	out := New(cols...)
	src := make([]int, len(cols))
	for j, c := range cols {
		if i, ok := t.col(c); ok {
			src[j] = i
		} else {
			src[j] = -1
		}
	}
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]string, len(cols))
		for j, i := range src {
			if i >= 0 && i < len(row) {
				nr[j] = row[i]
			}
		}
		out.Rows[r] = nr
	}
	return out
}

// Filter returns a table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := New(t.Header...)
	for r, row := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	return t.Filter(func(int) bool { return true })
}

// Distinct returns the normalised values of a column in first-appearance order.
func (t *Table) Distinct(name string) ([]string, error) {
	if !t.Has(name) {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	seen := make(map[string]bool)
	var out []string
	for r := range t.Rows {
		v := NormalizeID(t.Get(r, name))
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// Floats parses an entire column.
func (t *Table) Floats(name string) ([]float64, error) {
	out := make([]float64, len(t.Rows))
	for r := range t.Rows {
		v, err := t.Float(r, name)
		if err != nil {
			return nil, err
		}
		out[r] = v
	}
	return out, nil
}

// NormalizeID canonicalises track identifiers so that "7", "7.0" and " 7 "
// compare equal. Non-integral values such as the "12.1" labels produced by
// annotation are kept verbatim.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > 1e15 {
		return s
	}
	return strconv.FormatInt(int64(v), 10)
}

// FormatFloat renders a float in the shortest form that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
