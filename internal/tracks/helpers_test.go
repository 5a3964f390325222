package tracks

import (
	"strings"
	"testing"
)

// mustRead parses an inline CSV fixture.
func mustRead(t *testing.T, csv string) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(strings.TrimSpace(csv)+"\n"), Comma)
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return tbl
}

// column returns every value of name, in row order.
func column(t *testing.T, tbl *Table, name string) []string {
	t.Helper()
	if !tbl.Has(name) {
		t.Fatalf("column %q missing from %v", name, tbl.Header)
	}
	out := make([]string, tbl.Len())
	for r := range tbl.Rows {
		out[r] = tbl.Get(r, name)
	}
	return out
}
