package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table accumulates rows and renders them tab-aligned under an underlined
// header, in a single flush. The last column can be capped so long issue
// messages never wrap the terminal.
type Table struct {
	headers []string
	rows    [][]string
	lastCap int
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// CapLastColumn truncates the final column's cells to n characters with a
// trailing ellipsis.
func (t *Table) CapLastColumn(n int) *Table {
	t.lastCap = n
	return t
}

// AddRow appends a data row. Missing cells render empty; extra cells beyond
// the header count are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	if last := len(row) - 1; t.lastCap > 3 && last >= 0 && len(row[last]) > t.lastCap {
		row[last] = row[last][:t.lastCap-3] + "..."
	}
	t.rows = append(t.rows, row)
}

// Render writes the header, an underline row, and every data row to w.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	underline := make([]string, len(t.headers))
	for i, h := range t.headers {
		underline[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(t.headers, "\t"))
	fmt.Fprintln(tw, strings.Join(underline, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
