package record

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table is a read-only tabular view over records. Columns follow the
// schema; a field missing from a row reads as Absent.
type Table struct {
	columns []string
	index   map[string]int
	rows    []*Record
}

// NewTable builds a table over rows with the columns of schema. A nil
// schema is derived from rows.
func NewTable(rows []*Record, schema *Schema) *Table {
	if schema == nil {
		schema = SchemaOf(rows)
	}
	cols := schema.Fields()
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		index[c] = i
	}
	return &Table{columns: cols, index: index, rows: rows}
}

// Columns returns the column names.
func (t *Table) Columns() []string { return t.columns }

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.rows) }

// Shape returns rows and columns.
func (t *Table) Shape() (int, int) { return len(t.rows), len(t.columns) }

// HasColumn reports whether col is part of the table.
func (t *Table) HasColumn(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Get returns the cell at row/col. Unknown columns and out-of-range rows
// read as Absent.
func (t *Table) Get(row int, col string) Value {
	if row < 0 || row >= len(t.rows) {
		return Absent
	}
	return t.rows[row].Field(col)
}

// Row returns the cells of a row in column order.
func (t *Table) Row(row int) []Value {
	out := make([]Value, len(t.columns))
	for i, c := range t.columns {
		out[i] = t.Get(row, c)
	}
	return out
}

// Record returns the underlying record of a row, or nil.
func (t *Table) Record(row int) *Record {
	if row < 0 || row >= len(t.rows) {
		return nil
	}
	return t.rows[row]
}

// Column returns all cells of col.
func (t *Table) Column(col string) []Value {
	out := make([]Value, len(t.rows))
	for i := range t.rows {
		out[i] = t.Get(i, col)
	}
	return out
}

// ColumnStats summarises one column.
type ColumnStats struct {
	Name    string
	Present int // rows where the field exists, including JSON null
	Nulls   int
	Absent  int
	Kinds   map[Kind]int
}

// Stats computes a summary of col.
func (t *Table) Stats(col string) ColumnStats {
	cs := ColumnStats{Name: col, Kinds: make(map[Kind]int)}
	for i := range t.rows {
		v := t.Get(i, col)
		switch v.Kind() {
		case KindAbsent:
			cs.Absent++
			continue
		case KindNull:
			cs.Nulls++
		}
		cs.Present++
		cs.Kinds[v.Kind()]++
	}
	return cs
}

// FormatOptions controls Format.
type FormatOptions struct {
	MaxRows  int // 0 means all rows
	MaxWidth int // per-cell display width, 0 means 24
	Header   func(string) string
}

// Format writes an aligned text rendering of the table. Widths are
// measured in terminal cells so wide runes line up.
func (t *Table) Format(w io.Writer, opts FormatOptions) error {
	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = 24
	}
	n := len(t.rows)
	if opts.MaxRows > 0 && opts.MaxRows < n {
		n = opts.MaxRows
	}

	cells := make([][]string, n)
	widths := make([]int, len(t.columns))
	for j, c := range t.columns {
		widths[j] = runewidth.StringWidth(runewidth.Truncate(c, maxWidth, "…"))
	}
	for i := 0; i < n; i++ {
		cells[i] = make([]string, len(t.columns))
		for j, v := range t.Row(i) {
			s := runewidth.Truncate(v.String(), maxWidth, "…")
			cells[i][j] = s
			if sw := runewidth.StringWidth(s); sw > widths[j] {
				widths[j] = sw
			}
		}
	}

	var sb strings.Builder
	for j, c := range t.columns {
		if j > 0 {
			sb.WriteString("  ")
		}
		h := runewidth.FillRight(runewidth.Truncate(c, maxWidth, "…"), widths[j])
		if opts.Header != nil {
			h = opts.Header(h)
		}
		sb.WriteString(h)
	}
	sb.WriteByte('\n')
	for _, row := range cells {
		for j, s := range row {
			if j > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(s, widths[j]))
		}
		sb.WriteByte('\n')
	}
	if n < len(t.rows) {
		fmt.Fprintf(&sb, "... %d more rows\n", len(t.rows)-n)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
