// Package table provides the rectangular, string-celled table that the
// ingestion pipeline operates on. Cells are kept as raw strings end-to-end so
// identifier values such as "007" survive untouched; numeric coercion happens
// only where a pipeline stage demands it.
package table

import (
	"strconv"
	"strings"
)

// Row represents one response as column-name/value pairs
type Row map[string]string

// Clone returns a deep copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of columns over a list of rows
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order
func New(columns ...string) Table {
	return Table{Columns: append([]string{}, columns...)}
}

// Len returns the number of rows
func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table has a column with the given name
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column if it is not already present
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// AppendRow adds a row to the table
func (t *Table) AppendRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// Clone returns a deep copy of the table
func (t Table) Clone() Table {
	out := New(t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Column returns the values of a column, one entry per row. Missing cells
// come back as empty strings.
func (t Table) Column(name string) []string {
	values := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r[name]
	}
	return values
}

// Select returns a new table containing only the named columns, in the given
// order, skipping any that do not exist.
func (t Table) Select(columns ...string) Table {
	present := make([]string, 0, len(columns))
	for _, c := range columns {
		if t.HasColumn(c) {
			present = append(present, c)
		}
	}
	out := New(present...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(Row, len(present))
		for _, c := range present {
			if v, ok := r[c]; ok {
				row[c] = v
			}
		}
		out.Rows[i] = row
	}
	return out
}

// Drop returns a new table without the named column
func (t Table) Drop(name string) Table {
	kept := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c != name {
			kept = append(kept, c)
		}
	}
	return t.Select(kept...)
}

// RenameColumns renames columns in place according to the mapping. Columns
// not present in the mapping keep their names.
func (t *Table) RenameColumns(mapping map[string]string) {
	if len(mapping) == 0 {
		return
	}
	for i, c := range t.Columns {
		if newName, ok := mapping[c]; ok {
			t.Columns[i] = newName
		}
	}
	for _, r := range t.Rows {
		for old, newName := range mapping {
			if v, ok := r[old]; ok {
				delete(r, old)
				r[newName] = v
			}
		}
	}
}

// Partition splits the rows into two tables sharing the column layout: rows
// matching the predicate and rows that do not.
func (t Table) Partition(keep func(Row) bool) (Table, Table) {
	kept := New(t.Columns...)
	dropped := New(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			kept.AppendRow(r)
		} else {
			dropped.AppendRow(r)
		}
	}
	return kept, dropped
}

// OuterMerge unions another table into this one, keyed by idColumn. The
// column set becomes the union of both tables. A row whose id already exists
// only fills in cells that are still empty; it never overwrites populated
// ones. Rows with unseen ids are appended as-is.
func (t Table) OuterMerge(other Table, idColumn string) Table {
	out := t.Clone()
	for _, c := range other.Columns {
		out.AddColumn(c)
	}

	index := make(map[string]int, len(out.Rows))
	for i, r := range out.Rows {
		index[r[idColumn]] = i
	}

	for _, r := range other.Rows {
		id := r[idColumn]
		if i, ok := index[id]; ok {
			existing := out.Rows[i]
			for k, v := range r {
				if existing[k] == "" {
					existing[k] = v
				}
			}
		} else {
			out.AppendRow(r.Clone())
			index[id] = len(out.Rows) - 1
		}
	}
	return out
}

// SetColumn assigns one value per row for the named column, adding the
// column if needed. Extra values are ignored.
func (t *Table) SetColumn(name string, values []string) {
	t.AddColumn(name)
	for i, r := range t.Rows {
		if i < len(values) {
			r[name] = values[i]
		}
	}
}

// FillColumn assigns a constant value for the named column on every row
func (t *Table) FillColumn(name, value string) {
	t.AddColumn(name)
	for _, r := range t.Rows {
		r[name] = value
	}
}

// NumericColumn parses the named column as floats. The second return value
// reports, per row, whether the cell was parseable.
func (t Table) NumericColumn(name string) ([]float64, []bool) {
	values := make([]float64, len(t.Rows))
	ok := make([]bool, len(t.Rows))
	for i, r := range t.Rows {
		values[i], ok[i] = ParseNumeric(r[name])
	}
	return values, ok
}

// ParseNumeric parses a cell as a float, tolerating surrounding whitespace
func ParseNumeric(s string) (float64, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatNumeric renders a float in the canonical cell form used after
// numeric coercion
func FormatNumeric(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
