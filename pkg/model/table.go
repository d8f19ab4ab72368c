// pkg/model/table.go
package model

import "strings"

// Row maps a column name to its cell value. Cells are always strings; typed
// interpretation (money, dates) happens in the normalizers.
type Row map[string]string

// Table is an ordered, table-like collection of rows read from one CSV file.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given column order.
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: make([]Row, 0)}
}

// Append adds a row to the table.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn registers a new column and backfills existing rows with value.
func (t *Table) AddColumn(name, value string) {
	if t.HasColumn(name) {
		return
	}
	t.Columns = append(t.Columns, name)
	for _, r := range t.Rows {
		r[name] = value
	}
}

// RenameColumn renames a column in headers and rows. A missing source
// column or an already-present target leaves the table unchanged.
func (t *Table) RenameColumn(from, to string) {
	if !t.HasColumn(from) || t.HasColumn(to) {
		return
	}
	for i, c := range t.Columns {
		if c == from {
			t.Columns[i] = to
			break
		}
	}
	for _, r := range t.Rows {
		if v, ok := r[from]; ok {
			r[to] = v
			delete(r, from)
		}
	}
}

// Clone returns a deep copy. Cleaners clone before mutating so quarantine
// output can keep pre-clean values when an entity requires it.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns)
	for _, r := range t.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// LowerColumns folds all column names to lowercase, in headers and rows.
func (t *Table) LowerColumns() {
	for i, c := range t.Columns {
		lc := strings.ToLower(c)
		if lc == c {
			continue
		}
		t.Columns[i] = lc
		for _, r := range t.Rows {
			if v, ok := r[c]; ok {
				r[lc] = v
				delete(r, c)
			}
		}
	}
}

// missingSentinels are string renderings of absent values that upstream
// exports leave behind in place of empty cells.
var missingSentinels = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"null": {},
}

// IsMissing reports whether a cell value represents an absent value.
func IsMissing(s string) bool {
	_, ok := missingSentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
