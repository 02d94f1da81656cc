package tabular

import (
	"fmt"
	"sort"
)

// Table is a decoded CSV table. Every column of the source is retained so a
// full rewrite of a blob does not drop columns the dashboards never display.
type Table struct {
	Header  []string
	Records [][]string

	index map[string]int
}

// New builds a table, padding short records to the header width.
func New(header []string, records [][]string) *Table {
	t := &Table{Header: append([]string(nil), header...), Records: make([][]string, 0, len(records))}
	for _, rec := range records {
		row := make([]string, len(t.Header))
		copy(row, rec)
		t.Records = append(t.Records, row)
	}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// ColumnIndex returns the position of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t.index == nil {
		t.reindex()
	}
	idx, ok := t.index[name]
	return idx, ok
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Require returns a MissingColumnError naming every absent column.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, col := range columns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	return nil
}

// Value returns the cell at row/column, or "" when the column is absent.
func (t *Table) Value(row int, column string) string {
	idx, ok := t.ColumnIndex(column)
	if !ok || row < 0 || row >= len(t.Records) {
		return ""
	}
	return t.Records[row][idx]
}

// Set overwrites one cell.
func (t *Table) Set(row int, column, value string) error {
	if row < 0 || row >= len(t.Records) {
		return fmt.Errorf("row %d out of range (%d rows)", row, len(t.Records))
	}
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return &MissingColumnError{Columns: []string{column}}
	}
	t.Records[row][idx] = value
	return nil
}

// Row returns a copy of one record keyed by column name.
func (t *Table) Row(i int) map[string]string {
	out := make(map[string]string, len(t.Header))
	if i < 0 || i >= len(t.Records) {
		return out
	}
	if t.index == nil {
		t.reindex()
	}
	for col, idx := range t.index {
		out[col] = t.Records[i][idx]
	}
	return out
}

// Append adds a record. Columns unknown to the header are added to it and
// back-filled with empty strings on earlier rows.
func (t *Table) Append(values map[string]string) {
	for _, col := range sortedKeys(values) {
		if t.HasColumn(col) {
			continue
		}
		t.Header = append(t.Header, col)
		for i := range t.Records {
			t.Records[i] = append(t.Records[i], "")
		}
		t.reindex()
	}
	row := make([]string, len(t.Header))
	for col, v := range values {
		idx, _ := t.ColumnIndex(col)
		row[idx] = v
	}
	t.Records = append(t.Records, row)
}

// FindRow returns the first row whose cells equal every key value.
func (t *Table) FindRow(key map[string]string) (int, bool) {
	if len(key) == 0 {
		return -1, false
	}
	for i := range t.Records {
		match := true
		for col, want := range key {
			idx, ok := t.ColumnIndex(col)
			if !ok || t.Records[i][idx] != want {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return -1, false
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := &Table{Header: append([]string(nil), t.Header...)}
	for i, rec := range t.Records {
		if keep(i) {
			out.Records = append(out.Records, append([]string(nil), rec...))
		}
	}
	out.reindex()
	return out
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	return t.Filter(func(int) bool { return true })
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
