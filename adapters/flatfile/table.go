package flatfile

import (
	"strconv"
	"strings"

	"claimscope/domain/policy"
)

// Table is the in-memory column table every pipeline stage works on.
// Headers are normalized; missing cells are empty strings (NA tokens are
// collapsed to "" at load time).
type Table struct {
	Headers []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a table and its header index. Headers are assumed to be
// normalized already.
func NewTable(headers []string, rows [][]string) *Table {
	t := &Table{Headers: headers, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		t.index[h] = i
	}
}

// Col returns the column index for a normalized header, or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	return t.Col(name) >= 0
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Cell returns the raw cell value for a row and normalized column name.
// Returns "" for unknown columns or short rows.
func (t *Table) Cell(row int, name string) string {
	col := t.Col(name)
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// SetCell writes a cell value, padding short rows as needed.
func (t *Table) SetCell(row int, name, value string) {
	col := t.Col(name)
	if col < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// IsMissing reports whether a cell is missing.
func (t *Table) IsMissing(row int, name string) bool {
	return strings.TrimSpace(t.Cell(row, name)) == ""
}

// Float parses a cell as float64. The second return is false for missing
// or unparseable cells.
func (t *Table) Float(row int, name string) (float64, bool) {
	raw := strings.TrimSpace(t.Cell(row, name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Bool parses a cell as a boolean flag. Accepts true/false variants and
// yes/no, which is how IsVATRegistered arrives in the raw file.
func (t *Table) Bool(row int, name string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(t.Cell(row, name))) {
	case "true", "t", "1", "yes", "y":
		return true, true
	case "false", "f", "0", "no", "n":
		return false, true
	}
	return false, false
}

// FloatColumn extracts all parseable values of a column.
func (t *Table) FloatColumn(name string) []float64 {
	out := make([]float64, 0, t.Len())
	for row := range t.Rows {
		if v, ok := t.Float(row, name); ok {
			out = append(out, v)
		}
	}
	return out
}

// Filter returns a new table with the rows where keep returns true.
func (t *Table) Filter(keep func(row int) bool) *Table {
	rows := make([][]string, 0, len(t.Rows))
	for i := range t.Rows {
		if keep(i) {
			rows = append(rows, t.Rows[i])
		}
	}
	return NewTable(t.Headers, rows)
}

// DropRows removes rows in place where drop returns true and returns the
// number removed.
func (t *Table) DropRows(drop func(row int) bool) int {
	kept := t.Rows[:0]
	removed := 0
	for i := range t.Rows {
		if drop(i) {
			removed++
			continue
		}
		kept = append(kept, t.Rows[i])
	}
	t.Rows = kept
	return removed
}

// DropColumns removes the named columns and returns how many existed.
func (t *Table) DropColumns(names ...string) int {
	toDrop := make(map[int]struct{}, len(names))
	dropped := 0
	for _, name := range names {
		if col := t.Col(name); col >= 0 {
			toDrop[col] = struct{}{}
			dropped++
		}
	}
	if dropped == 0 {
		return 0
	}

	headers := make([]string, 0, len(t.Headers)-dropped)
	for i, h := range t.Headers {
		if _, skip := toDrop[i]; !skip {
			headers = append(headers, h)
		}
	}
	for r, row := range t.Rows {
		next := make([]string, 0, len(headers))
		for i := 0; i < len(t.Headers); i++ {
			if _, skip := toDrop[i]; skip {
				continue
			}
			if i < len(row) {
				next = append(next, row[i])
			} else {
				next = append(next, "")
			}
		}
		t.Rows[r] = next
	}
	t.Headers = headers
	t.reindex()
	return dropped
}

// AddColumn appends a column with the given values ("" padded/truncated
// to the row count).
func (t *Table) AddColumn(name string, values []string) {
	t.Headers = append(t.Headers, name)
	for i := range t.Rows {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		t.Rows[i] = append(t.Rows[i], v)
	}
	t.reindex()
}

// normalizeCell collapses NA tokens to "" so missingness checks stay uniform.
func normalizeCell(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if policy.IsMissing(trimmed) {
		return ""
	}
	return trimmed
}
