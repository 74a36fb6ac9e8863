// Package dataset holds the in-memory tables every pipeline stage reads and writes.
package dataset

import (
	"fmt"
)

// Cell is one nullable table value. Empty CSV fields load as null cells.
type Cell struct {
	Value string
	Valid bool
}

func String(s string) Cell {
	return Cell{Value: s, Valid: true}
}

var Null = Cell{}

type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Cell
}

func New(columns ...string) (*Table, error) {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, name := range columns {
		if _, exists := t.index[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		t.index[name] = len(t.columns)
		t.columns = append(t.columns, name)
	}
	return t, nil
}

func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *Table) ColumnIndex(name string) (int, error) {
	idx, ok := t.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return idx, nil
}

// Require fails with ErrMissingColumn on the first absent column.
func (t *Table) Require(names ...string) error {
	for _, name := range names {
		if _, err := t.ColumnIndex(name); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) AppendRow(cells []Cell) error {
	if len(cells) != len(t.columns) {
		return fmt.Errorf("%w: got %d cells, want %d", ErrRowLength, len(cells), len(t.columns))
	}
	row := make([]Cell, len(cells))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return nil
}

// AppendStrings appends a row where every value is non-null.
func (t *Table) AppendStrings(values ...string) error {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = String(v)
	}
	return t.AppendRow(cells)
}

func (t *Table) Row(i int) []Cell {
	return t.rows[i]
}

func (t *Table) Cell(row, col int) Cell {
	return t.rows[row][col]
}

// AddColumn appends a column; values must hold exactly one cell per row.
func (t *Table) AddColumn(name string, values []Cell) error {
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("%w: column %q has %d values for %d rows", ErrRowLength, name, len(values), len(t.rows))
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], values[i])
	}
	return nil
}

// Clone returns a deep copy so later stages can extend it without touching the source.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    make([][]Cell, len(t.rows)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for i, row := range t.rows {
		out.rows[i] = make([]Cell, len(row), len(row)+4)
		copy(out.rows[i], row)
	}
	return out
}
