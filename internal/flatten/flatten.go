// Package flatten expands a JSON side-channel column into flat dot-path columns.
package flatten

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var errNotObject = errors.New("json value is not an object")

type Result struct {
	Table *dataset.Table
	// Added lists the new columns in first-appearance order.
	Added []string
	// Failed counts rows whose value was present but could not be expanded.
	Failed int
}

type Flattener struct {
	logger *zap.Logger
}

func NewFlattener(logger *zap.Logger) *Flattener {
	return &Flattener{logger: logger}
}

// Flatten returns a copy of t with one extra column per JSON path found in column.
// Rows are never dropped: a row whose value is empty, malformed or not an object keeps
// null cells in every added column.
func (f *Flattener) Flatten(t *dataset.Table, column string) (*Result, error) {
	src, err := t.ColumnIndex(column)
	if err != nil {
		return nil, fmt.Errorf("failed to flatten json column: %w", err)
	}

	perRow := make([]map[string]dataset.Cell, t.Len())
	var order []string
	seen := make(map[string]bool)
	failed := 0

	for i := 0; i < t.Len(); i++ {
		cell := t.Cell(i, src)
		if !cell.Valid || strings.TrimSpace(cell.Value) == "" {
			continue
		}

		fields, err := decodeObject(cell.Value)
		if err != nil {
			failed++
			f.logger.Debug("Skipping json expansion for row",
				zap.Int("row", i),
				zap.String("column", column),
				zap.Error(err),
			)
			continue
		}

		for _, path := range fields.order {
			if !seen[path] {
				seen[path] = true
				order = append(order, path)
			}
		}
		perRow[i] = fields.values
	}

	out := t.Clone()
	added := make([]string, 0, len(order))
	for _, path := range order {
		name := columnName(out, column, path)
		values := make([]dataset.Cell, t.Len())
		for i, fields := range perRow {
			if fields != nil {
				values[i] = fields[path]
			}
		}
		if err := out.AddColumn(name, values); err != nil {
			return nil, fmt.Errorf("failed to add flattened column %q: %w", name, err)
		}
		added = append(added, name)
	}

	f.logger.Debug("JSON column flattened",
		zap.String("column", column),
		zap.Int("rows", t.Len()),
		zap.Int("added_columns", len(added)),
		zap.Int("failed_rows", failed),
	)

	return &Result{Table: out, Added: added, Failed: failed}, nil
}

type flatFields struct {
	order  []string
	values map[string]dataset.Cell
}

func decodeObject(raw string) (*flatFields, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after json value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}

	fields := &flatFields{values: make(map[string]dataset.Cell)}
	walk(fields, "", obj)
	return fields, nil
}

// walk visits keys in sorted order so column order does not depend on map iteration.
func walk(fields *flatFields, prefix string, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := prefix + k
		if nested, ok := obj[k].(map[string]any); ok && len(nested) > 0 {
			walk(fields, path+".", nested)
			continue
		}
		fields.order = append(fields.order, path)
		fields.values[path] = render(obj[k])
	}
}

func render(v any) dataset.Cell {
	switch val := v.(type) {
	case nil:
		return dataset.Null
	case string:
		return dataset.String(val)
	case json.Number:
		return dataset.String(val.String())
	case bool:
		return dataset.String(strconv.FormatBool(val))
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return dataset.Null
		}
		return dataset.String(string(b))
	}
}

// columnName keeps existing source columns intact; a clashing JSON path is
// namespaced under the side-channel column.
func columnName(t *dataset.Table, column, path string) string {
	if !t.HasColumn(path) {
		return path
	}
	name := column + "." + path
	for n := 2; t.HasColumn(name); n++ {
		name = fmt.Sprintf("%s.%s_%d", column, path, n)
	}
	return name
}
