package flatten

import (
	"errors"
	"strings"
	"testing"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

func buildTable(t *testing.T, values ...string) *dataset.Table {
	t.Helper()
	table, err := dataset.New("event_name", "other_data")
	if err != nil {
		t.Fatalf("dataset.New failed: %v", err)
	}
	for _, v := range values {
		cell := dataset.Null
		if v != "" {
			cell = dataset.String(v)
		}
		if err := table.AppendRow([]dataset.Cell{dataset.String("chat_intake_submit"), cell}); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
	}
	return table
}

func cellAt(t *testing.T, table *dataset.Table, row int, column string) dataset.Cell {
	t.Helper()
	idx, err := table.ColumnIndex(column)
	if err != nil {
		t.Fatalf("column %q: %v", column, err)
	}
	return table.Cell(row, idx)
}

func TestFlattenAlignsByRowIndex(t *testing.T) {
	table := buildTable(t,
		`{"platform":"android","meta":{"session":"s1","depth":{"level":2}}}`,
		`not json`,
		``,
		`{"platform":"ios","price":12.5,"flags":[1,2],"ok":true,"gone":null}`,
	)

	res, err := NewFlattener(zap.NewNop()).Flatten(table, "other_data")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	if res.Table.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", res.Table.Len())
	}
	if res.Failed != 1 {
		t.Errorf("expected 1 failed row, got %d", res.Failed)
	}

	wantCols := "meta.depth.level,meta.session,platform,flags,gone,ok,price"
	if got := strings.Join(res.Added, ","); got != wantCols {
		t.Errorf("unexpected added columns:\n got %s\nwant %s", got, wantCols)
	}

	if c := cellAt(t, res.Table, 0, "platform"); c.Value != "android" {
		t.Errorf("row 0 platform: got %+v", c)
	}
	if c := cellAt(t, res.Table, 0, "meta.depth.level"); c.Value != "2" {
		t.Errorf("row 0 nested path: got %+v", c)
	}
	// The malformed row must not receive the next row's values.
	if c := cellAt(t, res.Table, 1, "platform"); c.Valid {
		t.Errorf("row 1 should have null extension cells, got %+v", c)
	}
	if c := cellAt(t, res.Table, 2, "platform"); c.Valid {
		t.Errorf("row 2 should have null extension cells, got %+v", c)
	}
	if c := cellAt(t, res.Table, 3, "platform"); c.Value != "ios" {
		t.Errorf("row 3 platform: got %+v", c)
	}
	if c := cellAt(t, res.Table, 3, "price"); c.Value != "12.5" {
		t.Errorf("row 3 price: got %+v", c)
	}
	if c := cellAt(t, res.Table, 3, "flags"); c.Value != "[1,2]" {
		t.Errorf("row 3 flags: got %+v", c)
	}
	if c := cellAt(t, res.Table, 3, "ok"); c.Value != "true" {
		t.Errorf("row 3 ok: got %+v", c)
	}
	if c := cellAt(t, res.Table, 3, "gone"); c.Valid {
		t.Errorf("json null should be a null cell, got %+v", c)
	}
}

func TestFlattenRejectsNonObjects(t *testing.T) {
	table := buildTable(t, `[1,2,3]`, `"text"`, `42`, `{"a":1} trailing`)

	res, err := NewFlattener(zap.NewNop()).Flatten(table, "other_data")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if res.Failed != 4 {
		t.Errorf("expected 4 failed rows, got %d", res.Failed)
	}
	if len(res.Added) != 0 {
		t.Errorf("expected no added columns, got %v", res.Added)
	}
}

func TestFlattenNamespacesClashingKeys(t *testing.T) {
	table := buildTable(t, `{"event_name":"from_json"}`)

	res, err := NewFlattener(zap.NewNop()).Flatten(table, "other_data")
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	if c := cellAt(t, res.Table, 0, "event_name"); c.Value != "chat_intake_submit" {
		t.Errorf("source column overwritten: %+v", c)
	}
	if c := cellAt(t, res.Table, 0, "other_data.event_name"); c.Value != "from_json" {
		t.Errorf("expected namespaced column, got %+v", c)
	}
}

func TestFlattenMissingColumn(t *testing.T) {
	table := buildTable(t, `{}`)
	_, err := NewFlattener(zap.NewNop()).Flatten(table, "payload")
	if !errors.Is(err, dataset.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestProperty_FlattenPreservesRowCount(t *testing.T) {
	samples := []string{
		`{"a":1}`,
		`{"b":{"c":"x"}}`,
		`not json`,
		``,
		`[1,2]`,
		`null`,
		`{"a":"2","d":[{"e":1}]}`,
		`{`,
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("output row count equals input row count", prop.ForAll(
		func(picks []int) bool {
			table, err := dataset.New("other_data")
			if err != nil {
				return false
			}
			for _, p := range picks {
				cell := dataset.Null
				if samples[p] != "" {
					cell = dataset.String(samples[p])
				}
				if err := table.AppendRow([]dataset.Cell{cell}); err != nil {
					return false
				}
			}

			res, err := NewFlattener(zap.NewNop()).Flatten(table, "other_data")
			if err != nil {
				return false
			}
			return res.Table.Len() == table.Len()
		},
		gen.SliceOf(gen.IntRange(0, len(samples)-1)),
	))

	properties.TestingRun(t)
}
