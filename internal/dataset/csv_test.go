package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffastrologerId,userId,other_data\n" +
		"a1,u1,\"{\"\"x\"\": 1}\"\n" +
		"a2,,\n" +
		"a3\n"

	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	if got := table.Columns(); strings.Join(got, ",") != "astrologerId,userId,other_data" {
		t.Fatalf("unexpected columns: %v", got)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}

	if c := table.Cell(0, 2); !c.Valid || c.Value != `{"x": 1}` {
		t.Errorf("expected quoted json cell, got %+v", c)
	}
	if c := table.Cell(1, 1); c.Valid {
		t.Errorf("empty field should load as null, got %+v", c)
	}
	if c := table.Cell(2, 2); c.Valid {
		t.Errorf("short record should be padded with null, got %+v", c)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty input", input: "", want: ErrNoHeader},
		{name: "duplicate header", input: "a,a\n1,2\n", want: ErrDuplicateColumn},
		{name: "long record", input: "a,b\n1,2,3\n", want: ErrRowLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	table, err := New("_id", "name", "note")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := table.AppendRow([]Cell{String("a1"), Null, String("has, comma")}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := "_id,name,note\na1,,\"has, comma\"\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestAddColumn(t *testing.T) {
	table, _ := New("a")
	_ = table.AppendStrings("1")
	_ = table.AppendStrings("2")

	if err := table.AddColumn("b", []Cell{String("x")}); !errors.Is(err, ErrRowLength) {
		t.Fatalf("expected ErrRowLength, got %v", err)
	}
	if err := table.AddColumn("a", []Cell{Null, Null}); !errors.Is(err, ErrDuplicateColumn) {
		t.Fatalf("expected ErrDuplicateColumn, got %v", err)
	}

	clone := table.Clone()
	if err := clone.AddColumn("b", []Cell{String("x"), Null}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	if table.HasColumn("b") {
		t.Error("adding a column to a clone must not touch the source table")
	}
	if c := clone.Cell(0, 1); c.Value != "x" {
		t.Errorf("expected x, got %+v", c)
	}
	if err := clone.Require("a", "b", "c"); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}
