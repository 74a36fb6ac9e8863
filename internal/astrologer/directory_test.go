package astrologer

import (
	"errors"
	"strings"
	"testing"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"go.uber.org/zap"
)

func TestFromTable(t *testing.T) {
	input := "_id,name,type,rating\n" +
		"a1,Asha,TAROT,4.5\n" +
		",Nobody,VEDIC,3\n" +
		"a2,,VEDIC,\n" +
		"a1,Asha Duplicate,NUMEROLOGY,1\n"

	table, err := dataset.ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}

	list, err := FromTable(table)
	if err != nil {
		t.Fatalf("FromTable failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 astrologers with ids, got %d", len(list))
	}

	dir := NewDirectory(list, zap.NewNop())
	if dir.Len() != 2 {
		t.Fatalf("expected 2 distinct ids, got %d", dir.Len())
	}

	a1, ok := dir.Lookup("a1")
	if !ok {
		t.Fatal("expected a1 to be found")
	}
	if a1.Name.String != "Asha" || a1.Type.String != "TAROT" {
		t.Errorf("first row should win, got %+v", a1)
	}

	a2, ok := dir.Lookup("a2")
	if !ok {
		t.Fatal("expected a2 to be found")
	}
	if a2.Name.Valid {
		t.Errorf("empty name should be null, got %+v", a2.Name)
	}

	if _, ok := dir.Lookup("missing"); ok {
		t.Error("unknown id should not be found")
	}
}

func TestFromTableRequiresColumns(t *testing.T) {
	table, err := dataset.ReadCSV(strings.NewReader("_id,name\na1,Asha\n"))
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if _, err := FromTable(table); !errors.Is(err, dataset.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestNewRepositoryRejectsUnsafeTableName(t *testing.T) {
	if _, err := NewRepository(nil, "astrologers; DROP TABLE x", zap.NewNop()); err == nil {
		t.Fatal("expected an error for an unsafe table name")
	}
	if _, err := NewRepository(nil, "public.astrologers", zap.NewNop()); err != nil {
		t.Fatalf("schema-qualified name should be accepted: %v", err)
	}
}
