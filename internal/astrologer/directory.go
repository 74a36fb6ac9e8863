package astrologer

import (
	"database/sql"
	"fmt"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"go.uber.org/zap"
)

// Directory resolves actor ids to astrologer metadata.
type Directory struct {
	byID   map[string]Astrologer
	logger *zap.Logger
}

// NewDirectory indexes astrologers by id. When an id repeats, the first row wins
// so that enrichment never multiplies report rows.
func NewDirectory(astrologers []Astrologer, logger *zap.Logger) *Directory {
	d := &Directory{
		byID:   make(map[string]Astrologer, len(astrologers)),
		logger: logger,
	}

	duplicates := 0
	for _, a := range astrologers {
		if _, exists := d.byID[a.ID]; exists {
			duplicates++
			continue
		}
		d.byID[a.ID] = a
	}

	if duplicates > 0 {
		logger.Warn("Duplicate astrologer ids ignored",
			zap.Int("duplicates", duplicates),
			zap.Int("astrologers", len(d.byID)),
		)
	}

	return d
}

func (d *Directory) Lookup(id string) (Astrologer, bool) {
	a, ok := d.byID[id]
	return a, ok
}

func (d *Directory) Len() int {
	return len(d.byID)
}

// FromTable reads the `_id`, `name` and `type` columns of a metadata table.
// Rows without an id cannot match any actor and are skipped.
func FromTable(t *dataset.Table) ([]Astrologer, error) {
	if err := t.Require(ColumnID, ColumnName, ColumnType); err != nil {
		return nil, fmt.Errorf("invalid astrologer table: %w", err)
	}
	idCol, _ := t.ColumnIndex(ColumnID)
	nameCol, _ := t.ColumnIndex(ColumnName)
	typeCol, _ := t.ColumnIndex(ColumnType)

	out := make([]Astrologer, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		id := t.Cell(i, idCol)
		if !id.Valid {
			continue
		}
		out = append(out, Astrologer{
			ID:   id.Value,
			Name: nullString(t.Cell(i, nameCol)),
			Type: nullString(t.Cell(i, typeCol)),
		})
	}
	return out, nil
}

func nullString(c dataset.Cell) sql.NullString {
	return sql.NullString{String: c.Value, Valid: c.Valid}
}
