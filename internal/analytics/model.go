package analytics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

// Fixed report columns; everything else in a profile's column list is a count column.
const (
	ColumnActorID = "_id"
	ColumnName    = "name"
	ColumnType    = "type"
	ColumnDate    = "date"
	ColumnHour    = "hour"
)

// Bucket is the grouping key of every hourly row.
type Bucket struct {
	ActorID string
	Date    time.Time
	Hour    int
}

func NewBucket(actorID string, ts time.Time) Bucket {
	ts = ts.UTC()
	return Bucket{
		ActorID: actorID,
		Date:    time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
		Hour:    ts.Hour(),
	}
}

func (b Bucket) key() string {
	return fmt.Sprintf("%s\x00%s\x00%02d", b.ActorID, b.Date.Format(DateLayout), b.Hour)
}

// Less orders buckets by actor id, then date, then hour.
func (b Bucket) Less(other Bucket) bool {
	if b.ActorID != other.ActorID {
		return b.ActorID < other.ActorID
	}
	if !b.Date.Equal(other.Date) {
		return b.Date.Before(other.Date)
	}
	return b.Hour < other.Hour
}

type HourlyCount struct {
	Bucket
	Count int64
}

// Slice is the aggregate of one category.
type Slice struct {
	Column      string
	Rows        []HourlyCount
	SkippedRows int
}

// MergedRow holds one count per merged column; nil means the category had no rows
// in that bucket.
type MergedRow struct {
	Bucket
	Counts []*int64
}

type Merged struct {
	Columns []string
	Rows    []MergedRow
}

type ReportRow struct {
	Bucket
	Name   dataset.Cell
	Type   dataset.Cell
	Counts []*int64
}

type Report struct {
	RunID        uuid.UUID
	Profile      string
	Columns      []string
	CountColumns []string
	Rows         []ReportRow
	GeneratedAt  time.Time
}

// Count returns the value of a count column for row i.
func (r *Report) Count(i int, column string) (*int64, bool) {
	for j, c := range r.CountColumns {
		if c == column {
			return r.Rows[i].Counts[j], true
		}
	}
	return nil, false
}

// Table projects the report onto its output columns.
func (r *Report) Table() (*dataset.Table, error) {
	t, err := dataset.New(r.Columns...)
	if err != nil {
		return nil, err
	}

	countIdx := make(map[string]int, len(r.CountColumns))
	for i, c := range r.CountColumns {
		countIdx[c] = i
	}

	cells := make([]dataset.Cell, len(r.Columns))
	for _, row := range r.Rows {
		for i, col := range r.Columns {
			switch col {
			case ColumnActorID:
				cells[i] = dataset.String(row.ActorID)
			case ColumnName:
				cells[i] = row.Name
			case ColumnType:
				cells[i] = row.Type
			case ColumnDate:
				cells[i] = dataset.String(row.Date.Format(DateLayout))
			case ColumnHour:
				cells[i] = dataset.String(strconv.Itoa(row.Hour))
			default:
				cells[i] = dataset.Null
				if j, ok := countIdx[col]; ok && row.Counts[j] != nil {
					cells[i] = dataset.String(strconv.FormatInt(*row.Counts[j], 10))
				}
			}
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, err
		}
	}

	return t, nil
}
