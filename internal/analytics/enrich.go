package analytics

import (
	"sort"

	"github.com/Wuchinator/astro-chat-analytics/internal/astrologer"
	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
)

type Directory interface {
	Lookup(id string) (astrologer.Astrologer, bool)
}

// Enrich left-joins the merged rows with astrologer metadata and orders the counts
// by the profile's count columns. Actors without metadata keep null name and type.
func Enrich(merged *Merged, dir Directory, profile Profile) []ReportRow {
	countCols := profile.CountColumns()
	position := make(map[string]int, len(merged.Columns))
	for i, c := range merged.Columns {
		position[c] = i
	}

	rows := make([]ReportRow, 0, len(merged.Rows))
	for _, m := range merged.Rows {
		row := ReportRow{
			Bucket: m.Bucket,
			Name:   dataset.Null,
			Type:   dataset.Null,
			Counts: make([]*int64, len(countCols)),
		}
		if a, ok := dir.Lookup(m.ActorID); ok {
			row.Name = dataset.Cell{Value: a.Name.String, Valid: a.Name.Valid}
			row.Type = dataset.Cell{Value: a.Type.String, Valid: a.Type.Valid}
		}
		for i, col := range countCols {
			if p, ok := position[col]; ok {
				row.Counts[i] = m.Counts[p]
			}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Less(rows[j].Bucket)
	})
	return rows
}
