package report

import (
	"sort"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
)

type Point struct {
	Date  string `json:"date"`
	Hour  int    `json:"hour"`
	Value *int64 `json:"value"`
}

// Series is one line of a chart. Null values are drawn as gaps.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

type Chart struct {
	Column string   `json:"column"`
	Title  string   `json:"title"`
	Series []Series `json:"series"`
}

// Charts builds one line chart per count column with hour on the x axis and one
// line per astrologer. Lines are labelled by name, falling back to the actor id.
func Charts(r *analytics.Report) []Chart {
	charts := make([]Chart, 0, len(r.CountColumns))
	for j, col := range r.CountColumns {
		byName := make(map[string]*Series)
		var names []string

		for _, row := range r.Rows {
			label := row.ActorID
			if row.Name.Valid && row.Name.Value != "" {
				label = row.Name.Value
			}
			s, ok := byName[label]
			if !ok {
				s = &Series{Name: label}
				byName[label] = s
				names = append(names, label)
			}
			s.Points = append(s.Points, Point{
				Date:  row.Date.Format(analytics.DateLayout),
				Hour:  row.Hour,
				Value: row.Counts[j],
			})
		}

		sort.Strings(names)
		series := make([]Series, 0, len(names))
		for _, name := range names {
			s := byName[name]
			sort.SliceStable(s.Points, func(a, b int) bool {
				if s.Points[a].Date != s.Points[b].Date {
					return s.Points[a].Date < s.Points[b].Date
				}
				return s.Points[a].Hour < s.Points[b].Hour
			})
			series = append(series, *s)
		}

		charts = append(charts, Chart{
			Column: col,
			Title:  chartTitle(col),
			Series: series,
		})
	}
	return charts
}

var chartTitles = map[string]string{
	"chat_intake_requests": "Chat Intake Requests",
	"chat_accepted":        "Chat Accepted",
	"chat_completed":       "Chat Completed",
	"paid_chats_completed": "Paid Chats Completed",
}

func chartTitle(column string) string {
	if t, ok := chartTitles[column]; ok {
		return t + " per Hour"
	}
	return column + " per Hour"
}
