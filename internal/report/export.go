// Package report turns a finished hourly report into files, chart series and
// Kafka messages.
package report

import (
	"bytes"
	"fmt"

	"github.com/Wuchinator/astro-chat-analytics/internal/analytics"
	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
)

// Fixed output names of a run.
const (
	FlattenedFileName = "combined_data_hour_wise.csv"
	FinalFileName     = "combined_data_final_hour_wise.csv"
)

// CSV renders the report with a header row. Null counts and metadata are empty fields.
func CSV(r *analytics.Report) ([]byte, error) {
	t, err := r.Table()
	if err != nil {
		return nil, fmt.Errorf("failed to build report table: %w", err)
	}
	return TableCSV(t)
}

func TableCSV(t *dataset.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, t); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}
