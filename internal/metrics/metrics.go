// Package metrics exposes Prometheus collectors for report runs and the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of hourly report runs",
		},
		[]string{"profile", "status"},
	)

	PipelineRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of hourly report runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"profile"},
	)

	InputRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_input_rows_total",
			Help: "Rows read from input tables",
		},
		[]string{"source"},
	)

	FlattenFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "json_flatten_failures_total",
			Help: "Rows whose side-channel JSON could not be expanded",
		},
	)

	TimestampRowsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timestamp_rows_skipped_total",
			Help: "Rows dropped because their timestamp could not be parsed",
		},
		[]string{"category"},
	)

	ReportRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "report_rows",
			Help: "Rows in the most recent report per profile",
		},
		[]string{"profile"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Dashboard HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
)

func RecordPipelineRun(profile string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PipelineRuns.WithLabelValues(profile, status).Inc()
	PipelineRunDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

func RecordInputRows(source string, rows int) {
	InputRows.WithLabelValues(source).Add(float64(rows))
}

func RecordFlattenFailures(n int) {
	FlattenFailures.Add(float64(n))
}

func RecordTimestampSkips(category string, n int) {
	if n > 0 {
		TimestampRowsSkipped.WithLabelValues(category).Add(float64(n))
	}
}

func RecordReportRows(profile string, n int) {
	ReportRows.WithLabelValues(profile).Set(float64(n))
}

func RecordHTTPRequest(route, method string, status int) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
