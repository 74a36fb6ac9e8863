package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPipelineRun(t *testing.T) {
	before := testutil.ToFloat64(PipelineRuns.WithLabelValues("metrics_test", "error"))

	RecordPipelineRun("metrics_test", 20*time.Millisecond, errors.New("boom"))
	RecordPipelineRun("metrics_test", 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(PipelineRuns.WithLabelValues("metrics_test", "error")); got != before+1 {
		t.Errorf("expected error runs %v, got %v", before+1, got)
	}
	if got := testutil.ToFloat64(PipelineRuns.WithLabelValues("metrics_test", "success")); got < 1 {
		t.Errorf("expected at least one successful run, got %v", got)
	}
}

func TestRecordTimestampSkipsIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(TimestampRowsSkipped.WithLabelValues("metrics_test"))

	RecordTimestampSkips("metrics_test", 0)
	RecordTimestampSkips("metrics_test", 3)

	if got := testutil.ToFloat64(TimestampRowsSkipped.WithLabelValues("metrics_test")); got != before+3 {
		t.Errorf("expected %v, got %v", before+3, got)
	}
}

func TestRecordReportRows(t *testing.T) {
	RecordReportRows("metrics_test", 12)
	RecordReportRows("metrics_test", 4)

	if got := testutil.ToFloat64(ReportRows.WithLabelValues("metrics_test")); got != 4 {
		t.Errorf("gauge should hold the latest value, got %v", got)
	}
}
