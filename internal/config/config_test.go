package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("ASTRO_SOURCE", "")
	t.Setenv("TIMESTAMP_POLICY", "")
	t.Setenv("S3_BUCKET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.Pipeline.FlattenedOutputFile != "combined_data_hour_wise.csv" {
		t.Errorf("FlattenedOutputFile = %q", cfg.Pipeline.FlattenedOutputFile)
	}
	if cfg.Pipeline.ReportOutputFile != "combined_data_final_hour_wise.csv" {
		t.Errorf("ReportOutputFile = %q", cfg.Pipeline.ReportOutputFile)
	}
	if cfg.Pipeline.TimestampPolicy != "fail" {
		t.Errorf("TimestampPolicy = %q", cfg.Pipeline.TimestampPolicy)
	}
	if cfg.AstroSource != AstroSourceCSV {
		t.Errorf("AstroSource = %q", cfg.AstroSource)
	}
	if cfg.S3.Enabled() {
		t.Error("S3 should be disabled without a bucket")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROFILE", "hourly_accepts")
	t.Setenv("REPORT_HISTORY", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("KAFKA_PRODUCER_TIMEOUT", "3s")
	t.Setenv("S3_BUCKET", "reports")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("ASTRO_SOURCE", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pipeline.Profile != "hourly_accepts" {
		t.Errorf("Profile = %q", cfg.Pipeline.Profile)
	}
	if cfg.Dashboard.ReportHistory != 5 {
		t.Errorf("ReportHistory = %d", cfg.Dashboard.ReportHistory)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.ProducerTimeout != 3*time.Second {
		t.Errorf("ProducerTimeout = %s", cfg.Kafka.ProducerTimeout)
	}
	if !cfg.S3.Enabled() || !cfg.S3.UsePathStyle {
		t.Errorf("unexpected S3 config %+v", cfg.S3)
	}
	if cfg.AstroSource != AstroSourcePostgres {
		t.Errorf("AstroSource = %q", cfg.AstroSource)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{key: "ASTRO_SOURCE", value: "mongo"},
		{key: "REPORT_HISTORY", value: "0"},
		{key: "MAX_UPLOAD_BYTES", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: "5433", Username: "u", Password: "p", Database: "astro", SSLMode: "require"}
	want := "host=db port=5433 user=u password=p dbname=astro sslmode=require"
	if got := c.PostgresDSN(); got != want {
		t.Errorf("PostgresDSN = %q, want %q", got, want)
	}
}
