package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		env   string
		debug bool
	}{
		{level: "debug", env: "development", debug: true},
		{level: "info", env: "production", debug: false},
		{level: "not-a-level", env: "development", debug: false},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.env, func(t *testing.T) {
			log, err := NewLogger(tt.level, tt.env)
			if err != nil {
				t.Fatalf("NewLogger failed: %v", err)
			}
			if got := log.Core().Enabled(zapcore.DebugLevel); got != tt.debug {
				t.Errorf("debug enabled = %v, want %v", got, tt.debug)
			}
		})
	}
}

func TestWithRunAndService(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := WithRun(WithService(zap.New(core), "dashboard"), "run-1")

	log.Info("Hourly report built")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["service"] != "dashboard" {
		t.Errorf("expected service field, got %v", fields["service"])
	}
	if fields["run_id"] != "run-1" {
		t.Errorf("expected run_id field, got %v", fields["run_id"])
	}
}

func TestNewEncodingOverride(t *testing.T) {
	for _, enc := range []string{"json", "console", ""} {
		log, err := New(Options{Level: "warn", Environment: "development", Encoding: enc})
		if err != nil {
			t.Fatalf("New(%q) failed: %v", enc, err)
		}
		if log.Core().Enabled(zapcore.InfoLevel) {
			t.Errorf("encoding %q: info should be disabled at warn level", enc)
		}
	}
}
