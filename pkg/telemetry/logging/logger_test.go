package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/subtitler/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{name: "json info", cfg: config.LoggingConfig{Level: "info", Format: "json"}},
		{name: "text debug", cfg: config.LoggingConfig{Level: "debug", Format: "text"}},
		{name: "defaults", cfg: config.LoggingConfig{}},
		{name: "upper case", cfg: config.LoggingConfig{Level: "WARN", Format: "TEXT"}},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: config.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected a logger")
			}
		})
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record passed a warn level filter")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn record missing")
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := WithRunID(context.Background(), "run-1")
	ctx = WithTemplateID(ctx, "emphasis")
	ctx = trace.ContextWithSpanContext(ctx, sc)

	logger.With("component", "selector").InfoContext(ctx, "applied", "words", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"run_id":      "run-1",
		"template_id": "emphasis",
		"trace_id":    "0102030405060708090a0b0c0d0e0f10",
		"span_id":     "0102030405060708",
		"component":   "selector",
		"words":       float64(3),
	}
	for k, v := range want {
		if record[k] != v {
			t.Errorf("field %s = %v, want %v", k, record[k], v)
		}
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()
	if got := GetRunID(ctx); got != "" {
		t.Errorf("GetRunID() = %q, want empty", got)
	}
	if got := GetTemplateID(ctx); got != "" {
		t.Errorf("GetTemplateID() = %q, want empty", got)
	}
	if attrs := contextAttrs(ctx); len(attrs) != 0 {
		t.Errorf("expected no context attributes, got %v", attrs)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("nothing happens")
}
