package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("import completed", "inserted", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "import completed" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["inserted"] != float64(3) {
		t.Errorf("inserted = %v", rec["inserted"])
	}
}

func TestPrettyHandler(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	logger := New(&buf, "debug", "pretty").With("batch_id", "b-1")

	logger.WithGroup("row").Warn("row not imported", "number", 7)

	out := buf.String()
	for _, want := range []string{"WARN:", "row not imported", "batch_id=b-1", "row.number=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, slog.LevelWarn)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestFromContext_RequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "info", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var handled bool
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
		handled = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !handled {
		t.Fatal("handler not called")
	}
	if !strings.Contains(buf.String(), "request_id=") {
		t.Errorf("log line %q has no request_id", buf.String())
	}
}

func TestWithRequest(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "info", "text").With("component", "import")

	WithRequest(context.Background(), base).Info("no request")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("log line %q has a request_id without one in context", buf.String())
	}

	buf.Reset()
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "abc")
	WithRequest(ctx, base).Info("with request")
	if !strings.Contains(buf.String(), "request_id=abc") || !strings.Contains(buf.String(), "component=import") {
		t.Errorf("log line %q should keep base fields and add request_id", buf.String())
	}
}
