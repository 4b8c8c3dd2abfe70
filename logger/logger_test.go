package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newJSONLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", &buf)
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line, got none")
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("unexpected error: %v (line %q)", err, line)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	l, buf := newJSONLogger(t, "debug")
	l.Info("hello", Fields("key", "value"))

	line := decodeLine(t, buf)
	if line["message"] != "hello" {
		t.Errorf("expected message 'hello', got %v", line["message"])
	}
	if line["key"] != "value" {
		t.Errorf("expected key 'value', got %v", line["key"])
	}
	if line[FieldService] != "test-svc" {
		t.Errorf("expected service 'test-svc', got %v", line[FieldService])
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	l, buf := newJSONLogger(t, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug and info to be filtered, got %q", buf.String())
	}
	l.Error("shown")
	if decodeLine(t, buf)["level"] != "error" {
		t.Errorf("expected error level line")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "invalid-level", Format: "json"}, "test", &buf)
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Error("expected invalid level to fall back to info")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("discarded")
	if l.WithComponent("x") == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithComponent(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	cl := l.WithComponent("resource")
	if cl.service != "test-svc" {
		t.Errorf("service should be preserved, got %q", cl.service)
	}
	cl.Info("x")
	if got := decodeLine(t, buf)[FieldComponent]; got != "resource" {
		t.Errorf("expected component 'resource', got %v", got)
	}
}

func TestWithContext_CallAndTrace(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	ctx := ContextWithCallID(context.Background(), "call-1")
	ctx = ContextWithTrace(ctx, "trace-1", "span-1")

	l.WithContext(ctx).Info("x")
	line := decodeLine(t, buf)
	for key, want := range map[string]string{
		FieldCallID:  "call-1",
		FieldTraceID: "trace-1",
		FieldSpanID:  "span-1",
	} {
		if line[key] != want {
			t.Errorf("expected %s %q, got %v", key, want, line[key])
		}
	}
}

func TestCallIDFromContext(t *testing.T) {
	if got := CallIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty call id, got %q", got)
	}
	ctx := ContextWithCallID(context.Background(), "abc")
	if got := CallIDFromContext(ctx); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

func TestWithFields(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithFields(map[string]interface{}{FieldResource: "book"}).Info("x")
	if got := decodeLine(t, buf)[FieldResource]; got != "book" {
		t.Errorf("expected resource 'book', got %v", got)
	}
}

func TestWithError(t *testing.T) {
	l, buf := newJSONLogger(t, "info")
	l.WithError(errors.New("boom")).Info("x")
	if got := decodeLine(t, buf)[FieldError]; got != "boom" {
		t.Errorf("expected error 'boom', got %v", got)
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	defer SetGlobalLogger(nil)
	if got := GetGlobalLogger(); got != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	SetGlobalLogger(nil)
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp to be enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: "json"}, false},
		{"pretty", Config{Level: "info", Format: "pretty"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("custom-component")
	Register("my-component", l)

	if got := Get("my-component"); got != l {
		t.Error("expected Get to return the registered logger")
	}
	if Get("unregistered-component") == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}

	Register("my-component", nil)
	if got := Get("my-component"); got == l {
		t.Error("expected registration to be removed")
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name string
		kvs  []interface{}
		want int
	}{
		{"pairs", []interface{}{"a", 1, "b", 2}, 2},
		{"odd trailing key ignored", []interface{}{"a", 1, "b"}, 1},
		{"non-string key skipped", []interface{}{1, "x", "b", 2}, 1},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fields(tt.kvs...); len(got) != tt.want {
				t.Errorf("expected %d fields, got %d (%v)", tt.want, len(got), got)
			}
		})
	}
}

func TestRedactHeaders(t *testing.T) {
	got := RedactHeaders(map[string]string{
		"Authorization": "Bearer eyJhbGciOi",
		"x-api-key":     "k-123",
		"Accept":        "application/json",
	})
	want := map[string]string{
		"Authorization": "Bearer ***",
		"x-api-key":     "***",
		"Accept":        "application/json",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, got[k])
		}
	}
	if RedactHeaders(nil) != nil {
		t.Error("expected nil for no headers")
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "library", &buf)
	l.Warn("slow response", Fields(FieldStatus, 200))

	out := buf.String()
	for _, want := range []string{"[LIB][WRN]", "slow response", "status:200"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
