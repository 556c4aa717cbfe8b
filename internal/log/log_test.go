package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		expected  slog.Level
	}{
		{-1, slog.LevelError},
		{0, slog.LevelError},
		{1, slog.LevelWarn},
		{2, slog.LevelInfo},
		{3, slog.LevelDebug},
		{4, LevelTrace},
		{9, LevelTrace},
	}

	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.expected {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.expected)
		}
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for v := VerbosityError; v <= VerbosityTrace; v++ {
		if got := LevelToVerbosity(VerbosityToLevel(v)); got != v {
			t.Errorf("LevelToVerbosity(VerbosityToLevel(%d)) = %d", v, got)
		}
	}
}

func TestLevelName(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{LevelTrace, "TRACE"},
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelWarn, "WARN"},
		{slog.LevelError, "ERROR"},
	}

	for _, tt := range tests {
		if got := LevelName(tt.level); got != tt.expected {
			t.Errorf("LevelName(%v) = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestInitWriter(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(2, "text", &buf)
	t.Cleanup(func() { InitWriter(1, "text", &bytes.Buffer{}) })

	if Verbosity() != 2 {
		t.Errorf("Verbosity() = %d, want 2", Verbosity())
	}

	Info("manifest written", "path", "public/build/.vite/entrypoints.json")
	Debug("hidden")
	out := buf.String()
	if !strings.Contains(out, "manifest written") {
		t.Errorf("info record missing: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered at -v=2: %s", out)
	}
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(VerbosityTrace, "text", &buf)
	t.Cleanup(func() { InitWriter(1, "text", &bytes.Buffer{}) })

	Trace("walk", "root", "welcome-1e67239d.js")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("expected TRACE level, got: %s", buf.String())
	}
}

func TestSetVerbosity(t *testing.T) {
	InitWriter(1, "text", &bytes.Buffer{})

	SetVerbosity(3)
	if Verbosity() != 3 {
		t.Errorf("Verbosity() = %d, want 3", Verbosity())
	}
	SetVerbosity(0)
	if Verbosity() != 0 {
		t.Errorf("Verbosity() = %d, want 0", Verbosity())
	}
}

func TestV(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(2, "text", &buf)
	t.Cleanup(func() { InitWriter(1, "text", &bytes.Buffer{}) })

	V(2).Info("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("V(2) should log when verbosity is 2, got: %s", buf.String())
	}

	buf.Reset()
	V(3).Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("V(3) should not log when verbosity is 2, got: %s", buf.String())
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(2, "text", &buf)
	t.Cleanup(func() { InitWriter(1, "text", &bytes.Buffer{}) })

	Component("session").Info("pass completed")
	if !strings.Contains(buf.String(), "component=session") {
		t.Errorf("Component should add component context, got: %s", buf.String())
	}

	buf.Reset()
	With("entry", "app").Warn("no legacy variant")
	if !strings.Contains(buf.String(), "entry=app") {
		t.Errorf("With should add context, got: %s", buf.String())
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, FormatJSON, LevelTrace))
	l.Info("test", "key", "value")
	l.Log(context.Background(), LevelTrace, "deep")

	out := buf.String()
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("JSON handler should output JSON, got: %s", out)
	}
	if !strings.Contains(out, `"level":"TRACE"`) {
		t.Errorf("trace records should be labelled TRACE, got: %s", out)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json": FormatJSON,
		"JSON": FormatJSON,
		"text": FormatText,
		"":     FormatText,
		"yaml": FormatText,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard logger should not be enabled")
	}
}
