package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetLogger() {
	Init(Options{})
}

// --- Init ---

func TestInit_DefaultLevelIsInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("scrape started")
	if !strings.Contains(buf.String(), "scrape started") {
		t.Error("Info message should be logged at default level")
	}

	buf.Reset()
	Debug("candidate tried")
	if strings.Contains(buf.String(), "candidate tried") {
		t.Error("Debug message should not be logged at default level")
	}
}

func TestInit_Debug(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	Debug("selector matched", "field", "name")
	if !strings.Contains(buf.String(), "selector matched") {
		t.Error("Debug message should be logged when Debug=true")
	}
}

func TestInit_QuietOverridesDebugAndLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Quiet: true, Level: "debug", Output: buf})
	defer resetLogger()

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	for _, hidden := range []string{"debug message", "info message", "warn message"} {
		if strings.Contains(out, hidden) {
			t.Errorf("%q should not be logged when Quiet=true", hidden)
		}
	}
	if !strings.Contains(out, "error message") {
		t.Error("Error should be logged when Quiet=true")
	}
}

func TestInit_LevelName(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Level: "warn", Output: buf})
	defer resetLogger()

	Info("info message")
	Warn("warn message")

	if strings.Contains(buf.String(), "info message") {
		t.Error("Info should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("Warn should be logged at warn level")
	}
}

func TestInit_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("answer produced", "tokens", 42)

	out := buf.String()
	if !strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected JSON output, got %q", out)
	}
	if !strings.Contains(out, `"tokens":42`) {
		t.Errorf("expected structured attribute in output, got %q", out)
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	custom := slog.New(slog.NewTextHandler(buf, nil))
	Init(Options{Logger: custom, Quiet: true})
	defer resetLogger()

	if Logger() != custom {
		t.Fatal("Logger() should return the custom logger")
	}
	Info("through custom")
	if !strings.Contains(buf.String(), "through custom") {
		t.Error("custom logger should receive messages and ignore Quiet")
	}
}

// --- ParseLevel ---

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// --- With / Context ---

func TestWith_CarriesAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	With("field", "specs").Info("extraction failed")

	out := buf.String()
	if !strings.Contains(out, "extraction failed") || !strings.Contains(out, "field=specs") {
		t.Errorf("expected message and attribute, got %q", out)
	}
}

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	ctx := context.Background()
	DebugContext(ctx, "debug ctx")
	InfoContext(ctx, "info ctx")
	WarnContext(ctx, "warn ctx")
	ErrorContext(ctx, "error ctx")

	for _, msg := range []string{"debug ctx", "info ctx", "warn ctx", "error ctx"} {
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("expected %q in output", msg)
		}
	}
}
