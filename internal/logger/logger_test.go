package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// resetLogger restores the default logger for test isolation
func resetLogger() {
	Init(Options{})
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		logged  []string
		dropped []string
	}{
		{
			name:    "default is info",
			logged:  []string{"info msg", "warn msg", "error msg"},
			dropped: []string{"debug msg"},
		},
		{
			name:   "debug",
			opts:   Options{Debug: true},
			logged: []string{"debug msg", "info msg", "warn msg", "error msg"},
		},
		{
			name:    "quiet",
			opts:    Options{Quiet: true},
			logged:  []string{"error msg"},
			dropped: []string{"debug msg", "info msg", "warn msg"},
		},
		{
			name:    "quiet overrides debug",
			opts:    Options{Debug: true, Quiet: true},
			logged:  []string{"error msg"},
			dropped: []string{"debug msg", "info msg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			opts := tt.opts
			opts.Output = buf
			Init(opts)
			defer resetLogger()

			Debug("debug msg")
			Info("info msg")
			Warn("warn msg")
			Error("error msg")

			out := buf.String()
			for _, msg := range tt.logged {
				if !strings.Contains(out, msg) {
					t.Errorf("expected %q in output", msg)
				}
			}
			for _, msg := range tt.dropped {
				if strings.Contains(out, msg) {
					t.Errorf("did not expect %q in output", msg)
				}
			}
		})
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("cycle posted", "cycle_id", "abc", "chars", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "cycle posted" {
		t.Errorf("msg = %v, want %q", rec["msg"], "cycle posted")
	}
	if rec["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", rec["level"])
	}
	if rec["cycle_id"] != "abc" || rec["chars"] != float64(42) {
		t.Errorf("attributes missing: %v", rec)
	}
}

func TestInit_TextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("text message", "count", 3)

	out := buf.String()
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "count=3") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	custom := slog.New(slog.NewTextHandler(buf, nil))

	Init(Options{Logger: custom, Quiet: true})
	defer resetLogger()

	if Logger() != custom {
		t.Fatal("Logger() did not return the custom logger")
	}
	Info("still logged")
	if !strings.Contains(buf.String(), "still logged") {
		t.Error("custom logger should ignore Quiet")
	}
}

func TestSetLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, nil)))
	defer resetLogger()

	Warn("set logger")
	if !strings.Contains(buf.String(), "set logger") {
		t.Error("expected message through SetLogger logger")
	}
}

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Component("poster").Info("sent")

	out := buf.String()
	if !strings.Contains(out, "component=poster") {
		t.Errorf("expected component attribute in %q", out)
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	With("key", "value").Info("with attrs")

	out := buf.String()
	if !strings.Contains(out, "with attrs") || !strings.Contains(out, "key=value") {
		t.Errorf("expected attributes in %q", out)
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

	out := buf.String()
	for _, msg := range []string{"debug ctx", "info ctx", "warn ctx", "error ctx"} {
		if !strings.Contains(out, msg) {
			t.Errorf("expected %q in output", msg)
		}
	}
}
