package output

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/notemuse/internal/bot"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

const response = `STEP1: Fragment Analysis
- a whale
- a lighthouse
**FINAL_OUTPUT**
Logline: A keeper lights a whale home.
STEP4: Refinement
Characters:
1. Mara`

func testReport(t *testing.T) *segment.Report {
	t.Helper()
	r, err := segment.MustNew(segment.DefaultOptions()).Process(response)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	return r
}

// --- NewWriter Factory Tests ---

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatText, "*output.TextWriter"},
		{"", "*output.TextWriter"},
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			w, err := NewWriter(&bytes.Buffer{}, tt.format)
			if err != nil {
				t.Fatalf("NewWriter() error = %v", err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("NewWriter(%q) = %s, want %s", tt.format, got, tt.want)
			}
		})
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *TextWriter:
		return "*output.TextWriter"
	case *JSONWriter:
		return "*output.JSONWriter"
	case *JSONLWriter:
		return "*output.JSONLWriter"
	case *YAMLWriter:
		return "*output.YAMLWriter"
	}
	return "unknown"
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("xml"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected error containing 'unsupported', got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{" JSON ", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"jsonl", FormatJSONL, false},
		{"toml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- Record Tests ---

var stamp = time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return stamp }

func TestNewRecord(t *testing.T) {
	r := testReport(t)

	t.Run("report", func(t *testing.T) {
		rec := NewRecord(r, stamp)
		if rec.Kind != KindSegment || rec.Report != r || rec.Cycle != nil {
			t.Fatalf("record = %+v, want a segment record", rec)
		}
		if rec.Summary == nil {
			t.Fatal("missing summary")
		}
		if rec.Summary.Strategy != "exact" || rec.Summary.Degraded || rec.Summary.EmptyFinal {
			t.Errorf("summary = %+v", rec.Summary)
		}
		if rec.Summary.StageCounts != [segment.NumStages]int{2, 0, 0, 0} {
			t.Errorf("stage_counts = %v, want [2 0 0 0]", rec.Summary.StageCounts)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		rec := NewRecord(&bot.CycleResult{ID: "c1", Report: r, Posted: true}, stamp)
		if rec.Kind != KindCycle || rec.ID != "c1" {
			t.Fatalf("record = %+v, want cycle c1", rec)
		}
		if !rec.Summary.Posted || rec.Summary.Strategy != "exact" {
			t.Errorf("summary = %+v", rec.Summary)
		}
	})

	t.Run("skipped cycle without report", func(t *testing.T) {
		rec := NewRecord(&bot.CycleResult{ID: "c2", Skipped: true}, stamp)
		if rec.Summary == nil || !rec.Summary.Skipped || rec.Summary.Strategy != "" {
			t.Errorf("summary = %+v", rec.Summary)
		}
	})

	t.Run("other values", func(t *testing.T) {
		rec := NewRecord("hello", stamp.In(time.FixedZone("X", 3600)))
		if rec.Kind != KindValue || rec.Value != "hello" || rec.Summary != nil {
			t.Errorf("record = %+v", rec)
		}
		if !rec.Time.Equal(stamp) || rec.Time.Location() != time.UTC {
			t.Errorf("time = %v, want %v in UTC", rec.Time, stamp)
		}
	})
}

// --- JSONWriter Tests ---

func TestJSONWriter_Report(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatJSON, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	if err := w.Write(testReport(t)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got struct {
		Kind    string    `json:"kind"`
		Time    time.Time `json:"time"`
		Summary struct {
			Strategy    string `json:"strategy"`
			Degraded    bool   `json:"degraded"`
			StageCounts []int  `json:"stage_counts"`
		} `json:"summary"`
		Report struct {
			Result struct {
				Confidence string `json:"confidence"`
				Removed    bool   `json:"contamination_removed"`
			} `json:"result"`
			Output struct {
				Text string `json:"text"`
			} `json:"output"`
			Trace []string `json:"trace"`
		} `json:"report"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v\n%s", err, buf.String())
	}

	if got.Kind != "segment" {
		t.Errorf("kind = %q, want segment", got.Kind)
	}
	if !got.Time.Equal(stamp) {
		t.Errorf("time = %v, want %v", got.Time, stamp)
	}
	if got.Summary.Strategy != "exact" || got.Summary.Degraded {
		t.Errorf("summary = %+v, want exact and not degraded", got.Summary)
	}
	if len(got.Summary.StageCounts) != segment.NumStages || got.Summary.StageCounts[0] != 2 {
		t.Errorf("stage_counts = %v, want 2 elements in stage 1", got.Summary.StageCounts)
	}
	if got.Report.Result.Confidence != "exact" || !got.Report.Result.Removed {
		t.Errorf("result = %+v", got.Report.Result)
	}
	if strings.Contains(got.Report.Output.Text, "STEP4") {
		t.Errorf("output still contains a stage label: %q", got.Report.Output.Text)
	}
	if len(got.Report.Trace) == 0 || got.Report.Trace[len(got.Report.Trace)-1] != "DONE" {
		t.Errorf("trace = %v, want it to end in DONE", got.Report.Trace)
	}
}

func TestJSONWriter_MultipleItemsOutputsArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")

	_ = w.Write(testReport(t))
	_ = w.Write(&bot.CycleResult{ID: "c1"})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0]["kind"] != "segment" || got[1]["kind"] != "cycle" || got[1]["id"] != "c1" {
		t.Errorf("kinds = %v/%v id = %v", got[0]["kind"], got[1]["kind"], got[1]["id"])
	}
	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != 1 {
		t.Errorf("expected single line in compact output, got %d lines", len(lines))
	}

	buf.Reset()
	if err := w.Flush(); err != nil || buf.Len() != 0 {
		t.Errorf("second Flush() = %v, wrote %q", err, buf.String())
	}
}

func TestJSONWriter_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewJSONWriter(buf, true, "  ").Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter_OneRecordPerLine(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatJSONL, WithClock(fixedClock))

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		if err := w.Write(&bot.CycleResult{ID: id, Titles: []string{"whale"}, Posted: true}); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		// Each record is on the wire before the next one is written.
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Fatalf("record %s not flushed: %q", id, buf.String())
		}
	}
	_ = w.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(ids) {
		t.Fatalf("expected %d lines, got %d", len(ids), len(lines))
	}
	for i, line := range lines {
		var got Record
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
		if got.Kind != KindCycle || got.ID != ids[i] || got.Cycle == nil || got.Cycle.Titles[0] != "whale" {
			t.Errorf("line %d = %+v", i, got)
		}
		if got.Summary == nil || !got.Summary.Posted {
			t.Errorf("line %d summary = %+v, want posted", i, got.Summary)
		}
		if !got.Time.Equal(stamp) {
			t.Errorf("line %d time = %v, want %v", i, got.Time, stamp)
		}
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter_DocumentPerRecord(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatYAML, WithClock(fixedClock))

	if err := w.Write(testReport(t)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Write(&bot.CycleResult{ID: "c1", Skipped: true}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(buf.Bytes()))
	var docs []map[string]any
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("decode: %v\n%s", err, buf.String())
		}
		docs = append(docs, doc)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d:\n%s", len(docs), buf.String())
	}

	if docs[0]["kind"] != "segment" {
		t.Errorf("kind = %v, want segment", docs[0]["kind"])
	}
	report, ok := docs[0]["report"].(map[string]any)
	if !ok {
		t.Fatalf("missing report in %s", buf.String())
	}
	result, ok := report["result"].(map[string]any)
	if !ok {
		t.Fatalf("missing result in %s", buf.String())
	}
	// ExtractionResult is inlined into the cleaned result.
	if result["strategy"] != "exact" {
		t.Errorf("strategy = %v, want exact", result["strategy"])
	}
	if _, ok := result["removed_span_count"]; !ok {
		t.Error("expected removed_span_count")
	}

	summary, _ := docs[1]["summary"].(map[string]any)
	if docs[1]["id"] != "c1" || summary["skipped"] != true {
		t.Errorf("second document = %v", docs[1])
	}
}

func TestYAMLWriter_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewYAMLWriter(buf).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

// --- TextWriter Tests ---

func TestTextWriter_Report(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf, false)

	if err := w.Write(testReport(t)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"segmentation",
		"[strategy]  exact",
		"removed 1 span(s)",
		"[STEP1]  populated, 2 element(s)",
		"START → LOCATING → EXACT",
		"--- final ---\nLogline: A keeper lights a whale home.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "--- thinking ---") {
		t.Error("thinking printed without WithThinking")
	}
}

func TestTextWriter_Thinking(t *testing.T) {
	buf := &bytes.Buffer{}
	w, _ := NewWriter(buf, FormatText, WithThinking(true))

	_ = w.Write(testReport(t))
	if !strings.Contains(buf.String(), "--- thinking ---\nSTEP1: Fragment Analysis") {
		t.Errorf("expected thinking section:\n%s", buf.String())
	}
}

func TestTextWriter_Cycle(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf, false)

	c := &bot.CycleResult{
		ID:       "0b1d",
		Titles:   []string{"whale", "lighthouse"},
		Model:    "gemini-2.0-flash",
		Report:   testReport(t),
		Message:  "💡 **New idea**\n\nLogline: A keeper lights a whale home.",
		Duration: 1500 * time.Millisecond,
	}
	if err := w.Write(c); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"cycle 0b1d", "gemini-2.0-flash", "notes (2)", "lighthouse", "--- message ---", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextWriter_EmptyFinal(t *testing.T) {
	r, err := segment.MustNew(segment.DefaultOptions()).Process("STEP1: Fragment Analysis\n" + strings.Repeat("thinking ", 60))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	buf := &bytes.Buffer{}
	_ = NewTextWriter(buf, false).Write(r)
	if !strings.Contains(buf.String(), "--- final ---\n(none)") {
		t.Errorf("expected empty final marker:\n%s", buf.String())
	}
}
