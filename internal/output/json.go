package output

import (
	"bufio"
	"io"
	"time"

	"github.com/goccy/go-json"
)

// JSONWriter collects records and writes them on Flush: one record as an
// object, several as an array.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	now     func() time.Time
	records []Record
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{w: bufio.NewWriter(w), pretty: pretty, indent: indent, now: time.Now}
}

// Write stamps data and buffers it.
func (w *JSONWriter) Write(data any) error {
	w.records = append(w.records, NewRecord(data, w.now()))
	return nil
}

// Flush writes and drops the buffered records.
func (w *JSONWriter) Flush() error {
	if len(w.records) == 0 {
		return w.w.Flush()
	}

	var v any = w.records
	if len(w.records) == 1 {
		v = w.records[0]
	}
	if err := w.encode(v); err != nil {
		return err
	}
	w.records = w.records[:0]
	return w.w.Flush()
}

func (w *JSONWriter) encode(v any) error {
	enc := json.NewEncoder(w.w)
	if w.pretty {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(v)
}

// Close flushes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter appends one compact record per line and flushes each one, so
// `notemuse once --format jsonl >> cycles.jsonl` keeps a usable history.
type JSONLWriter struct {
	w   *bufio.Writer
	now func() time.Time
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w), now: time.Now}
}

// Write writes data as a single line.
func (w *JSONLWriter) Write(data any) error {
	// Encode terminates the line.
	if err := json.NewEncoder(w.w).Encode(NewRecord(data, w.now())); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
