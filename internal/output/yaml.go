package output

import (
	"bufio"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLWriter streams each record as its own YAML document, separated by
// "---", so reports can be read back one at a time with a yaml.Decoder.
type YAMLWriter struct {
	w   *bufio.Writer
	enc *yaml.Encoder
	now func() time.Time
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w), now: time.Now}
}

// Write encodes data as the next document.
func (w *YAMLWriter) Write(data any) error {
	if w.enc == nil {
		w.enc = yaml.NewEncoder(w.w)
		w.enc.SetIndent(2)
	}
	if err := w.enc.Encode(NewRecord(data, w.now())); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *YAMLWriter) Flush() error {
	return w.w.Flush()
}

// Close ends the document stream. Nothing is written when no record was.
func (w *YAMLWriter) Close() error {
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			return err
		}
		w.enc = nil
	}
	return w.w.Flush()
}
