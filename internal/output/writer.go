// Package output renders segmentation reports and cycle results for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Format represents output format types.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats in flag-help order.
var Formats = []Format{FormatText, FormatJSON, FormatJSONL, FormatYAML}

// ParseFormat resolves a --format flag value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// Writer serializes reports.
type Writer interface {
	// Write outputs or buffers a single item.
	Write(data any) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty   bool
	indent   string
	thinking bool
	now      func() time.Time
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithThinking includes the thinking segment in text output.
func WithThinking(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.thinking = enabled
	}
}

// WithClock sets the time source used to stamp structured records.
func WithClock(now func() time.Time) WriterOption {
	return func(c *writerConfig) {
		c.now = now
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatText, "":
		return NewTextWriter(w, cfg.thinking), nil
	case FormatJSON:
		jw := NewJSONWriter(w, cfg.pretty, cfg.indent)
		jw.now = cfg.now
		return jw, nil
	case FormatJSONL:
		lw := NewJSONLWriter(w)
		lw.now = cfg.now
		return lw, nil
	case FormatYAML:
		yw := NewYAMLWriter(w)
		yw.now = cfg.now
		return yw, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
