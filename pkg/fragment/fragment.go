// Package fragment retrieves note fragments for a generation cycle.
package fragment

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrFetch wraps every failure talking to the note source.
	ErrFetch = errors.New("fragment fetch failed")

	// ErrNoFragments is returned when the source has no usable notes.
	ErrNoFragments = errors.New("no usable notes found")
)

// Fragment is one note picked for a cycle.
type Fragment struct {
	Path    string   `json:"path" yaml:"path"`
	Title   string   `json:"title" yaml:"title"`
	Content string   `json:"content" yaml:"content"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Size    int64    `json:"size" yaml:"size"`
}

// Source returns up to n randomly chosen fragments.
type Source interface {
	Fetch(ctx context.Context, n int) ([]Fragment, error)
}

// IsMarkdown reports whether name has a .md or .markdown extension.
func IsMarkdown(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// Title derives a note title from its file name.
func Title(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Titles returns the titles of frags in order.
func Titles(frags []Fragment) []string {
	titles := make([]string, len(frags))
	for i, f := range frags {
		titles[i] = f.Title
	}
	return titles
}
