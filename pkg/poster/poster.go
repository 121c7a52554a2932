// Package poster publishes finished ideas to a chat channel.
package poster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxMessageLength is Discord's hard limit for a message body, in characters.
const MaxMessageLength = 2000

var (
	// ErrPost wraps every failure delivering a message.
	ErrPost = errors.New("post failed")

	// ErrNoChannel is returned when no destination channel is configured.
	ErrNoChannel = errors.New("no channel configured")
)

// Idea is what gets published for one cycle.
type Idea struct {
	Text      string
	Titles    []string // Titles of the notes the idea was built from
	Truncated bool     // Text was cut to the length budget
}

// Poster publishes ideas.
type Poster interface {
	Post(ctx context.Context, idea Idea) error
}

const (
	header          = "💡 **New idea**"
	truncatedNotice = "_(trimmed to fit)_"
	sourcesPrefix   = "📚 From: "
	ellipsis        = "…"
)

// FormatMessage renders an idea as a message no longer than MaxMessageLength
// characters. The idea text is shortened before the header or sources are.
func FormatMessage(idea Idea) string {
	text := strings.TrimSpace(idea.Text)

	var footer []string
	if idea.Truncated {
		footer = append(footer, truncatedNotice)
	}
	if len(idea.Titles) > 0 {
		footer = append(footer, sourcesPrefix+strings.Join(idea.Titles, ", "))
	}

	tail := ""
	if len(footer) > 0 {
		tail = "\n\n" + strings.Join(footer, "\n")
	}
	head := header + "\n\n"

	budget := MaxMessageLength - utf8.RuneCountInString(head) - utf8.RuneCountInString(tail)
	if budget < 200 {
		// Absurdly long title lists lose to the idea itself.
		tail = ""
		budget = MaxMessageLength - utf8.RuneCountInString(head)
	}
	if utf8.RuneCountInString(text) > budget {
		text = string([]rune(text)[:budget-1]) + ellipsis
	}
	return head + text + tail
}

// Func adapts a function to the Poster interface.
type Func func(ctx context.Context, idea Idea) error

// Post calls f.
func (f Func) Post(ctx context.Context, idea Idea) error {
	return f(ctx, idea)
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPost, op, err)
}
