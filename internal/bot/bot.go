// Package bot wires the note source, the model, the segmenter and the poster
// into a generation cycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/notemuse/internal/logger"
	"github.com/jmylchreest/notemuse/pkg/fragment"
	"github.com/jmylchreest/notemuse/pkg/llm"
	"github.com/jmylchreest/notemuse/pkg/poster"
	"github.com/jmylchreest/notemuse/pkg/prompt"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

// ErrGenerate wraps every failure of the generation backend.
var ErrGenerate = errors.New("idea generation failed")

// Options configures a Bot.
type Options struct {
	Source    fragment.Source
	Provider  llm.Provider
	Segmenter *segment.Segmenter
	Poster    poster.Poster // Nil, or DryRun, skips posting

	NotesCount   int           // Notes per cycle (default 5)
	CycleTimeout time.Duration // Bounds one whole cycle (default 5m)
	DryRun       bool
}

// Bot runs generation cycles.
type Bot struct {
	opts    Options
	builder *prompt.Builder
	log     *slog.Logger
}

// CycleResult describes one completed cycle.
type CycleResult struct {
	ID       string          `json:"id" yaml:"id"`
	Titles   []string        `json:"titles" yaml:"titles"`
	Model    string          `json:"model" yaml:"model"`
	Report   *segment.Report `json:"report" yaml:"report"`
	Message  string          `json:"message,omitempty" yaml:"message,omitempty"`
	Posted   bool            `json:"posted" yaml:"posted"`
	Skipped  bool            `json:"skipped" yaml:"skipped"` // Nothing to post
	Duration time.Duration   `json:"duration" yaml:"duration"`
}

// New creates a Bot.
func New(opts Options) (*Bot, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("bot needs a fragment source")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("bot needs a generation provider")
	}
	if opts.Segmenter == nil {
		opts.Segmenter = segment.MustNew(segment.DefaultOptions())
	}
	if opts.NotesCount <= 0 {
		opts.NotesCount = 5
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = 5 * time.Minute
	}
	if opts.Poster == nil {
		opts.DryRun = true
	}

	segOpts := opts.Segmenter.Options()
	return &Bot{
		opts:    opts,
		builder: prompt.NewBuilder(opts.Segmenter.Template(), segOpts.MaxLength),
		log:     logger.Component("bot"),
	}, nil
}

// RunCycle fetches notes, generates an idea, segments the response and posts
// the bounded final output. A response with no usable final output is logged
// and skipped rather than failing the cycle.
func (b *Bot) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()
	res := &CycleResult{ID: uuid.NewString()}
	log := b.log.With("cycle_id", res.ID)

	ctx, cancel := context.WithTimeout(ctx, b.opts.CycleTimeout)
	defer cancel()

	log.Info("cycle started", "notes", b.opts.NotesCount, "provider", b.opts.Provider.Name())

	frags, err := b.opts.Source.Fetch(ctx, b.opts.NotesCount)
	if err != nil {
		return nil, fmt.Errorf("fetch notes: %w", err)
	}
	res.Titles = fragment.Titles(frags)
	log.Debug("notes picked", "titles", res.Titles)

	req, err := b.builder.Build(frags)
	if err != nil {
		return nil, err
	}

	resp, err := b.opts.Provider.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGenerate, b.opts.Provider.Name(), err)
	}
	res.Model = resp.Model

	report, err := b.opts.Segmenter.Process(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	res.Report = report

	attrs := report.LogAttrs()
	switch {
	case report.EmptyFinal():
		log.Warn("no usable final output, skipping post", attrs...)
		log.Debug("thinking", "text", report.Result.Thinking)
		res.Skipped = true
		res.Duration = time.Since(start)
		return res, nil
	case report.Degraded():
		log.Warn("response segmented", attrs...)
	default:
		log.Info("response segmented", attrs...)
	}
	log.Debug("thinking", "text", report.Result.Thinking)

	idea := poster.Idea{
		Text:      report.Output.Text,
		Titles:    res.Titles,
		Truncated: report.Output.WasTruncated,
	}
	res.Message = poster.FormatMessage(idea)

	if !b.opts.DryRun {
		if err := b.opts.Poster.Post(ctx, idea); err != nil {
			return nil, fmt.Errorf("post idea: %w", err)
		}
		res.Posted = true
	}

	res.Duration = time.Since(start)
	log.Info("cycle finished", "posted", res.Posted, "dry_run", b.opts.DryRun, "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}
