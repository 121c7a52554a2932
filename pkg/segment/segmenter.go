package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Options configures a Segmenter. All lengths are in runes.
type Options struct {
	// MaxLength is the cap on the bounded final output.
	MaxLength int `json:"max_length" yaml:"max_length" validate:"gt=0"`

	// ShortThreshold: responses shorter than this are taken whole when
	// nothing else matched.
	ShortThreshold int `json:"short_threshold" yaml:"short_threshold" validate:"gt=0,ltefield=LongThreshold"`

	// LongThreshold: responses at least this long fall back to their tail.
	LongThreshold int `json:"long_threshold" yaml:"long_threshold" validate:"gt=0"`

	// TrailingChars is the size of that tail.
	TrailingChars int `json:"trailing_chars" yaml:"trailing_chars" validate:"gt=0,ltefield=LongThreshold"`

	// Template defines the marker, stage headers and field labels.
	// Nil uses DefaultTemplate.
	Template *Template `json:"-" yaml:"-" validate:"-"`
}

// DefaultOptions returns the options the bot runs with.
func DefaultOptions() Options {
	return Options{
		MaxLength:      500,
		ShortThreshold: 400,
		LongThreshold:  1200,
		TrailingChars:  600,
	}
}

// Segmenter runs the segmentation pipeline. It holds only compiled,
// read-only state.
type Segmenter struct {
	opts     Options
	template *Template
	patterns *patterns
}

// New validates opts and compiles the template patterns.
func New(opts Options) (*Segmenter, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid segment options: %w", err)
	}

	tmpl := opts.Template
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	p, err := compile(tmpl)
	if err != nil {
		return nil, err
	}

	return &Segmenter{opts: opts, template: tmpl, patterns: p}, nil
}

// MustNew is like New but panics on invalid options.
func MustNew(opts Options) *Segmenter {
	s, err := New(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// Options returns the options the Segmenter was built with.
func (s *Segmenter) Options() Options {
	return s.opts
}

// Template returns the template the Segmenter matches against.
func (s *Segmenter) Template() *Template {
	return s.template
}

// Enforce bounds text to the configured MaxLength.
func (s *Segmenter) Enforce(text string) BoundedOutput {
	return Enforce(text, s.opts.MaxLength)
}

// State is a step of the pipeline state machine.
type State string

const (
	StateStart      State = "START"
	StateLocating   State = "LOCATING"
	StateExact      State = "EXACT"
	StateCleaning   State = "CLEANING"
	StateClean      State = "CLEAN"
	StateUnresolved State = "UNRESOLVED"
	StateBounding   State = "BOUNDING"
	StateDone       State = "DONE"
)

// FallbackState returns FALLBACK_n for the n-th fallback strategy.
func FallbackState(n int) State {
	return State(fmt.Sprintf("FALLBACK_%d", n))
}

// Report is everything one pipeline run produced.
type Report struct {
	Result      CleanedResult   `json:"result" yaml:"result"`
	Stats       StageStatistics `json:"stats" yaml:"stats"`
	Output      BoundedOutput   `json:"output" yaml:"output"`
	Trace       []State         `json:"trace" yaml:"trace"`
	InputLength int             `json:"input_length" yaml:"input_length"`
}

// Process runs the whole pipeline over a raw model response. The only error
// is ErrEmptyResponse; malformed input degrades the report instead.
func (s *Segmenter) Process(raw string) (*Report, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}
	text := normalizeNewlines(raw)

	r := &Report{
		Trace:       []State{StateStart, StateLocating},
		InputLength: utf8.RuneCountInString(text),
	}

	extracted := s.Extract(text)
	if extracted.Strategy == StrategyExact {
		r.Trace = append(r.Trace, StateExact)
	} else {
		r.Trace = append(r.Trace, FallbackState(extracted.Strategy.Index()))
	}

	r.Trace = append(r.Trace, StateCleaning)
	r.Result = s.Clean(extracted)
	if r.Result.Unresolved {
		r.Trace = append(r.Trace, StateUnresolved)
	} else {
		r.Trace = append(r.Trace, StateClean)
	}

	r.Stats = s.Stats(r.Result.Thinking)

	r.Trace = append(r.Trace, StateBounding)
	r.Output = s.Enforce(r.Result.Final)
	r.Trace = append(r.Trace, StateDone)

	return r, nil
}

// EmptyFinal reports that only the absolute fallback matched.
func (r *Report) EmptyFinal() bool {
	return r.Result.Final == ""
}

// Degraded reports whether anything about the run deserves a warning:
// a non-exact split, unresolved contamination or truncation.
func (r *Report) Degraded() bool {
	return r.Result.Confidence != ConfidenceExact || r.Result.Unresolved || r.Output.WasTruncated
}

// Err returns ErrEmptyFinalOutput when there is nothing to post, nil otherwise.
func (r *Report) Err() error {
	if r.EmptyFinal() {
		return ErrEmptyFinalOutput
	}
	return nil
}

// LogAttrs renders the audit record as slog key/value pairs.
func (r *Report) LogAttrs() []any {
	return []any{
		"strategy", r.Result.Strategy.String(),
		"confidence", r.Result.Confidence.String(),
		"contamination_removed", r.Result.ContaminationRemoved,
		"removed_spans", r.Result.RemovedSpanCount,
		"unresolved", r.Result.Unresolved,
		"truncated", r.Output.WasTruncated,
		"present_stages", r.Stats.PresentStages(),
		"populated_stages", r.Stats.Populated(),
		"stage_counts", r.Stats.Counts(),
		"stage_elements", r.Stats.Total(),
		"input_runes", r.InputLength,
		"output_runes", utf8.RuneCountInString(r.Output.Text),
		"thinking_runes", utf8.RuneCountInString(r.Result.Thinking),
	}
}
