// Package segment splits a raw model response into a reasoning trace and a
// clean, length-bounded final output.
//
// The model is asked to reason through four stages and then emit a
// **FINAL_OUTPUT** marker followed by the structured idea. In practice the
// marker goes missing, appears twice, stage headers leak into the answer and
// lists get cut off, so every stage of the pipeline degrades to a flagged
// result instead of failing:
//
//	raw -> Locate / fallback chain -> Clean -> Stats (thinking) -> Enforce
//
// A Segmenter is immutable once built and safe for concurrent use.
package segment

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse is returned when the raw response is empty or only whitespace.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrEmptyFinalOutput reports that only the absolute fallback matched and
	// the final output is empty. Callers should skip posting.
	ErrEmptyFinalOutput = errors.New("no final output recovered")
)

// Confidence ranks how reliable a segmentation is. Higher is worse.
type Confidence int

const (
	ConfidenceExact Confidence = iota
	ConfidenceHeuristic
	ConfidenceDegraded
)

var confidenceNames = [...]string{"exact", "heuristic", "degraded"}

func (c Confidence) String() string {
	if c < 0 || int(c) >= len(confidenceNames) {
		return fmt.Sprintf("confidence(%d)", int(c))
	}
	return confidenceNames[c]
}

// MarshalText renders the confidence by name in JSON and YAML reports.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Strategy identifies the rule that produced an ExtractionResult.
// The order of the constants is the order of evaluation.
type Strategy int

const (
	StrategyExact Strategy = iota
	StrategyNormalizedMarker
	StrategyLoglineLabel
	StrategyNumberedList
	StrategyLastParagraph
	StrategyFinalStage
	StrategyShortResponse
	StrategyTrailingWindow
	StrategyAbsolute
)

var strategyNames = [...]string{
	"exact",
	"normalized_marker",
	"logline_label",
	"numbered_list",
	"last_paragraph",
	"final_stage",
	"short_response",
	"trailing_window",
	"absolute",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// MarshalText renders the strategy by name in JSON and YAML reports.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Index returns 0 for an exact marker match and 1..8 for fallback strategies.
func (s Strategy) Index() int {
	return int(s)
}

// ExtractionResult is the raw split of a response.
//
// Final is always a contiguous substring of the (newline-normalized) input,
// trimmed of surrounding whitespace. It is never synthesized.
type ExtractionResult struct {
	Thinking   string     `json:"thinking" yaml:"thinking"`
	Final      string     `json:"final" yaml:"final"`
	Strategy   Strategy   `json:"strategy" yaml:"strategy"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`
}

// CleanedResult is an ExtractionResult after stage-label removal.
//
// Unresolved is set when a label survived the cleaning pass or removing it
// would have emptied the final output; ContaminationRemoved and
// RemovedSpanCount are then false and zero.
type CleanedResult struct {
	ExtractionResult `yaml:",inline"`

	ContaminationRemoved bool `json:"contamination_removed" yaml:"contamination_removed"`
	RemovedSpanCount     int  `json:"removed_span_count" yaml:"removed_span_count"`
	Unresolved           bool `json:"unresolved" yaml:"unresolved"`
}

// StageCount summarizes one reasoning stage of the thinking segment.
type StageCount struct {
	Stage     int  `json:"stage" yaml:"stage"`
	Present   bool `json:"present" yaml:"present"`
	Populated bool `json:"populated" yaml:"populated"`
	Elements  int  `json:"elements" yaml:"elements"`
}

// StageStatistics holds one entry per stage, ordered by stage number.
type StageStatistics struct {
	Stages [NumStages]StageCount `json:"stages" yaml:"stages"`
}

func newStageStatistics() StageStatistics {
	var s StageStatistics
	for i := range s.Stages {
		s.Stages[i].Stage = i + 1
	}
	return s
}

// Count returns the number of list elements under a stage, 0 when the stage
// is missing or out of range.
func (s StageStatistics) Count(stage int) int {
	if stage < 1 || stage > NumStages {
		return 0
	}
	return s.Stages[stage-1].Elements
}

// Present reports whether the stage header was found.
func (s StageStatistics) Present(stage int) bool {
	if stage < 1 || stage > NumStages {
		return false
	}
	return s.Stages[stage-1].Present
}

// Populated returns the stage numbers that have a header and some content.
func (s StageStatistics) Populated() []int {
	var out []int
	for _, st := range s.Stages {
		if st.Populated {
			out = append(out, st.Stage)
		}
	}
	return out
}

// Counts returns the element count of every stage in stage order.
func (s StageStatistics) Counts() [NumStages]int {
	var out [NumStages]int
	for i, st := range s.Stages {
		out[i] = st.Elements
	}
	return out
}

// PresentStages returns the stage numbers whose header was found.
func (s StageStatistics) PresentStages() []int {
	var out []int
	for _, st := range s.Stages {
		if st.Present {
			out = append(out, st.Stage)
		}
	}
	return out
}

// Total returns the number of list elements across all stages.
func (s StageStatistics) Total() int {
	total := 0
	for _, st := range s.Stages {
		total += st.Elements
	}
	return total
}

// BoundedOutput is the final text cut to the configured budget.
type BoundedOutput struct {
	Text         string `json:"text" yaml:"text"`
	WasTruncated bool   `json:"was_truncated" yaml:"was_truncated"`
}
