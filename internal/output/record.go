package output

import (
	"time"
	"unicode/utf8"

	"github.com/jmylchreest/notemuse/internal/bot"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

// Record kinds.
const (
	KindSegment = "segment"
	KindCycle   = "cycle"
	KindValue   = "value"
)

// Record is one structured output item. Summary repeats the audit fields of
// the report so appended JSONL logs can be filtered without walking the
// payload.
type Record struct {
	Kind    string           `json:"kind" yaml:"kind"`
	ID      string           `json:"id,omitempty" yaml:"id,omitempty"`
	Time    time.Time        `json:"time" yaml:"time"`
	Summary *Summary         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Report  *segment.Report  `json:"report,omitempty" yaml:"report,omitempty"`
	Cycle   *bot.CycleResult `json:"cycle,omitempty" yaml:"cycle,omitempty"`
	Value   any              `json:"value,omitempty" yaml:"value,omitempty"`
}

// Summary is the flat audit view of a segmentation report.
type Summary struct {
	Strategy    string                 `json:"strategy" yaml:"strategy"`
	Confidence  string                 `json:"confidence" yaml:"confidence"`
	Degraded    bool                   `json:"degraded" yaml:"degraded"`
	EmptyFinal  bool                   `json:"empty_final" yaml:"empty_final"`
	Unresolved  bool                   `json:"unresolved" yaml:"unresolved"`
	Truncated   bool                   `json:"truncated" yaml:"truncated"`
	OutputRunes int                    `json:"output_runes" yaml:"output_runes"`
	StageCounts [segment.NumStages]int `json:"stage_counts" yaml:"stage_counts"`
	Posted      bool                   `json:"posted,omitempty" yaml:"posted,omitempty"`
	Skipped     bool                   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// NewRecord wraps a report, a cycle result or any other value.
func NewRecord(data any, at time.Time) Record {
	rec := Record{Time: at.UTC()}
	switch v := data.(type) {
	case *segment.Report:
		rec.Kind = KindSegment
		rec.Report = v
		rec.Summary = summarize(v)
	case *bot.CycleResult:
		rec.Kind = KindCycle
		rec.ID = v.ID
		rec.Cycle = v
		rec.Summary = summarize(v.Report)
		if rec.Summary == nil {
			rec.Summary = &Summary{}
		}
		rec.Summary.Posted = v.Posted
		rec.Summary.Skipped = v.Skipped
	case Record:
		return v
	default:
		rec.Kind = KindValue
		rec.Value = v
	}
	return rec
}

func summarize(r *segment.Report) *Summary {
	if r == nil {
		return nil
	}
	return &Summary{
		Strategy:    r.Result.Strategy.String(),
		Confidence:  r.Result.Confidence.String(),
		Degraded:    r.Degraded(),
		EmptyFinal:  r.EmptyFinal(),
		Unresolved:  r.Result.Unresolved,
		Truncated:   r.Output.WasTruncated,
		OutputRunes: utf8.RuneCountInString(r.Output.Text),
		StageCounts: r.Stats.Counts(),
	}
}
