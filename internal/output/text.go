package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xlab/treeprint"

	"github.com/jmylchreest/notemuse/internal/bot"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

// TextWriter renders reports as a tree followed by the final output.
type TextWriter struct {
	w        *bufio.Writer
	thinking bool
}

// NewTextWriter creates a text writer. With thinking set the thinking
// segment is printed after the tree.
func NewTextWriter(w io.Writer, thinking bool) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), thinking: thinking}
}

// Write renders a *segment.Report or *bot.CycleResult. Other values are
// printed with %v.
func (w *TextWriter) Write(data any) error {
	var out string
	switch v := data.(type) {
	case *segment.Report:
		out = w.report(v)
	case *bot.CycleResult:
		out = w.cycle(v)
	default:
		out = fmt.Sprintf("%v\n", v)
	}
	if _, err := w.w.WriteString(out); err != nil {
		return err
	}
	return w.w.Flush()
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}

func (w *TextWriter) report(r *segment.Report) string {
	tree := treeprint.New()
	tree.SetValue("segmentation")
	addReport(tree, r)
	return tree.String() + w.texts(r)
}

func (w *TextWriter) cycle(c *bot.CycleResult) string {
	tree := treeprint.New()
	tree.SetValue("cycle " + c.ID)
	tree.AddMetaNode("model", c.Model)
	tree.AddMetaNode("posted", c.Posted)
	if c.Skipped {
		tree.AddMetaNode("skipped", "no usable final output")
	}
	tree.AddMetaNode("duration", c.Duration.Round(time.Millisecond))

	notes := tree.AddBranch(fmt.Sprintf("notes (%d)", len(c.Titles)))
	for _, t := range c.Titles {
		notes.AddNode(t)
	}

	if c.Report == nil {
		return tree.String()
	}
	addReport(tree.AddBranch("segmentation"), c.Report)

	out := tree.String()
	if c.Message != "" {
		out += "\n" + section("message") + c.Message + "\n"
	}
	if w.thinking {
		out += thinkingSection(c.Report)
	}
	return out
}

func addReport(tree treeprint.Tree, r *segment.Report) {
	res := r.Result
	tree.AddMetaNode("strategy", res.Strategy)
	tree.AddMetaNode("confidence", res.Confidence)
	tree.AddMetaNode("input", fmt.Sprintf("%d chars", r.InputLength))

	clean := tree.AddBranch("cleaning")
	switch {
	case res.Unresolved:
		clean.AddNode("unresolved: stage labels remain")
	case res.ContaminationRemoved:
		clean.AddNode(fmt.Sprintf("removed %d span(s)", res.RemovedSpanCount))
	default:
		clean.AddNode("clean")
	}

	stages := tree.AddBranch("stages")
	for _, sc := range r.Stats.Stages {
		state := "missing"
		if sc.Present {
			state = "present"
			if sc.Populated {
				state = "populated"
			}
		}
		stages.AddMetaNode(fmt.Sprintf("STEP%d", sc.Stage), fmt.Sprintf("%s, %d element(s)", state, sc.Elements))
	}

	out := tree.AddBranch("output")
	out.AddMetaNode("length", fmt.Sprintf("%d chars", utf8.RuneCountInString(r.Output.Text)))
	out.AddMetaNode("truncated", r.Output.WasTruncated)

	tree.AddMetaNode("trace", joinTrace(r.Trace))
}

func (w *TextWriter) texts(r *segment.Report) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(section("final"))
	if r.EmptyFinal() {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(r.Output.Text)
		b.WriteString("\n")
	}
	if w.thinking {
		b.WriteString(thinkingSection(r))
	}
	return b.String()
}

func thinkingSection(r *segment.Report) string {
	if r.Result.Thinking == "" {
		return ""
	}
	return "\n" + section("thinking") + r.Result.Thinking + "\n"
}

func section(name string) string {
	return "--- " + name + " ---\n"
}

func joinTrace(trace []segment.State) string {
	parts := make([]string, len(trace))
	for i, s := range trace {
		parts[i] = string(s)
	}
	return strings.Join(parts, " → ")
}
