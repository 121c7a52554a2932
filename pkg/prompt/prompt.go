// Package prompt renders the generation prompt from note fragments and the
// output template the segmenter parses.
package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/jmylchreest/notemuse/pkg/fragment"
	"github.com/jmylchreest/notemuse/pkg/llm"
	"github.com/jmylchreest/notemuse/pkg/segment"
)

// ErrNoFragments is returned when Build is called without fragments.
var ErrNoFragments = errors.New("prompt needs at least one fragment")

const systemText = `You are a story editor who turns scraps of notes into fresh story ideas.
You think out loud first, in clearly labeled steps, and only then write the idea.`

const userText = `Here are {{len .Fragments}} note fragments:
{{range $i, $f := .Fragments}}
--- Note {{inc $i}}: {{$f.Title}} ---
{{if $f.Tags}}Tags: {{join $f.Tags ", "}}
{{end}}{{$f.Content}}
{{end}}
Work through the following steps. Start each one with its label on its own line.
{{range $i, $s := .Template.Stages}}
{{$.Template.StageLabel (inc $i)}}: {{$s.Title}}
{{$s.Instruction}}
{{end}}
When you are done, write {{.Template.Marker}} on its own line. After it write only the idea, in this exact shape and without any step labels:

{{.Template.Logline.Label}}: {{.Template.Logline.Instruction}}
{{.Template.World.Label}}: {{.Template.World.Instruction}}
{{.Template.Characters.Label}}:
1. {{.Template.Characters.Instruction}}

Keep everything after {{.Template.Marker}} under {{.MaxLength}} characters.`

var (
	funcs = template.FuncMap{
		"inc":  func(i int) int { return i + 1 },
		"join": strings.Join,
	}
	userTpl = template.Must(template.New("user").Funcs(funcs).Parse(userText))
)

// Builder turns fragments into a model request.
type Builder struct {
	tmpl      *segment.Template
	maxLength int

	// MaxFragmentRunes truncates each fragment's content. Zero keeps it whole.
	MaxFragmentRunes int
}

// NewBuilder creates a Builder for the given template and output budget.
// A nil template uses segment.DefaultTemplate.
func NewBuilder(tmpl *segment.Template, maxLength int) *Builder {
	if tmpl == nil {
		tmpl = segment.DefaultTemplate()
	}
	return &Builder{tmpl: tmpl, maxLength: maxLength, MaxFragmentRunes: 4000}
}

// Build renders the system and user messages for frags.
func (b *Builder) Build(frags []fragment.Fragment) (llm.Request, error) {
	if len(frags) == 0 {
		return llm.Request{}, ErrNoFragments
	}

	trimmed := make([]fragment.Fragment, len(frags))
	for i, f := range frags {
		f.Content = truncateRunes(strings.TrimSpace(f.Content), b.MaxFragmentRunes)
		trimmed[i] = f
	}

	var buf bytes.Buffer
	err := userTpl.Execute(&buf, struct {
		Fragments []fragment.Fragment
		Template  *segment.Template
		MaxLength int
	}{trimmed, b.tmpl, b.maxLength})
	if err != nil {
		return llm.Request{}, fmt.Errorf("render prompt: %w", err)
	}

	return llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemText},
			{Role: llm.RoleUser, Content: buf.String()},
		},
		Temperature: 0.9,
		MaxTokens:   4096,
	}, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
