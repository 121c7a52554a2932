package segment

import (
	"fmt"
	"regexp"
	"strings"
)

// NumStages is the number of reasoning stages the prompt asks for.
const NumStages = 4

// DefaultMarkerName is the literal wrapped in ** to form the final output marker.
const DefaultMarkerName = "FINAL_OUTPUT"

// Stage describes one reasoning stage of the prompt.
type Stage struct {
	// Title is the header text used for the stage ("Fragment Analysis").
	Title string `yaml:"title"`

	// Instruction tells the model what to do in this stage.
	Instruction string `yaml:"instruction"`
}

// Field is one labeled field of the structured final output.
type Field struct {
	Label       string   `yaml:"label"`
	Aliases     []string `yaml:"aliases,omitempty"`
	Instruction string   `yaml:"instruction"`
}

// Template is the shared contract between the prompt and the segmenter:
// the marker, the stage headers and the output field labels.
type Template struct {
	MarkerName string           `yaml:"marker_name"`
	Stages     [NumStages]Stage `yaml:"stages"`

	// Logline is the first field after the marker. Its label is the
	// secondary anchor used when the marker is missing.
	Logline    Field `yaml:"logline"`
	World      Field `yaml:"world"`
	Characters Field `yaml:"characters"`
}

// DefaultTemplate returns the template the bot prompts with.
func DefaultTemplate() *Template {
	return &Template{
		MarkerName: DefaultMarkerName,
		Stages: [NumStages]Stage{
			{
				Title:       "Fragment Analysis",
				Instruction: "List the striking images, motifs and tensions in each fragment as bullet points.",
			},
			{
				Title:       "Element Extraction",
				Instruction: "Pick the elements worth keeping: characters, places, objects, conflicts. One bullet each.",
			},
			{
				Title:       "Combination",
				Instruction: "Combine the elements into two or three candidate premises, one bullet per premise.",
			},
			{
				Title:       "Refinement",
				Instruction: "Choose the strongest premise and sharpen it. Note what you changed as bullets.",
			},
		},
		Logline: Field{
			Label:       "Logline",
			Aliases:     []string{"ログライン"},
			Instruction: "one sentence that sells the story",
		},
		World: Field{
			Label:       "World",
			Aliases:     []string{"Setting", "世界観"},
			Instruction: "two or three sentences about the setting",
		},
		Characters: Field{
			Label:       "Characters",
			Aliases:     []string{"登場人物"},
			Instruction: "a numbered list, one character per line",
		},
	}
}

// Marker returns the canonical marker text, e.g. **FINAL_OUTPUT**.
func (t *Template) Marker() string {
	return "**" + t.MarkerName + "**"
}

// StageLabel returns the short label for a stage, e.g. STEP3.
func (t *Template) StageLabel(stage int) string {
	return fmt.Sprintf("STEP%d", stage)
}

func (t *Template) validate() error {
	if strings.TrimSpace(t.MarkerName) == "" {
		return fmt.Errorf("template marker name is empty")
	}
	if strings.TrimSpace(t.Logline.Label) == "" {
		return fmt.Errorf("template logline label is empty")
	}
	for i, st := range t.Stages {
		if strings.TrimSpace(st.Title) == "" {
			return fmt.Errorf("template stage %d has no title", i+1)
		}
	}
	return nil
}

// patterns holds every expression compiled from a Template.
// Input has already been normalized to \n line endings.
type patterns struct {
	marker           *regexp.Regexp
	normalizedMarker *regexp.Regexp
	logline          *regexp.Regexp
	stageHeader      [NumStages]*regexp.Regexp
	stageTitles      []string
}

var (
	// labelAnywhere finds a stage label such as STEP3, STEP 3, Step_2, step2 or
	// ステップ4 anywhere in a line. A spaced lowercase "step 2" is left to prose.
	labelAnywhere = regexp.MustCompile(`\bSTEP[ \t_\-]*[1-4]\b|(?i:\bstep[_\-]?[1-4]\b)|ステップ[ \t_\-]*[1-4]`)

	numberedItem = regexp.MustCompile(`^[ \t]*\d+[.)][ \t]+\S`)
	numberedLine = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]+\S`)
	listItem     = regexp.MustCompile(`^[ \t]*(?:[-*+•]|\d+[.)])[ \t]+\S`)

	numberedPrefix = regexp.MustCompile(`^[ \t]*\d+[.)][ \t]*`)
	fieldPrefix    = regexp.MustCompile(`^[ \t]*(?:[-*•][ \t]*)?(?:\*\*|__)?([^:：\n]{1,40}?)(?:\*\*|__)?[ \t]*[:：][ \t]*`)

	blankLine = regexp.MustCompile(`\n[ \t]*\n`)
	blankRuns = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)
)

// decoration is markdown noise allowed in front of a header.
const decoration = `^[ \t]*(?:[#>*_•\-\[(<]+[ \t]*)*`

// titleDecoration is the noise allowed in front of a bare stage title. List
// bullets are excluded so "- Combination: x" stays an element.
const titleDecoration = `^[ \t]*(?:(?:#+|>|\*\*|__|[\[(<])[ \t]*)*`

func compile(t *Template) (*patterns, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	p := &patterns{}
	name := regexp.QuoteMeta(t.MarkerName)

	var err error
	p.marker, err = regexp.Compile(`\*\*[ \t]*` + name + `[ \t]*:?[ \t]*\*\*(?:[ \t]*:)?`)
	if err != nil {
		return nil, fmt.Errorf("compile marker: %w", err)
	}

	// FINAL_OUTPUT, final output, Final-Output, 最終出力 on a line of their own.
	loose := strings.NewReplacer("_", `[ \t_\-]*`, " ", `[ \t_\-]*`, "-", `[ \t_\-]*`).
		Replace(regexp.QuoteMeta(t.MarkerName))
	p.normalizedMarker, err = regexp.Compile(`(?im)` + decoration + `(?:` + loose + `|最終出力)[ \t*_\])>=:：\-]*$`)
	if err != nil {
		return nil, fmt.Errorf("compile normalized marker: %w", err)
	}

	labels := append([]string{t.Logline.Label}, t.Logline.Aliases...)
	p.logline, err = regexp.Compile(`(?im)^[ \t]*(?:[-*•>#][ \t]*)*(?:\*\*|__)?[ \t]*(?:` +
		quoteAll(labels) + `)[ \t]*(?:\*\*|__)?[ \t]*[:：]`)
	if err != nil {
		return nil, fmt.Errorf("compile logline label: %w", err)
	}

	for i, st := range t.Stages {
		label := fmt.Sprintf(`(?:\bstep|ステップ)[ \t_\-]*%d\b`, i+1)
		title := `(?:\d+[.)][ \t]*)?` + regexp.QuoteMeta(st.Title) + `[ \t]*(?:\*\*|__)?[ \t]*(?:[:：\-—]|$)`
		p.stageHeader[i], err = regexp.Compile(`(?im)(?:` + decoration + label + `|` + titleDecoration + title + `)`)
		if err != nil {
			return nil, fmt.Errorf("compile stage %d header: %w", i+1, err)
		}
		p.stageTitles = append(p.stageTitles, strings.ToLower(st.Title))
	}

	return p, nil
}

func quoteAll(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	return strings.Join(quoted, "|")
}

// headerStage returns the stage (1-based) whose header opens the line, or 0.
// It also returns the byte offset where the header label ends.
func (p *patterns) headerStage(line string) (int, int) {
	for i, re := range p.stageHeader {
		if loc := re.FindStringIndex(line); loc != nil {
			return i + 1, loc[1]
		}
	}
	return 0, 0
}

// hasLabel reports whether a line carries any stage label.
func (p *patterns) hasLabel(line string) bool {
	if labelAnywhere.MatchString(line) {
		return true
	}
	stage, _ := p.headerStage(line)
	return stage > 0
}

// isStructured reports whether a line belongs to the structured output:
// a numbered item or a labeled field whose name is not a stage label.
func (p *patterns) isStructured(line string) bool {
	if numberedItem.MatchString(line) {
		return true
	}
	m := fieldPrefix.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	name := strings.TrimSpace(m[1])
	if name == "" || labelAnywhere.MatchString(name) {
		return false
	}
	lower := strings.ToLower(strings.Trim(name, "#*_ \t"))
	for _, title := range p.stageTitles {
		if lower == title {
			return false
		}
	}
	return true
}
