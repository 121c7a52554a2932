package fragment

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header of an Obsidian note.
type Frontmatter struct {
	Title   string     `yaml:"title"`
	Aliases stringList `yaml:"aliases"`
	Tags    stringList `yaml:"tags"`
}

// stringList accepts both "a" and [a, b].
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value != "" {
			*l = stringList{node.Value}
		}
		return nil
	default:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
}

var (
	frontmatterRe = regexp.MustCompile(`(?s)\A---[ \t]*\n(.*?)\n---[ \t]*(?:\n|\z)`)
	commentRe     = regexp.MustCompile(`(?s)%%.*?%%`)
	htmlComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	embedRe       = regexp.MustCompile(`!\[\[[^\]]*\]\]`)
	wikilinkRe    = regexp.MustCompile(`\[\[([^\]|#]*)(?:#[^\]|]*)?(?:\|([^\]]*))?\]\]`)
	htmlBlockRe   = regexp.MustCompile(`(?is)^<([a-z][a-z0-9]*)\b[^>]*>.*</[a-z][a-z0-9]*>$|^<(?:br|hr|img)\b[^>]*>$`)
	inlineTagRe   = regexp.MustCompile(`(?i)</?(?:span|b|i|u|em|strong|mark|small|sup|sub|font|a)\b[^>]*>`)
	inlineBreakRe = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// Normalize prepares note markdown for a prompt. It splits off the YAML
// frontmatter, drops Obsidian and HTML comments and embeds, replaces
// wikilinks with their display text and renders pasted HTML blocks as text.
// Frontmatter that does not parse is dropped with no metadata returned.
func Normalize(content string) (string, Frontmatter) {
	var fm Frontmatter
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if m := frontmatterRe.FindStringSubmatchIndex(content); m != nil {
		if err := yaml.Unmarshal([]byte(content[m[2]:m[3]]), &fm); err != nil {
			fm = Frontmatter{}
		}
		content = content[m[1]:]
	}

	content = commentRe.ReplaceAllString(content, "")
	content = htmlComment.ReplaceAllString(content, "")
	content = embedRe.ReplaceAllString(content, "")
	content = wikilinkRe.ReplaceAllStringFunc(content, func(link string) string {
		m := wikilinkRe.FindStringSubmatch(link)
		if strings.TrimSpace(m[2]) != "" {
			return strings.TrimSpace(m[2])
		}
		return Title(strings.TrimSpace(m[1]))
	})

	paragraphs := strings.Split(content, "\n\n")
	for i, p := range paragraphs {
		paragraphs[i] = normalizeParagraph(p)
	}
	return collapseBlankLines(strings.Join(paragraphs, "\n\n")), fm
}

func normalizeParagraph(p string) string {
	trimmed := strings.TrimSpace(p)
	if htmlBlockRe.MatchString(trimmed) {
		if text, err := htmlToText(trimmed); err == nil {
			return text
		}
	}
	p = inlineBreakRe.ReplaceAllString(p, "\n")
	return inlineTagRe.ReplaceAllString(p, "")
}
