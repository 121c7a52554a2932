package fragment

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// htmlToText renders an HTML block pasted into a note as plain markdown.
// Only text survives: link targets, images, scripts and form controls are
// dropped because the model only needs the words.
func htmlToText(block string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(block))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	writeChildren(&sb, doc.Selection, 0)
	return collapseBlankLines(sb.String()), nil
}

func writeChildren(sb *strings.Builder, sel *goquery.Selection, depth int) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Nodes[0]
		switch node.Type {
		case html.TextNode:
			text := strings.Join(strings.Fields(node.Data), " ")
			if text == "" {
				return
			}
			if needsSpace(sb) {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		case html.ElementNode:
			writeElement(sb, s, goquery.NodeName(s), depth)
		}
	})
}

func writeElement(sb *strings.Builder, s *goquery.Selection, tag string, depth int) {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level, _ := strconv.Atoi(tag[1:])
		newlines(sb, 2)
		sb.WriteString(strings.Repeat("#", level) + " ")
		writeChildren(sb, s, depth)
		newlines(sb, 2)

	case "p", "div", "section", "article", "header", "footer", "figure", "figcaption":
		newlines(sb, 2)
		writeChildren(sb, s, depth)
		newlines(sb, 2)

	case "br":
		sb.WriteByte('\n')

	case "blockquote":
		newlines(sb, 2)
		var inner strings.Builder
		writeChildren(&inner, s, depth)
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			sb.WriteString("> " + line + "\n")
		}
		newlines(sb, 1)

	case "ul", "ol":
		newlines(sb, 1)
		n := 0
		s.Children().Each(func(_ int, li *goquery.Selection) {
			if goquery.NodeName(li) != "li" {
				return
			}
			n++
			sb.WriteString(strings.Repeat("  ", depth))
			if tag == "ol" {
				sb.WriteString(strconv.Itoa(n) + ". ")
			} else {
				sb.WriteString("- ")
			}
			writeChildren(sb, li, depth+1)
			newlines(sb, 1)
		})
		newlines(sb, 1)

	case "pre":
		newlines(sb, 2)
		sb.WriteString(strings.TrimRight(s.Text(), "\n"))
		newlines(sb, 2)

	case "tr":
		newlines(sb, 1)
		var cells []string
		s.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.Join(strings.Fields(cell.Text()), " "))
		})
		sb.WriteString(strings.Join(cells, " | "))
		newlines(sb, 1)

	case "img", "script", "style", "noscript", "svg", "iframe", "form", "input", "button", "select", "textarea", "video", "audio":

	default:
		writeChildren(sb, s, depth)
	}
}

func needsSpace(sb *strings.Builder) bool {
	if sb.Len() == 0 {
		return false
	}
	s := sb.String()
	last := s[len(s)-1]
	return last != '\n' && last != ' '
}

// newlines makes the builder end with at least count newlines.
func newlines(sb *strings.Builder, count int) {
	if sb.Len() == 0 {
		return
	}
	s := sb.String()
	trailing := len(s) - len(strings.TrimRight(s, "\n"))
	for i := trailing; i < count; i++ {
		sb.WriteByte('\n')
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
