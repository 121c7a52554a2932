package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Enforce cuts text to at most maxLength runes. The cut prefers the last line
// break inside the budget, then the last sentence end on the cut line, and
// only hard-cuts at the budget when neither exists. It never cuts inside a
// numbered list marker or a field label such as "World:".
func Enforce(text string, maxLength int) BoundedOutput {
	if utf8.RuneCountInString(text) <= maxLength {
		return BoundedOutput{Text: text}
	}
	if maxLength <= 0 {
		return BoundedOutput{WasTruncated: true}
	}

	limit := byteOffset(text, maxLength)

	// A newline right after the budget is still a usable boundary.
	window := text[:limit]
	if text[limit] == '\n' {
		window = text[:limit+1]
	}
	for nl := strings.LastIndexByte(window, '\n'); nl >= 0; nl = strings.LastIndexByte(window[:nl], '\n') {
		if kept := strings.TrimRightFunc(text[:nl], unicode.IsSpace); strings.TrimSpace(kept) != "" {
			return BoundedOutput{Text: kept, WasTruncated: true}
		}
	}

	head := text[:limit]
	lineStart := strings.LastIndexByte(head, '\n') + 1
	if cut := sentenceCut(text, lineStart, limit); cut > 0 {
		if kept := strings.TrimRightFunc(text[:cut], unicode.IsSpace); strings.TrimSpace(kept) != "" {
			return BoundedOutput{Text: kept, WasTruncated: true}
		}
	}

	return BoundedOutput{Text: strings.TrimRightFunc(head, unicode.IsSpace), WasTruncated: true}
}

// sentenceCut returns the byte offset just after the last sentence end in
// text[lineStart:limit] that lies past the line's protected prefix, or -1.
func sentenceCut(text string, lineStart, limit int) int {
	line := text[lineStart:limit]
	from := protectedPrefix(line)

	best := -1
	for i, r := range line[from:] {
		if !isSentenceEnd(r) {
			continue
		}
		end := lineStart + from + i + utf8.RuneLen(r)
		if isCJKTerminator(r) || end == len(text) {
			best = end
			continue
		}
		if next, _ := utf8.DecodeRuneInString(text[end:]); unicode.IsSpace(next) {
			best = end
		}
	}
	return best
}

// protectedPrefix returns the length of the numbered marker and field label
// that open line. Neither may be split.
func protectedPrefix(line string) int {
	n := 0
	if loc := numberedPrefix.FindStringIndex(line); loc != nil {
		n = loc[1]
	}
	if loc := fieldPrefix.FindStringIndex(line[n:]); loc != nil {
		n += loc[1]
	}
	return n
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}

func isCJKTerminator(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}
