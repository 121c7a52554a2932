package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// fallbackStrategy is one entry of the fallback chain. apply returns the split
// it proposes; an empty final segment means the strategy does not apply.
type fallbackStrategy struct {
	tag        Strategy
	confidence Confidence
	apply      func(s *Segmenter, text string) (thinking, final string)
}

// chain is evaluated in order; the first non-empty final segment wins.
// StrategyAbsolute is not listed: it is what happens when nothing matched.
var chain = []fallbackStrategy{
	{StrategyNormalizedMarker, ConfidenceHeuristic, splitNormalizedMarker},
	{StrategyLoglineLabel, ConfidenceHeuristic, splitLogline},
	{StrategyNumberedList, ConfidenceHeuristic, splitNumberedList},
	{StrategyLastParagraph, ConfidenceHeuristic, splitLastParagraph},
	{StrategyFinalStage, ConfidenceHeuristic, splitFinalStage},
	{StrategyShortResponse, ConfidenceDegraded, splitShortResponse},
	{StrategyTrailingWindow, ConfidenceDegraded, splitTrailingWindow},
}

// Locate looks for the canonical marker. With several markers the last one
// is the boundary. It returns false when the marker is missing or nothing
// follows it.
func (s *Segmenter) Locate(text string) (ExtractionResult, bool) {
	text = normalizeNewlines(text)
	locs := s.patterns.marker.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return ExtractionResult{}, false
	}

	last := locs[len(locs)-1]
	final := strings.TrimSpace(text[last[1]:])
	if final == "" {
		return ExtractionResult{}, false
	}

	return ExtractionResult{
		Thinking:   strings.TrimSpace(text[:last[0]]),
		Final:      final,
		Strategy:   StrategyExact,
		Confidence: ConfidenceExact,
	}, true
}

// Extract locates the marker and falls back through the strategy chain when
// it is missing. It never fails; the absolute fallback returns the whole text
// as thinking with an empty final segment.
func (s *Segmenter) Extract(text string) ExtractionResult {
	text = normalizeNewlines(text)
	if res, ok := s.Locate(text); ok {
		return res
	}

	for _, st := range chain {
		thinking, final := st.apply(s, text)
		if final == "" {
			continue
		}
		return ExtractionResult{
			Thinking:   thinking,
			Final:      final,
			Strategy:   st.tag,
			Confidence: st.confidence,
		}
	}

	return ExtractionResult{
		Thinking:   strings.TrimSpace(text),
		Strategy:   StrategyAbsolute,
		Confidence: ConfidenceDegraded,
	}
}

// splitAt cuts text at a byte offset and trims both halves.
func splitAt(text string, at int) (string, string) {
	return strings.TrimSpace(text[:at]), strings.TrimSpace(text[at:])
}

func splitNormalizedMarker(s *Segmenter, text string) (string, string) {
	locs := s.patterns.normalizedMarker.FindAllStringIndex(text, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		final := strings.TrimSpace(text[locs[i][1]:])
		if final != "" {
			return strings.TrimSpace(text[:locs[i][0]]), final
		}
	}
	return "", ""
}

func splitLogline(s *Segmenter, text string) (string, string) {
	loc := s.patterns.logline.FindStringIndex(text)
	if loc == nil {
		return "", ""
	}
	return splitAt(text, loc[0])
}

func splitNumberedList(_ *Segmenter, text string) (string, string) {
	loc := numberedLine.FindStringIndex(text)
	if loc == nil {
		return "", ""
	}

	// The paragraph holding the list starts after the nearest blank line.
	// Without one the list line itself is the boundary.
	start := loc[0]
	if seps := blankLine.FindAllStringIndex(text[:loc[0]], -1); len(seps) > 0 {
		start = seps[len(seps)-1][1]
	}
	return splitAt(text, start)
}

func splitLastParagraph(_ *Segmenter, text string) (string, string) {
	seps := blankLine.FindAllStringIndex(text, -1)
	for i := len(seps) - 1; i >= 0; i-- {
		before, after := splitAt(text, seps[i][1])
		if after == "" {
			continue
		}
		if before == "" {
			return "", ""
		}
		return before, after
	}
	return "", ""
}

func splitFinalStage(s *Segmenter, text string) (string, string) {
	locs := s.patterns.stageHeader[NumStages-1].FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return "", ""
	}
	labelEnd := locs[len(locs)-1][1]

	// The labeled paragraph runs to the next blank line, or is just the
	// label line when no blank line follows.
	rest := text[labelEnd:]
	if sep := blankLine.FindStringIndex(rest); sep != nil {
		return splitAt(text, labelEnd+sep[1])
	}
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		return splitAt(text, labelEnd+nl+1)
	}
	return "", ""
}

func splitShortResponse(s *Segmenter, text string) (string, string) {
	if utf8.RuneCountInString(text) >= s.opts.ShortThreshold {
		return "", ""
	}
	return "", strings.TrimSpace(text)
}

func splitTrailingWindow(s *Segmenter, text string) (string, string) {
	n := utf8.RuneCountInString(text)
	if n < s.opts.LongThreshold {
		return "", ""
	}
	start := byteOffset(text, n-s.opts.TrailingChars)

	// Never start mid-word: prefer the next line start in the window, then
	// the next word start.
	if prev, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && !unicode.IsSpace(prev) {
		window := text[start:]
		if nl := strings.IndexByte(window, '\n'); nl >= 0 && strings.TrimSpace(window[nl+1:]) != "" {
			start += nl + 1
		} else if sp := strings.IndexFunc(window, unicode.IsSpace); sp >= 0 && strings.TrimSpace(window[sp:]) != "" {
			start += sp
		}
	}
	return splitAt(text, start)
}

// byteOffset returns the byte index of the rune at position runes.
// Out-of-range positions clamp to the string bounds.
func byteOffset(text string, runes int) int {
	if runes <= 0 {
		return 0
	}
	i := 0
	for pos := range text {
		if i == runes {
			return pos
		}
		i++
	}
	return len(text)
}

func normalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
