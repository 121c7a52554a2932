package segment

import (
	"strings"
)

// Clean strips leaked stage labels from the final segment of res.
func (s *Segmenter) Clean(res ExtractionResult) CleanedResult {
	return s.Reclean(CleanedResult{ExtractionResult: res})
}

// Reclean runs one more cleaning pass over an already cleaned result. A pass
// that removes nothing returns its input unchanged, so Reclean(Clean(x)) is
// always Clean(x).
func (s *Segmenter) Reclean(prev CleanedResult) CleanedResult {
	cleaned, spans := s.strip(prev.Final)
	if spans == 0 {
		if s.contaminated(prev.Final) {
			return unresolved(prev)
		}
		return prev
	}

	if cleaned == "" {
		// Removing the labels would leave nothing to post; keep the text.
		return unresolved(prev)
	}

	out := prev
	out.Final = cleaned
	if s.contaminated(cleaned) {
		return unresolved(out)
	}
	out.ContaminationRemoved = true
	out.RemovedSpanCount = prev.RemovedSpanCount + spans
	out.Unresolved = false
	return out
}

func unresolved(res CleanedResult) CleanedResult {
	res.ContaminationRemoved = false
	res.RemovedSpanCount = 0
	res.Unresolved = true
	return res
}

// strip removes every unprotected line that carries a stage label. A header
// line also takes the reasoning prose directly below it.
func (s *Segmenter) strip(text string) (string, int) {
	p := s.patterns
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	spans := 0

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !p.hasLabel(line) || p.isStructured(line) {
			kept = append(kept, line)
			continue
		}

		spans++
		if stage, _ := p.headerStage(line); stage == 0 {
			continue
		}
		for i+1 < len(lines) {
			next := lines[i+1]
			if strings.TrimSpace(next) == "" || p.isStructured(next) || p.hasLabel(next) {
				break
			}
			i++
		}
	}

	if spans == 0 {
		return text, 0
	}
	joined := blankRuns.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")
	return strings.TrimSpace(joined), spans
}

// contaminated reports whether any line of text still carries a stage label.
func (s *Segmenter) contaminated(text string) bool {
	if labelAnywhere.MatchString(text) {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		if stage, _ := s.patterns.headerStage(line); stage > 0 {
			return true
		}
	}
	return false
}
