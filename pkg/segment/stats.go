package segment

import (
	"strings"
)

// headerTrim is what may sit between a stage label and its inline content.
const headerTrim = " \t*_:：-—–"

// Stats counts the list elements under each stage header of the thinking
// segment. A stage section runs from its first header to the next header of
// any stage. A repeated header closes the current section without opening
// a new one.
func (s *Segmenter) Stats(thinking string) StageStatistics {
	stats := newStageStatistics()
	current := 0

	for _, line := range strings.Split(normalizeNewlines(thinking), "\n") {
		if stage, end := s.patterns.headerStage(line); stage > 0 {
			st := &stats.Stages[stage-1]
			if st.Present {
				current = 0
				continue
			}
			st.Present = true
			current = stage
			if strings.Trim(line[end:], headerTrim) != "" {
				st.Populated = true
			}
			continue
		}

		if current == 0 {
			continue
		}
		st := &stats.Stages[current-1]
		if strings.TrimSpace(line) != "" {
			st.Populated = true
		}
		if listItem.MatchString(line) {
			st.Elements++
		}
	}

	return stats
}
