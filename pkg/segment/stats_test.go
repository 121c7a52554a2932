package segment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStats(t *testing.T) {
	s := newTestSegmenter(t)
	thinking := "## STEP1 Fragment Analysis\n- lighthouse\n- whale\n* storm\n\n" +
		"## STEP2\n1. keeper\n2) city\n\n" +
		"STEP3: merged\n\n" +
		"## STEP4\n"

	got := s.Stats(thinking)

	want := StageStatistics{Stages: [NumStages]StageCount{
		{Stage: 1, Present: true, Populated: true, Elements: 3},
		{Stage: 2, Present: true, Populated: true, Elements: 2},
		{Stage: 3, Present: true, Populated: true, Elements: 0},
		{Stage: 4, Present: true, Populated: false, Elements: 0},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got.Populated()); diff != "" {
		t.Errorf("Populated() mismatch (-want +got):\n%s", diff)
	}
	if got.Total() != 5 {
		t.Errorf("Total() = %d, want 5", got.Total())
	}
}

func TestStats_StageTitles(t *testing.T) {
	s := newTestSegmenter(t)
	thinking := "### 1. Fragment Analysis\n- a\n- b\n### Element Extraction:\n- c\n### Combination\nnothing listed\n"

	got := s.Stats(thinking)
	if got.Count(1) != 2 || got.Count(2) != 1 || got.Count(3) != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/1/0", got.Count(1), got.Count(2), got.Count(3))
	}
	if !got.Present(3) || got.Present(4) {
		t.Errorf("Present(3)/Present(4) = %v/%v, want true/false", got.Present(3), got.Present(4))
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got.Populated()); diff != "" {
		t.Errorf("Populated() mismatch (-want +got):\n%s", diff)
	}
}

func TestStats_MissingAndRepeated(t *testing.T) {
	s := newTestSegmenter(t)

	t.Run("missing stages count zero", func(t *testing.T) {
		got := s.Stats("no headers here\n- a stray bullet")
		for stage := 1; stage <= NumStages; stage++ {
			if got.Count(stage) != 0 || got.Present(stage) {
				t.Errorf("stage %d = %+v, want empty", stage, got.Stages[stage-1])
			}
		}
		if got.Populated() != nil {
			t.Errorf("Populated() = %v, want nil", got.Populated())
		}
	})

	t.Run("out of range stages", func(t *testing.T) {
		got := s.Stats("STEP1\n- a")
		if got.Count(0) != 0 || got.Count(NumStages+1) != 0 || got.Present(-1) {
			t.Error("out of range stage reported data")
		}
	})

	t.Run("repeated header closes the section", func(t *testing.T) {
		got := s.Stats("STEP1\n- a\nSTEP1\n- b\n- c")
		if got.Count(1) != 1 {
			t.Errorf("Count(1) = %d, want 1", got.Count(1))
		}
	})

	t.Run("bullet starting with a stage title", func(t *testing.T) {
		got := s.Stats("STEP2: Element Extraction\n- Combination: a sword and a song\n- a lighthouse\n- a thief\n" +
			"STEP3: Combination\n- premise A")
		if got.Count(2) != 3 || got.Count(3) != 1 {
			t.Errorf("counts = %d/%d, want 3/1", got.Count(2), got.Count(3))
		}
		if !got.Present(3) {
			t.Error("Present(3) = false, want true")
		}
	})

	t.Run("starred bullet starting with a stage title", func(t *testing.T) {
		got := s.Stats("STEP1\n* Refinement: later\n- whale")
		if got.Count(1) != 2 || got.Present(4) {
			t.Errorf("Count(1) = %d, Present(4) = %v, want 2/false", got.Count(1), got.Present(4))
		}
	})

	t.Run("empty thinking", func(t *testing.T) {
		got := s.Stats("")
		if diff := cmp.Diff(newStageStatistics(), got); diff != "" {
			t.Errorf("Stats(\"\") mismatch (-want +got):\n%s", diff)
		}
	})
}
