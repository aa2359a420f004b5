package segment

import (
	"strings"
	"testing"

	"storyscope/internal/manuscript"
)

var filler = strings.Repeat("The waves rolled in against the grey stones below. ", 10)

func mustSplit(t *testing.T, text string, opts Options) *Segmentation {
	t.Helper()
	seg, err := Split(manuscript.New("", text), opts)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	return seg
}

func TestThreeChaptersOneSceneEach(t *testing.T) {
	text := strings.Join([]string{
		"Chapter One", "", filler, "",
		"Chapter Two", "", filler, "",
		"Chapter Three", "", filler,
	}, "\n")
	seg := mustSplit(t, text, Options{Title: "Test Book"})

	if len(seg.Chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(seg.Chapters))
	}
	if seg.Metadata.TotalScenes != 3 {
		t.Fatalf("totalScenes = %d, want 3", seg.Metadata.TotalScenes)
	}
	for i, ch := range seg.Chapters {
		if ch.Number != i+1 {
			t.Fatalf("chapter %d numbered %d", i, ch.Number)
		}
		if len(ch.Scenes) != 1 {
			t.Fatalf("chapter %d has %d scenes", ch.Number, len(ch.Scenes))
		}
	}
	if got := seg.Chapters[1].Scenes[0].ID; got != "ch2-s1" {
		t.Fatalf("scene id = %q", got)
	}
	if seg.Title != "Test Book" {
		t.Fatalf("title = %q", seg.Title)
	}
}

func TestSceneBreakMarkerSplitsChapter(t *testing.T) {
	text := strings.Join([]string{
		"Chapter One",
		"",
		filler,
		"",
		"***",
		"",
		filler,
	}, "\n")
	seg := mustSplit(t, text, Options{})

	ch := seg.Chapters[0]
	if len(ch.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(ch.Scenes))
	}
	const breakLine = 5
	if ch.Scenes[0].EndLine >= breakLine {
		t.Fatalf("scene 1 ends at %d, includes the break line", ch.Scenes[0].EndLine)
	}
	if ch.Scenes[1].StartLine <= breakLine {
		t.Fatalf("scene 2 starts at %d, includes the break line", ch.Scenes[1].StartLine)
	}
}

func TestLongerMarkerRunsStillBreak(t *testing.T) {
	text := "Chapter One\n\n" + filler + "\n* * *\n" + filler
	seg := mustSplit(t, text, Options{})
	if got := len(seg.Chapters[0].Scenes); got != 2 {
		t.Fatalf("spaced asterisk line should break, got %d scenes", got)
	}

	text = "Chapter One\n\n" + filler + "\n#####\n" + filler
	seg = mustSplit(t, text, Options{})
	if got := len(seg.Chapters[0].Scenes); got != 2 {
		t.Fatalf("hash run should break, got %d scenes", got)
	}
}

func TestBlankLineRunThreshold(t *testing.T) {
	text := "Chapter One\n\n" + filler + "\n\n\n\n" + filler

	seg := mustSplit(t, text, Options{})
	if got := len(seg.Chapters[0].Scenes); got != 2 {
		t.Fatalf("three blank lines should break by default, got %d scenes", got)
	}

	seg = mustSplit(t, text, Options{BlankLineRun: 4})
	if got := len(seg.Chapters[0].Scenes); got != 1 {
		t.Fatalf("raised threshold should keep one scene, got %d", got)
	}
}

func TestNoiseSceneDropped(t *testing.T) {
	text := strings.Join([]string{
		"Chapter One", "", filler, "", "***", "", "The end.",
	}, "\n")
	seg := mustSplit(t, text, Options{})
	ch := seg.Chapters[0]
	if len(ch.Scenes) != 1 {
		t.Fatalf("noise scene not dropped, got %d scenes", len(ch.Scenes))
	}
}

func TestEmptyChapterSynthesizesWholeChapterScene(t *testing.T) {
	text := "Chapter One\n\nFin."
	seg := mustSplit(t, text, Options{})
	ch := seg.Chapters[0]
	if len(ch.Scenes) != 1 {
		t.Fatalf("expected one synthesized scene, got %d", len(ch.Scenes))
	}
	if ch.Scenes[0].WordCount == 0 {
		t.Fatalf("synthesized scene should carry the chapter text")
	}
}

func TestNoHeadingsFallsBackToFullText(t *testing.T) {
	seg := mustSplit(t, filler, Options{})
	if len(seg.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(seg.Chapters))
	}
	if seg.Chapters[0].Title != "Full Text" {
		t.Fatalf("title = %q", seg.Chapters[0].Title)
	}
	if len(seg.Chapters[0].Scenes) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(seg.Chapters[0].Scenes))
	}
}

func TestChapterNumbersArePositional(t *testing.T) {
	text := strings.Join([]string{
		"Chapter Five", "", filler, "",
		"Chapter One", "", filler, "",
		"Chapter Nine", "", filler,
	}, "\n")
	seg := mustSplit(t, text, Options{})
	if len(seg.Chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(seg.Chapters))
	}
	for i, ch := range seg.Chapters {
		if ch.Number != i+1 {
			t.Fatalf("chapter %q numbered %d, want %d", ch.Title, ch.Number, i+1)
		}
	}
	if seg.Chapters[0].Title != "Chapter Five" {
		t.Fatalf("heading text not preserved: %q", seg.Chapters[0].Title)
	}
}

func TestChapterAndSceneRangesAreOrdered(t *testing.T) {
	text := strings.Join([]string{
		"Chapter One", "", filler, "", "***", "", filler, "",
		"Chapter Two", "", filler, "\n\n\n", filler,
	}, "\n")
	seg := mustSplit(t, text, Options{})

	for i, ch := range seg.Chapters {
		if i > 0 {
			prev := seg.Chapters[i-1]
			if ch.StartLine != prev.EndLine+1 {
				t.Fatalf("chapter %d starts at %d, previous ended at %d", ch.Number, ch.StartLine, prev.EndLine)
			}
		}
		last := 0
		for _, sc := range ch.Scenes {
			if sc.StartLine > sc.EndLine {
				t.Fatalf("scene %s has inverted range %d..%d", sc.ID, sc.StartLine, sc.EndLine)
			}
			if sc.StartLine <= last {
				t.Fatalf("scene %s overlaps previous (start %d, prev end %d)", sc.ID, sc.StartLine, last)
			}
			if sc.StartLine < ch.StartLine || sc.EndLine > ch.EndLine {
				t.Fatalf("scene %s escapes chapter range", sc.ID)
			}
			last = sc.EndLine
		}
	}
}

func TestOpeningTextPreview(t *testing.T) {
	seg := mustSplit(t, "Chapter One\n\n"+filler, Options{})
	got := seg.Chapters[0].Scenes[0].OpeningText
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("long opening should be truncated, got %q", got)
	}
	if n := len([]rune(got)); n > 152 {
		t.Fatalf("preview too long: %d runes", n)
	}
}

func TestPOVCandidates(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string // "" means nil
	}{
		{"first person", "I never wanted to come back to the island after everything that happened there.", FirstPersonPOV},
		{"cognition verb", "Maria thought the house looked smaller than she remembered from those summers.", "Maria"},
		{"interiority", "Elena's heart hammered as the door swung open onto the dark hallway beyond.", "Elena"},
		{"roster fallback", "The morning was cold and Nora walked to the village square alone again.", "Nora"},
		{"no candidate", "The rain fell on the empty street for hours without end, pooling in the gutters.", ""},
	}
	for _, tc := range cases {
		seg := mustSplit(t, "Chapter One\n\n"+tc.text, Options{})
		got := seg.Chapters[0].Scenes[0].POVCandidate
		if tc.want == "" {
			if got != nil {
				t.Fatalf("%s: expected nil, got %q", tc.name, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("%s: povCandidate = %v, want %q", tc.name, got, tc.want)
		}
	}
}

func TestOptionValidation(t *testing.T) {
	doc := manuscript.New("", filler)
	if _, err := Split(doc, Options{BlankLineRun: -2}); err == nil {
		t.Fatalf("negative blank-line run must be rejected")
	}
	if _, err := Split(doc, Options{HeadingPatterns: []string{"("}}); err == nil {
		t.Fatalf("invalid heading pattern must be rejected")
	}
	if _, err := Split(doc, Options{SceneBreakMarkers: []string{""}}); err == nil {
		t.Fatalf("empty scene-break marker must be rejected")
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Join([]string{
		"Chapter One", "", "Maria thought about the road ahead of her for a long while.", "",
		"***", "", filler,
	}, "\n")
	a := mustSplit(t, text, Options{})
	b := mustSplit(t, text, Options{})
	if a.Metadata != b.Metadata || len(a.Chapters) != len(b.Chapters) {
		t.Fatalf("segmentation differs between runs")
	}
	for i := range a.Chapters {
		if len(a.Chapters[i].Scenes) != len(b.Chapters[i].Scenes) {
			t.Fatalf("chapter %d scene count differs", i+1)
		}
	}
}
