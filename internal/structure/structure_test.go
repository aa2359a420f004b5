package structure

import (
	"math"
	"strings"
	"testing"

	"storyscope/internal/manuscript"
	"storyscope/internal/segment"
)

var neutral = "The morning light settled over the quiet harbor town."

func singleScene(doc *manuscript.Doc) *segment.Segmentation {
	return &segment.Segmentation{
		Title:      "t",
		TotalWords: doc.WordCount(),
		Chapters: []segment.Chapter{{
			Number:    1,
			Title:     "Chapter One",
			StartLine: 1,
			EndLine:   doc.LineCount(),
			WordCount: doc.WordCount(),
			Scenes: []segment.Scene{{
				ID:        "ch1-s1",
				StartLine: 1,
				EndLine:   doc.LineCount(),
				WordCount: doc.WordCount(),
			}},
		}},
		Metadata: segment.Metadata{TotalChapters: 1, TotalScenes: 1},
	}
}

func analyzeText(t *testing.T, text string) SceneAnalysis {
	t.Helper()
	doc := manuscript.New("", text)
	rep, err := Analyze(doc, singleScene(doc), Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(rep.Scenes) != 1 {
		t.Fatalf("expected 1 scene analysis, got %d", len(rep.Scenes))
	}
	return rep.Scenes[0]
}

func TestGoalAndConflictDetection(t *testing.T) {
	sc := analyzeText(t, "She wanted to escape but the door was locked.")
	if !sc.Goal.Detected || len(sc.Goal.Indicators) < 1 {
		t.Fatalf("goal not detected: %+v", sc.Goal)
	}
	if !sc.Conflict.Detected || len(sc.Conflict.Indicators) < 1 {
		t.Fatalf("conflict not detected: %+v", sc.Conflict)
	}
	if sc.Disaster.Detected {
		t.Fatalf("no disaster expected: %+v", sc.Disaster)
	}
	if sc.Disaster.Type != "unclear" {
		t.Fatalf("undetected disaster should stay unclear, got %q", sc.Disaster.Type)
	}
	found := false
	for _, issue := range sc.Issues {
		if strings.Contains(issue, "disaster") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a missing-disaster issue, got %v", sc.Issues)
	}
}

func TestConfidenceStaysInBounds(t *testing.T) {
	dense := strings.Repeat("She wanted to run. He had to fight. They needed to hide. ", 4)
	sc := analyzeText(t, dense)
	for name, el := range map[string]ElementAnalysis{
		"goal": sc.Goal, "conflict": sc.Conflict, "disaster": sc.Disaster.ElementAnalysis,
	} {
		if el.Confidence < 0 || el.Confidence > 1 {
			t.Fatalf("%s confidence out of bounds: %f", name, el.Confidence)
		}
	}
	if sc.SceneSequelRatio < 0 || sc.SceneSequelRatio > 1 {
		t.Fatalf("ratio out of bounds: %f", sc.SceneSequelRatio)
	}
}

func TestElementConfidenceFormula(t *testing.T) {
	cases := []struct {
		indicators, words int
		want              float64
	}{
		{0, 500, 0},
		{1, 100, 0.5},   // density 1.0 -> 0.3 + 0.2
		{2, 400, 0.35},  // density 0.5 -> 0.15 + 0.2
		{3, 100, 1},     // density 3.0 -> clamped
		{1, 20, 1},      // tiny scene, huge density, clamped
	}
	for _, tc := range cases {
		got := elementConfidence(tc.indicators, tc.words)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("elementConfidence(%d, %d) = %f, want %f", tc.indicators, tc.words, got, tc.want)
		}
	}
}

func TestPacingThresholds(t *testing.T) {
	cases := []struct {
		ratio float64
		want  Pacing
	}{
		{0.66, PacingActionHeavy},
		{0.9, PacingActionHeavy},
		{0.65, PacingBalanced},
		{0.5, PacingBalanced},
		{0.35, PacingBalanced},
		{0.34, PacingReflective},
		{0, PacingReflective},
	}
	for _, tc := range cases {
		if got := pacingFor(tc.ratio); got != tc.want {
			t.Fatalf("pacingFor(%f) = %s, want %s", tc.ratio, got, tc.want)
		}
	}
}

func TestSceneSequelRatio(t *testing.T) {
	if got := sceneSequelRatio(0, 0); got != 0 {
		t.Fatalf("silent scene ratio = %f", got)
	}
	if got := sceneSequelRatio(3, 1); got != 0.75 {
		t.Fatalf("ratio = %f, want 0.75", got)
	}
	if got := sceneSequelRatio(1, 3); got != 0.25 {
		t.Fatalf("ratio = %f, want 0.25", got)
	}
}

func TestDisasterClassification(t *testing.T) {
	cases := []struct {
		name, text, want string
	}{
		{"yes-but", "She reached the tower at last, only to find the gate shattered and the bridge gone.", "yes-but"},
		{"no", "He failed the trial before the council.", "no"},
		{"no-and-furthermore", "The plan went wrong, and to make matters worse the river rose over the banks.", "no-and-furthermore"},
	}
	for _, tc := range cases {
		sc := analyzeText(t, tc.text)
		if !sc.Disaster.Detected {
			t.Fatalf("%s: disaster not detected", tc.name)
		}
		if sc.Disaster.Type != tc.want {
			t.Fatalf("%s: type = %q, want %q", tc.name, sc.Disaster.Type, tc.want)
		}
	}
}

func TestSilentSceneIsValidLowConfidence(t *testing.T) {
	sc := analyzeText(t, strings.Repeat(neutral+" ", 6))
	if sc.Goal.Detected || sc.Conflict.Detected || sc.Disaster.Detected {
		t.Fatalf("neutral text should detect nothing: %+v", sc)
	}
	if sc.Goal.Confidence != 0 || sc.Conflict.Confidence != 0 {
		t.Fatalf("expected zero confidence")
	}
	if sc.SceneSequelRatio != 0 || sc.Pacing != PacingReflective {
		t.Fatalf("silent scene: ratio %f pacing %s", sc.SceneSequelRatio, sc.Pacing)
	}
	if len(sc.Issues) < 2 {
		t.Fatalf("silent scene should be flagged, issues: %v", sc.Issues)
	}
}

func TestRelentlessActionIssue(t *testing.T) {
	sc := analyzeText(t, "She wanted to win but the gate was barred, and suddenly the wall collapsed around them.")
	if sc.SceneSequelRatio <= 0.85 {
		t.Fatalf("expected extreme ratio, got %f", sc.SceneSequelRatio)
	}
	found := false
	for _, issue := range sc.Issues {
		if strings.Contains(issue, "relentless") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected relentless-action issue, got %v", sc.Issues)
	}
}

func TestLongReflectiveSceneIssue(t *testing.T) {
	text := strings.Repeat(neutral+" ", 60) + "She felt the old grief again and sighed."
	sc := analyzeText(t, text)
	if sc.WordCount <= 500 {
		t.Fatalf("test scene too short: %d words", sc.WordCount)
	}
	found := false
	for _, issue := range sc.Issues {
		if strings.Contains(issue, "reflective") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected long-reflective issue (ratio %f), got %v", sc.SceneSequelRatio, sc.Issues)
	}
}

func TestFunctionRuleTable(t *testing.T) {
	cases := []struct {
		name string
		in   ruleInput
		want string
	}{
		{"setup", ruleInput{position: 0.05}, "Setup"},
		{"inciting", ruleInput{position: 0.12, disaster: true}, "Inciting incident"},
		{"inciting needs disaster", ruleInput{position: 0.12, pacing: PacingBalanced}, "Development scene"},
		{"first plot point", ruleInput{position: 0.22, goalConf: 0.7}, "First plot point"},
		{"midpoint", ruleInput{position: 0.5, conflictConf: 0.8}, "Midpoint"},
		{"dark night reflective", ruleInput{position: 0.8, pacing: PacingReflective}, "Dark night"},
		{"dark night dilemma", ruleInput{position: 0.8, dilemma: true, pacing: PacingActionHeavy}, "Dark night"},
		{"climax", ruleInput{position: 0.9, pacing: PacingActionHeavy}, "Climax"},
		{"resolution", ruleInput{position: 0.97, pacing: PacingActionHeavy}, "Resolution"},
		{"generic action", ruleInput{position: 0.6, pacing: PacingActionHeavy}, "Action beat"},
		{"generic reflective", ruleInput{position: 0.6, pacing: PacingReflective}, "Character beat"},
	}
	for _, tc := range cases {
		if got := functionFor(tc.in); got != tc.want {
			t.Fatalf("%s: functionFor = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMalformedRangeIsInputError(t *testing.T) {
	doc := manuscript.New("", neutral)
	seg := singleScene(doc)
	seg.Chapters[0].Scenes[0].EndLine = doc.LineCount() + 5
	if _, err := Analyze(doc, seg, Options{}); err == nil {
		t.Fatalf("expected an input error for out-of-range scene")
	}
}

func TestWorkerPoolPreservesOrder(t *testing.T) {
	lines := make([]string, 0, 9)
	scenes := make([]segment.Scene, 0, 9)
	for i := 0; i < 9; i++ {
		lines = append(lines, strings.Repeat("She wanted to cross the pass before the early snow sealed it. ", 2))
		scenes = append(scenes, segment.Scene{
			ID:        "ch1-s" + string(rune('1'+i)),
			StartLine: i + 1,
			EndLine:   i + 1,
			WordCount: 24,
		})
	}
	doc := manuscript.New("", strings.Join(lines, "\n"))
	seg := &segment.Segmentation{
		Chapters: []segment.Chapter{{
			Number: 1, Title: "Chapter One", StartLine: 1, EndLine: doc.LineCount(),
			WordCount: doc.WordCount(), Scenes: scenes,
		}},
		Metadata: segment.Metadata{TotalChapters: 1, TotalScenes: len(scenes)},
	}
	rep, err := Analyze(doc, seg, Options{Workers: 4})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	for i, sc := range rep.Scenes {
		if sc.SceneID != scenes[i].ID {
			t.Fatalf("order broken at %d: %s", i, sc.SceneID)
		}
	}
	if rep.Scenes[0].Position != 0 {
		t.Fatalf("first scene position = %f", rep.Scenes[0].Position)
	}
	if rep.Scenes[8].Position <= rep.Scenes[1].Position {
		t.Fatalf("positions not increasing")
	}
}

func TestSummaryAggregates(t *testing.T) {
	text := strings.Join([]string{
		"She wanted to escape but the door was locked.",
		"",
		neutral,
	}, "\n")
	doc := manuscript.New("", text)
	seg := &segment.Segmentation{
		Chapters: []segment.Chapter{{
			Number: 1, Title: "Chapter One", StartLine: 1, EndLine: 3,
			WordCount: doc.WordCount(),
			Scenes: []segment.Scene{
				{ID: "ch1-s1", StartLine: 1, EndLine: 1, WordCount: 9},
				{ID: "ch1-s2", StartLine: 3, EndLine: 3, WordCount: 9},
			},
		}},
		Metadata: segment.Metadata{TotalChapters: 1, TotalScenes: 2},
	}
	rep, err := Analyze(doc, seg, Options{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	total := 0
	for _, p := range rep.Summary.PacingCounts {
		total += p
	}
	if total != 2 {
		t.Fatalf("pacing histogram covers %d scenes, want 2", total)
	}
	wantIssues := len(rep.Scenes[0].Issues) + len(rep.Scenes[1].Issues)
	if rep.Summary.TotalIssues != wantIssues {
		t.Fatalf("totalIssues = %d, want %d", rep.Summary.TotalIssues, wantIssues)
	}
	if rep.Summary.AverageConfidence < 0 || rep.Summary.AverageConfidence > 1 {
		t.Fatalf("average confidence out of bounds: %f", rep.Summary.AverageConfidence)
	}
}

func TestOptionValidation(t *testing.T) {
	doc := manuscript.New("", neutral)
	if _, err := Analyze(doc, singleScene(doc), Options{Workers: -3}); err == nil {
		t.Fatalf("negative worker count must be rejected")
	}
}
