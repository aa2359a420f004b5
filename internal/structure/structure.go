// Package structure reads each scene for scene/sequel structural elements,
// derives pacing from the balance between them, and overlays a coarse
// position-based narrative-function label.
package structure

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"storyscope/internal/lexicon"
	"storyscope/internal/manuscript"
	"storyscope/internal/segment"
)

const maxIndicators = 10

var validate = validator.New()

// Pacing classifies a scene's action/reflection balance.
type Pacing string

const (
	PacingActionHeavy Pacing = "action-heavy"
	PacingBalanced    Pacing = "balanced"
	PacingReflective  Pacing = "reflective"
)

// ElementAnalysis reports one structural element's lexical evidence.
type ElementAnalysis struct {
	Detected   bool     `json:"detected"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators"`
	Summary    string   `json:"summary"`
}

// DisasterAnalysis is the disaster element plus its sub-classification.
// Type is one of yes-but, no, no-and-furthermore or unclear.
type DisasterAnalysis struct {
	ElementAnalysis
	Type string `json:"type"`
}

// SequelElements flags which sequel beats left lexical traces.
type SequelElements struct {
	Reaction bool `json:"reaction"`
	Dilemma  bool `json:"dilemma"`
	Decision bool `json:"decision"`
}

// SceneAnalysis is the structural read of a single scene.
type SceneAnalysis struct {
	SceneID          string           `json:"sceneId"`
	ChapterNumber    int              `json:"chapterNumber"`
	Position         float64          `json:"position"`
	WordCount        int              `json:"wordCount"`
	Goal             ElementAnalysis  `json:"goal"`
	Conflict         ElementAnalysis  `json:"conflict"`
	Disaster         DisasterAnalysis `json:"disaster"`
	SequelElements   SequelElements   `json:"sequelElements"`
	SceneSequelRatio float64          `json:"sceneSequelRatio"`
	Pacing           Pacing           `json:"pacing"`
	Function         string           `json:"function"`
	Issues           []string         `json:"issues"`
}

// Summary aggregates a report: mean element confidence across all scenes,
// a pacing histogram and the total issue count.
type Summary struct {
	AverageConfidence float64        `json:"averageConfidence"`
	PacingCounts      map[Pacing]int `json:"pacingCounts"`
	TotalIssues       int            `json:"totalIssues"`
}

// Report is the Structural Analyzer's complete result.
type Report struct {
	Scenes  []SceneAnalysis `json:"scenes"`
	Summary Summary         `json:"summary"`
}

// Options tune the analyzer. The zero value selects the defaults.
type Options struct {
	// Workers caps concurrent scene analysis. Zero picks one per CPU.
	Workers int `validate:"omitempty,min=1"`
	// Lexicons supplies the element vocabularies and disaster classifier.
	Lexicons *lexicon.Set `validate:"-"`
}

type matchers struct {
	elements map[string]*regexp.Regexp
	disaster []disasterTypeMatcher
}

type disasterTypeMatcher struct {
	typ string
	re  *regexp.Regexp
}

func newMatchers(lex *lexicon.Set) *matchers {
	m := &matchers{elements: make(map[string]*regexp.Regexp, len(lexicon.ElementKinds))}
	for _, kind := range lexicon.ElementKinds {
		m.elements[kind] = lexicon.CompilePhrases(lex.Structural.Elements[kind])
	}
	for _, g := range lex.Structural.DisasterTypes {
		m.disaster = append(m.disaster, disasterTypeMatcher{typ: g.Type, re: lexicon.CompilePhrases(g.Patterns)})
	}
	return m
}

// findIndicators returns the deduplicated, lowercased matches for one
// element, capped at maxIndicators.
func (m *matchers) findIndicators(kind, text string) []string {
	matches := m.elements[kind].FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		low := strings.ToLower(match)
		if _, dup := seen[low]; dup {
			continue
		}
		seen[low] = struct{}{}
		out = append(out, low)
		if len(out) == maxIndicators {
			break
		}
	}
	return out
}

// disasterType walks the ordered classifier groups; first match wins.
func (m *matchers) disasterType(text string) string {
	for _, g := range m.disaster {
		if g.re.MatchString(text) {
			return g.typ
		}
	}
	return "unclear"
}

// Analyze runs the structural read over every scene in seg. Scene order in
// the report matches document order regardless of worker count. Content
// never fails the analyzer; only a scene range that falls outside the
// manuscript is an input error.
func Analyze(doc *manuscript.Doc, seg *segment.Segmentation, opts Options) (*Report, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("structure options: %w", err)
	}
	if doc == nil || seg == nil {
		return nil, errors.New("structure: nil input")
	}
	lex := opts.Lexicons
	if lex == nil {
		lex = lexicon.Default()
	}

	type job struct {
		index   int
		chapter int
		scene   segment.Scene
	}
	var jobs []job
	for _, ch := range seg.Chapters {
		for _, sc := range ch.Scenes {
			if sc.StartLine < 1 || sc.EndLine > doc.LineCount() || sc.StartLine > sc.EndLine {
				return nil, fmt.Errorf("structure: scene %s: line range %d..%d does not fit a %d-line manuscript",
					sc.ID, sc.StartLine, sc.EndLine, doc.LineCount())
			}
			jobs = append(jobs, job{index: len(jobs), chapter: ch.Number, scene: sc})
		}
	}
	total := len(jobs)
	if total == 0 {
		return &Report{Scenes: []SceneAnalysis{}, Summary: Summary{PacingCounts: map[Pacing]int{}}}, nil
	}

	m := newMatchers(lex)
	out := make([]SceneAnalysis, total)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	if workers > total {
		workers = total
	}

	queue := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				out[j.index] = analyzeScene(doc, j.scene, j.chapter, j.index, total, m)
			}
		}()
	}
	for _, j := range jobs {
		queue <- j
	}
	close(queue)
	wg.Wait()

	return &Report{Scenes: out, Summary: summarize(out)}, nil
}

func analyzeScene(doc *manuscript.Doc, sc segment.Scene, chapterNum, index, total int, m *matchers) SceneAnalysis {
	text := doc.Range(sc.StartLine, sc.EndLine)
	wordCount := sc.WordCount
	if wordCount == 0 {
		wordCount = manuscript.WordCount(text)
	}

	goal := elementFor("goal", m.findIndicators("goal", text), wordCount)
	conflict := elementFor("conflict", m.findIndicators("conflict", text), wordCount)
	disasterEl := elementFor("disaster", m.findIndicators("disaster", text), wordCount)
	reaction := m.findIndicators("reaction", text)
	dilemma := m.findIndicators("dilemma", text)
	decision := m.findIndicators("decision", text)

	disaster := DisasterAnalysis{ElementAnalysis: disasterEl, Type: "unclear"}
	if disaster.Detected {
		disaster.Type = m.disasterType(text)
	}

	sceneScore := len(goal.Indicators) + len(conflict.Indicators) + len(disaster.Indicators)
	sequelScore := len(reaction) + len(dilemma) + len(decision)
	ratio := sceneSequelRatio(sceneScore, sequelScore)
	pacing := pacingFor(ratio)

	position := float64(index) / float64(total)
	function := functionFor(ruleInput{
		position:     position,
		goalConf:     goal.Confidence,
		conflictConf: conflict.Confidence,
		disaster:     disaster.Detected,
		dilemma:      len(dilemma) > 0,
		pacing:       pacing,
	})

	return SceneAnalysis{
		SceneID:       sc.ID,
		ChapterNumber: chapterNum,
		Position:      position,
		WordCount:     wordCount,
		Goal:          goal,
		Conflict:      conflict,
		Disaster:      disaster,
		SequelElements: SequelElements{
			Reaction: len(reaction) > 0,
			Dilemma:  len(dilemma) > 0,
			Decision: len(decision) > 0,
		},
		SceneSequelRatio: ratio,
		Pacing:           pacing,
		Function:         function,
		Issues:           detectIssues(goal, conflict, disaster, ratio, wordCount),
	}
}

func elementFor(kind string, indicators []string, wordCount int) ElementAnalysis {
	return ElementAnalysis{
		Detected:   len(indicators) > 0,
		Confidence: elementConfidence(len(indicators), wordCount),
		Indicators: indicators,
		Summary:    elementSummary(kind, indicators),
	}
}

func elementSummary(kind string, indicators []string) string {
	if len(indicators) == 0 {
		return fmt.Sprintf("no %s signal detected", kind)
	}
	shown := indicators
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return fmt.Sprintf("%s signals present (%s)", kind, strings.Join(shown, ", "))
}

func detectIssues(goal, conflict ElementAnalysis, disaster DisasterAnalysis, ratio float64, wordCount int) []string {
	var issues []string
	if !goal.Detected {
		issues = append(issues, "no clear goal detected")
	}
	if !conflict.Detected {
		issues = append(issues, "no conflict detected")
	}
	if !disaster.Detected && (goal.Detected || conflict.Detected) {
		issues = append(issues, "scene signals without a disaster turn")
	}
	if ratio > 0.85 {
		issues = append(issues, "relentless action: no sequel beats to let the scene breathe")
	}
	if ratio < 0.15 && wordCount > 500 {
		issues = append(issues, "long scene is almost entirely reflective")
	}
	return issues
}

func summarize(scenes []SceneAnalysis) Summary {
	s := Summary{PacingCounts: map[Pacing]int{}}
	if len(scenes) == 0 {
		return s
	}
	var confSum float64
	for _, sc := range scenes {
		confSum += (sc.Goal.Confidence + sc.Conflict.Confidence + sc.Disaster.Confidence) / 3
		s.PacingCounts[sc.Pacing]++
		s.TotalIssues += len(sc.Issues)
	}
	s.AverageConfidence = confSum / float64(len(scenes))
	return s
}
