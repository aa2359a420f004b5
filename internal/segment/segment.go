// Package segment splits raw manuscript text into an ordered tree of
// chapters and scenes addressed by 1-based line offsets. The split is a
// pure transformation: identical input and options always produce an
// identical tree.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"storyscope/internal/lexicon"
	"storyscope/internal/manuscript"
)

// FirstPersonPOV is the sentinel povCandidate for first-person narration.
const FirstPersonPOV = "[First Person]"

const (
	defaultBlankLineRun = 3
	noiseWordLimit      = 10
	openingPreviewChars = 150
)

var defaultHeadingPatterns = []string{
	`(?i)^(chapter|ch\.)\s+([0-9ivxlcdm]+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty)\b.*$`,
	`(?i)^(part|book|act)\s+([0-9ivxlcdm]+|one|two|three|four|five|six|seven|eight|nine|ten)\b.*$`,
	`(?i)^(prologue|epilogue|interlude)\b.*$`,
	`^[0-9]{1,3}\.?$`,
}

var defaultSceneBreakMarkers = []string{"***", "---", "#"}

var validate = validator.New()

// Scene is one contiguous narrative block within a chapter.
type Scene struct {
	ID           string  `json:"id"`
	StartLine    int     `json:"startLine"`
	EndLine      int     `json:"endLine"`
	WordCount    int     `json:"wordCount"`
	OpeningText  string  `json:"openingText"`
	POVCandidate *string `json:"povCandidate"`
}

// Chapter groups the scenes under one detected heading. Number is
// positional: the third heading found is chapter 3 whatever its text says.
type Chapter struct {
	Number    int     `json:"number"`
	Title     string  `json:"title"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	WordCount int     `json:"wordCount"`
	Scenes    []Scene `json:"scenes"`
}

// Metadata summarizes a segmentation.
type Metadata struct {
	TotalChapters int `json:"totalChapters"`
	TotalScenes   int `json:"totalScenes"`
}

// Segmentation is the segmenter's complete, immutable result.
type Segmentation struct {
	Title      string    `json:"title"`
	TotalWords int       `json:"totalWords"`
	Chapters   []Chapter `json:"chapters"`
	Metadata   Metadata  `json:"metadata"`
}

// SceneByID returns the scene with the given id and its chapter number.
func (s *Segmentation) SceneByID(id string) (*Scene, int) {
	for ci := range s.Chapters {
		for si := range s.Chapters[ci].Scenes {
			if s.Chapters[ci].Scenes[si].ID == id {
				return &s.Chapters[ci].Scenes[si], s.Chapters[ci].Number
			}
		}
	}
	return nil, 0
}

// AllScenes returns every scene in document order.
func (s *Segmentation) AllScenes() []Scene {
	out := make([]Scene, 0, s.Metadata.TotalScenes)
	for _, ch := range s.Chapters {
		out = append(out, ch.Scenes...)
	}
	return out
}

// Options tune the segmenter. The zero value selects all defaults.
type Options struct {
	// Title overrides the document title in the result.
	Title string `validate:"-"`
	// HeadingPatterns are regular expressions matched against trimmed
	// lines, in order; the first match wins.
	HeadingPatterns []string `validate:"omitempty,dive,required"`
	// SceneBreakMarkers are literal break lines. A marker made of one
	// repeated character also matches longer runs of that character.
	SceneBreakMarkers []string `validate:"omitempty,dive,required"`
	// BlankLineRun is the number of consecutive blank lines that implies a
	// scene break.
	BlankLineRun int `validate:"omitempty,min=1"`
	// Lexicons supplies the name tables for the povCandidate guess.
	Lexicons *lexicon.Set `validate:"-"`
}

type settings struct {
	title    string
	headings []*regexp.Regexp
	markers  []string
	blankRun int

	firstPerson map[string]struct{}
	stop        map[string]struct{}
	given       map[string]struct{}
	cognition   *regexp.Regexp
	interiority *regexp.Regexp
}

func (o Options) resolve(doc *manuscript.Doc) (*settings, error) {
	if err := validate.Struct(o); err != nil {
		return nil, fmt.Errorf("segmenter options: %w", err)
	}
	lex := o.Lexicons
	if lex == nil {
		lex = lexicon.Default()
	}
	s := &settings{
		title:    o.Title,
		markers:  defaultSceneBreakMarkers,
		blankRun: defaultBlankLineRun,
	}
	if s.title == "" {
		s.title = doc.Title
	}
	if s.title == "" {
		s.title = "Untitled Manuscript"
	}
	if o.BlankLineRun > 0 {
		s.blankRun = o.BlankLineRun
	}
	if len(o.SceneBreakMarkers) > 0 {
		s.markers = o.SceneBreakMarkers
	}
	patterns := o.HeadingPatterns
	if len(patterns) == 0 {
		patterns = defaultHeadingPatterns
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("segmenter options: heading pattern %q: %w", p, err)
		}
		s.headings = append(s.headings, re)
	}
	s.firstPerson = lexicon.FoldSet(lex.Names.FirstPerson)
	s.stop = lexicon.ToSet(lex.Names.Stop)
	s.given = lexicon.ToSet(lex.Names.Given)
	s.cognition = lexicon.CompileAdjacent(lex.Names.Cognition)
	s.interiority = lexicon.CompilePossessive(lex.Names.Interiority)
	return s, nil
}

// Split segments doc into chapters and scenes.
func Split(doc *manuscript.Doc, opts Options) (*Segmentation, error) {
	cfg, err := opts.resolve(doc)
	if err != nil {
		return nil, err
	}

	marks := findHeadings(doc.Lines(), cfg.headings)
	spans := chapterSpans(marks, doc.LineCount())

	chapters := make([]Chapter, 0, len(spans))
	totalScenes := 0
	for i, sp := range spans {
		ch := Chapter{
			Number:    i + 1,
			Title:     sp.title,
			StartLine: sp.start,
			EndLine:   sp.end,
			WordCount: manuscript.WordCount(doc.Range(sp.start, sp.end)),
		}
		contentStart := sp.start
		if sp.heading {
			contentStart++
		}
		ch.Scenes = splitScenes(doc, ch.Number, contentStart, sp.end, cfg)
		totalScenes += len(ch.Scenes)
		chapters = append(chapters, ch)
	}

	return &Segmentation{
		Title:      cfg.title,
		TotalWords: doc.WordCount(),
		Chapters:   chapters,
		Metadata:   Metadata{TotalChapters: len(chapters), TotalScenes: totalScenes},
	}, nil
}

type headingMark struct {
	line int
	text string
}

func findHeadings(lines []string, patterns []*regexp.Regexp) []headingMark {
	var marks []headingMark
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		for _, p := range patterns {
			if p.MatchString(trimmed) {
				marks = append(marks, headingMark{line: i + 1, text: trimmed})
				break
			}
		}
	}
	return marks
}

type chapterSpan struct {
	start, end int
	title      string
	heading    bool
}

// chapterSpans turns heading marks into chapter line ranges. Each chapter
// runs from its heading line to the line before the next heading; the last
// chapter runs to end-of-file. Without any heading the whole document is a
// single chapter titled "Full Text".
func chapterSpans(marks []headingMark, lineCount int) []chapterSpan {
	if len(marks) == 0 {
		return []chapterSpan{{start: 1, end: lineCount, title: "Full Text"}}
	}
	spans := make([]chapterSpan, 0, len(marks))
	for i, m := range marks {
		end := lineCount
		if i+1 < len(marks) {
			end = marks[i+1].line - 1
		}
		spans = append(spans, chapterSpan{start: m.line, end: end, title: m.text, heading: true})
	}
	return spans
}

func splitScenes(doc *manuscript.Doc, chapterNum, start, end int, cfg *settings) []Scene {
	type span struct{ start, end int }
	var spans []span
	cur := 0

	flush := func(endLine int) {
		for endLine >= cur && strings.TrimSpace(doc.Line(endLine)) == "" {
			endLine--
		}
		if cur != 0 && endLine >= cur {
			spans = append(spans, span{cur, endLine})
		}
		cur = 0
	}

	line := start
	for line <= end {
		trimmed := strings.TrimSpace(doc.Line(line))
		if trimmed == "" {
			run := 1
			for line+run <= end && strings.TrimSpace(doc.Line(line+run)) == "" {
				run++
			}
			if run >= cfg.blankRun {
				flush(line - 1)
			}
			line += run
			continue
		}
		if isSceneBreak(trimmed, cfg.markers) {
			flush(line - 1)
			line++
			continue
		}
		if cur == 0 {
			cur = line
		}
		line++
	}
	flush(end)

	scenes := make([]Scene, 0, len(spans))
	for _, sp := range spans {
		text := doc.Range(sp.start, sp.end)
		wc := manuscript.WordCount(text)
		if wc <= noiseWordLimit {
			continue
		}
		scenes = append(scenes, buildScene(doc, chapterNum, len(scenes)+1, sp.start, sp.end, wc, cfg))
	}
	if len(scenes) == 0 {
		// a chapter always carries at least one scene
		s, e := start, end
		if s > e {
			s = e
		}
		for s < e && strings.TrimSpace(doc.Line(s)) == "" {
			s++
		}
		for e > s && strings.TrimSpace(doc.Line(e)) == "" {
			e--
		}
		text := doc.Range(s, e)
		scenes = append(scenes, buildScene(doc, chapterNum, 1, s, e, manuscript.WordCount(text), cfg))
	}
	return scenes
}

func buildScene(doc *manuscript.Doc, chapterNum, index, start, end, wordCount int, cfg *settings) Scene {
	text := doc.Range(start, end)
	return Scene{
		ID:           fmt.Sprintf("ch%d-s%d", chapterNum, index),
		StartLine:    start,
		EndLine:      end,
		WordCount:    wordCount,
		OpeningText:  manuscript.Preview(text, openingPreviewChars),
		POVCandidate: cfg.povCandidate(firstParagraph(text)),
	}
}

func firstParagraph(text string) string {
	paras := manuscript.Paragraphs(text)
	if len(paras) == 0 {
		return ""
	}
	return paras[0]
}

func isSceneBreak(trimmed string, markers []string) bool {
	collapsed := stripSpaces(trimmed)
	if collapsed == "" {
		return false
	}
	for _, m := range markers {
		mm := stripSpaces(m)
		if mm == "" {
			continue
		}
		if collapsed == mm || isRunOf(collapsed, mm) {
			return true
		}
	}
	return false
}

// isRunOf reports whether s is a run of the marker's single repeated
// character, at least as long as the marker itself.
func isRunOf(s, marker string) bool {
	c := marker[0]
	for i := 1; i < len(marker); i++ {
		if marker[i] != c {
			return false
		}
	}
	if len(s) < len(marker) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
}
