// Package characters identifies candidate character names, designates a
// protagonist by point-of-view prominence, and extracts evidence for a
// Lie/Want/Need/Ghost/Truth/Transformation arc model.
package characters

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"storyscope/internal/lexicon"
	"storyscope/internal/manuscript"
	"storyscope/internal/segment"
)

const (
	minMentions      = 5
	maxArcExcerpts   = 3
	maxKeyScenes     = 10
	defaultSecondary = 5
	excerptWords     = 18
)

// Arc classifications. The rules are a best-effort lexical signal, not a
// literary judgment.
const (
	ArcPositive = "positive"
	ArcNegative = "negative"
	ArcFlat     = "flat"
	ArcUnclear  = "unclear"
)

var validate = validator.New()

var properNamePattern = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)

// ArcComponents holds one short excerpt per arc category, nil where no
// sentence matched. LieEvidence keeps every lie excerpt, capped.
type ArcComponents struct {
	Lie             *string  `json:"lie"`
	Want            *string  `json:"want"`
	Need            *string  `json:"need"`
	Ghost           *string  `json:"ghost"`
	TruthAcceptance *string  `json:"truthAcceptance"`
	Transformation  *string  `json:"transformation"`
	LieEvidence     []string `json:"lieEvidence"`
}

// Info is the published record for one tracked character.
type Info struct {
	Name            string        `json:"name"`
	FirstAppearance string        `json:"firstAppearance"`
	POVScenes       int           `json:"povScenes"`
	Mentions        int           `json:"mentions"`
	ArcType         string        `json:"arcType"`
	ArcComponents   ArcComponents `json:"arcComponents"`
	KeyScenes       []string      `json:"keyScenes"`
	Role            string        `json:"role"`
}

// Relation is a placeholder web edge; relationship-type inference is not
// implemented.
type Relation struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
}

// Report is the tracker's complete output. Protagonist is nil when no
// name clears the mention threshold, which is a valid result rather than
// an error.
type Report struct {
	Protagonist         *Info      `json:"protagonist"`
	SecondaryCharacters []Info     `json:"secondaryCharacters"`
	CharacterWeb        []Relation `json:"characterWeb"`
}

// Options tunes tracking. The zero value asks for the defaults.
type Options struct {
	// Protagonist forces a candidate to rank 1. Unknown names are
	// ignored and ranking decides as usual.
	Protagonist string
	// MaxSecondary caps the secondary character list.
	MaxSecondary int `validate:"omitempty,min=1"`
	// Lexicons overrides the embedded vocabulary set.
	Lexicons *lexicon.Set `validate:"-"`
}

type candidate struct {
	name      string
	mentions  int
	povScenes int
	povScore  int
	first     string
	score     int
}

type tracker struct {
	stop        map[string]struct{}
	arcs        map[string]*regexp.Regexp
	keyScene    *regexp.Regexp
	cognition   *regexp.Regexp
	interiority *regexp.Regexp
}

func newTracker(lex *lexicon.Set) *tracker {
	arcs := make(map[string]*regexp.Regexp, len(lexicon.ArcKinds))
	for _, kind := range lexicon.ArcKinds {
		arcs[kind] = lexicon.CompilePhrases(lex.Arcs[kind])
	}
	pivotal := append([]string{}, lex.Arcs["lie"]...)
	pivotal = append(pivotal, lex.Arcs["truth"]...)
	pivotal = append(pivotal, lex.Arcs["transformation"]...)
	return &tracker{
		stop:        lexicon.ToSet(lex.Names.Stop),
		arcs:        arcs,
		keyScene:    lexicon.CompilePhrases(pivotal),
		cognition:   lexicon.CompileAdjacent(lex.Names.Cognition),
		interiority: lexicon.CompilePossessive(lex.Names.Interiority),
	}
}

// Track scores every candidate name in doc and reports the protagonist,
// ranked secondary characters, and a placeholder character web.
func Track(doc *manuscript.Doc, seg *segment.Segmentation, opts Options) (*Report, error) {
	if doc == nil {
		return nil, errors.New("characters: manuscript is required")
	}
	if seg == nil {
		return nil, errors.New("characters: segmentation is required")
	}
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("characters: invalid options: %w", err)
	}
	for _, ch := range seg.Chapters {
		for _, sc := range ch.Scenes {
			if sc.StartLine < 1 || sc.EndLine < sc.StartLine || sc.EndLine > doc.LineCount() {
				return nil, fmt.Errorf("characters: scene %s line range %d..%d does not fit a %d-line manuscript",
					sc.ID, sc.StartLine, sc.EndLine, doc.LineCount())
			}
		}
	}
	lex := opts.Lexicons
	if lex == nil {
		lex = lexicon.Default()
	}
	maxSecondary := opts.MaxSecondary
	if maxSecondary == 0 {
		maxSecondary = defaultSecondary
	}

	tr := newTracker(lex)
	ranked := tr.rankCandidates(doc, seg)
	if opts.Protagonist != "" {
		ranked = promote(ranked, opts.Protagonist)
	}
	if len(ranked) == 0 {
		return &Report{SecondaryCharacters: []Info{}, CharacterWeb: []Relation{}}, nil
	}

	sentences := manuscript.Sentences(doc.Text())
	protag := tr.buildProtagonist(doc, seg, ranked[0], sentences)

	secondaries := make([]Info, 0, maxSecondary)
	web := make([]Relation, 0, maxSecondary)
	for _, c := range ranked[1:] {
		if len(secondaries) >= maxSecondary {
			break
		}
		sec := tr.buildSecondary(c, sentences, protag.Mentions)
		secondaries = append(secondaries, sec)
		web = append(web, Relation{Source: protag.Name, Target: sec.Name, Relation: "unspecified"})
	}

	return &Report{
		Protagonist:         &protag,
		SecondaryCharacters: secondaries,
		CharacterWeb:        web,
	}, nil
}

// rankCandidates counts capitalized tokens across the whole manuscript,
// folds in per-scene POV attributions and cognition-adjacency counts, and
// returns the surviving names ordered by score.
func (tr *tracker) rankCandidates(doc *manuscript.Doc, seg *segment.Segmentation) []candidate {
	text := doc.Text()

	mentions := map[string]int{}
	for _, name := range properNamePattern.FindAllString(text, -1) {
		if _, stopped := tr.stop[name]; stopped {
			continue
		}
		mentions[name]++
	}

	povScenes := map[string]int{}
	first := map[string]string{}
	for _, ch := range seg.Chapters {
		for _, sc := range ch.Scenes {
			if sc.POVCandidate != nil && *sc.POVCandidate != segment.FirstPersonPOV {
				povScenes[*sc.POVCandidate]++
			}
			for _, name := range properNamePattern.FindAllString(doc.Range(sc.StartLine, sc.EndLine), -1) {
				if _, ok := first[name]; !ok {
					first[name] = sc.ID
				}
			}
		}
	}

	povScore := map[string]int{}
	for _, re := range []*regexp.Regexp{tr.cognition, tr.interiority} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			povScore[m[1]]++
		}
	}

	out := make([]candidate, 0, len(mentions))
	for name, count := range mentions {
		if count < minMentions {
			continue
		}
		c := candidate{
			name:      name,
			mentions:  count,
			povScenes: povScenes[name],
			povScore:  povScore[name],
			first:     first[name],
		}
		c.score = c.povScenes*10 + c.povScore*2 + c.mentions
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].name < out[j].name
	})
	return out
}

func promote(ranked []candidate, name string) []candidate {
	for i, c := range ranked {
		if c.name == name && i > 0 {
			promoted := append([]candidate{c}, ranked[:i]...)
			return append(promoted, ranked[i+1:]...)
		}
	}
	return ranked
}

func (tr *tracker) buildProtagonist(doc *manuscript.Doc, seg *segment.Segmentation, c candidate, sentences []string) Info {
	nameRe := compileName(c.name)
	own := filterSentences(sentences, nameRe)
	evidence := tr.arcEvidence(own, lexicon.ArcKinds)
	comps := componentsFrom(evidence)
	return Info{
		Name:            c.name,
		FirstAppearance: c.first,
		POVScenes:       c.povScenes,
		Mentions:        c.mentions,
		ArcType:         classifyArc(comps),
		ArcComponents:   comps,
		KeyScenes:       tr.findKeyScenes(doc, seg, c.name, nameRe),
		Role:            "Protagonist",
	}
}

// buildSecondary runs the lighter extraction: lie evidence only, no key
// scene search.
func (tr *tracker) buildSecondary(c candidate, sentences []string, protagMentions int) Info {
	nameRe := compileName(c.name)
	evidence := tr.arcEvidence(filterSentences(sentences, nameRe), []string{"lie"})
	return Info{
		Name:            c.name,
		FirstAppearance: c.first,
		POVScenes:       c.povScenes,
		Mentions:        c.mentions,
		ArcType:         ArcUnclear,
		ArcComponents:   componentsFrom(evidence),
		KeyScenes:       []string{},
		Role:            roleFor(c.povScenes, c.mentions, protagMentions),
	}
}

func (tr *tracker) arcEvidence(sentences []string, kinds []string) map[string][]string {
	out := make(map[string][]string, len(kinds))
	for _, s := range sentences {
		for _, kind := range kinds {
			if len(out[kind]) >= maxArcExcerpts {
				continue
			}
			if tr.arcs[kind].MatchString(s) {
				out[kind] = append(out[kind], firstWords(s, excerptWords))
			}
		}
	}
	return out
}

// findKeyScenes keeps scenes where the character holds the point of view
// or is mentioned heavily, and the scene text carries at least one
// lie/truth/transformation signal.
func (tr *tracker) findKeyScenes(doc *manuscript.Doc, seg *segment.Segmentation, name string, nameRe *regexp.Regexp) []string {
	out := []string{}
	for _, ch := range seg.Chapters {
		for _, sc := range ch.Scenes {
			if len(out) >= maxKeyScenes {
				return out
			}
			text := doc.Range(sc.StartLine, sc.EndLine)
			pov := sc.POVCandidate != nil && *sc.POVCandidate == name
			if !pov && len(nameRe.FindAllString(text, -1)) <= minMentions {
				continue
			}
			if !tr.keyScene.MatchString(text) {
				continue
			}
			out = append(out, sc.ID)
		}
	}
	return out
}

func componentsFrom(evidence map[string][]string) ArcComponents {
	comps := ArcComponents{LieEvidence: []string{}}
	if v := evidence["lie"]; len(v) > 0 {
		comps.Lie = &v[0]
		comps.LieEvidence = v
	}
	if v := evidence["want"]; len(v) > 0 {
		comps.Want = &v[0]
	}
	if v := evidence["need"]; len(v) > 0 {
		comps.Need = &v[0]
	}
	if v := evidence["ghost"]; len(v) > 0 {
		comps.Ghost = &v[0]
	}
	if v := evidence["truth"]; len(v) > 0 {
		comps.TruthAcceptance = &v[0]
	}
	if v := evidence["transformation"]; len(v) > 0 {
		comps.Transformation = &v[0]
	}
	return comps
}

// classifyArc applies the fixed arc rules: all of lie, truth, and
// transformation make a positive arc; a lie never answered by truth makes
// a negative one; transformation without a lie is flat.
func classifyArc(comps ArcComponents) string {
	switch {
	case comps.Lie != nil && comps.TruthAcceptance != nil && comps.Transformation != nil:
		return ArcPositive
	case comps.Lie != nil && comps.TruthAcceptance == nil:
		return ArcNegative
	case comps.Lie == nil && comps.Transformation != nil:
		return ArcFlat
	default:
		return ArcUnclear
	}
}

func roleFor(povScenes, mentions, protagMentions int) string {
	switch {
	case povScenes >= 2:
		return "Major viewpoint character"
	case protagMentions > 0 && float64(mentions) >= 0.6*float64(protagMentions):
		return "Mentor figure"
	case mentions >= 15:
		return "Supporting character"
	default:
		return "Minor character"
	}
}

func compileName(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
}

func filterSentences(sentences []string, nameRe *regexp.Regexp) []string {
	out := make([]string, 0, 16)
	for _, s := range sentences {
		if nameRe.MatchString(s) {
			out = append(out, s)
		}
	}
	return out
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
