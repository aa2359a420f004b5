// Package lexicon holds the fixed word tables the analysis stages match
// against. The tables are data, not logic: defaults are embedded JSON and a
// YAML override file can retune individual lists without code changes.
package lexicon

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/structural.json
var structuralJSON []byte

//go:embed data/genres.json
var genresJSON []byte

//go:embed data/arcs.json
var arcsJSON []byte

//go:embed data/names.json
var namesJSON []byte

// ElementKinds lists the scene/sequel element vocabularies in report order.
var ElementKinds = []string{"goal", "conflict", "disaster", "reaction", "dilemma", "decision"}

// ArcKinds lists the character-arc evidence categories in report order.
var ArcKinds = []string{"lie", "want", "need", "ghost", "truth", "transformation"}

// DisasterTypeNames is the fixed classifier taxonomy, in evaluation order.
// "unclear" is the fallback and carries no pattern group.
var DisasterTypeNames = []string{"yes-but", "no", "no-and-furthermore"}

// DisasterGroup is one ordered pattern group of the disaster classifier.
type DisasterGroup struct {
	Type     string   `json:"type" yaml:"type"`
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// Structural holds the scene/sequel element vocabularies and the ordered
// disaster-type classifier groups.
type Structural struct {
	Elements      map[string][]string `json:"elements" yaml:"elements"`
	DisasterTypes []DisasterGroup     `json:"disasterTypes" yaml:"disasterTypes"`
}

// KeyMoment is one expected beat of a genre template. ExpectedPosition is a
// fraction of the manuscript in [0,1].
type KeyMoment struct {
	Type                string  `json:"type" yaml:"type"`
	ExpectedPosition    float64 `json:"expectedPosition" yaml:"expectedPosition"`
	EmotionalExperience string  `json:"emotionalExperience" yaml:"emotionalExperience"`
	StoryFunction       string  `json:"storyFunction" yaml:"storyFunction"`
}

// Genre is one lexicon of the fixed genre taxonomy.
type Genre struct {
	Name       string      `json:"name" yaml:"name"`
	Keywords   []string    `json:"keywords" yaml:"keywords"`
	KeyMoments []KeyMoment `json:"keyMoments" yaml:"keyMoments"`
}

// Names carries the name-related word lists shared by the segmenter and the
// character tracker.
type Names struct {
	Given       []string `json:"given" yaml:"given"`
	Stop        []string `json:"stop" yaml:"stop"`
	Cognition   []string `json:"cognition" yaml:"cognition"`
	Interiority []string `json:"interiority" yaml:"interiority"`
	FirstPerson []string `json:"firstPerson" yaml:"firstPerson"`
}

// Set bundles every lexicon table the stages consume. A Set is read-only
// once loaded; stages compile their own matchers from it.
type Set struct {
	Structural Structural
	Genres     []Genre
	Arcs       map[string][]string
	Names      Names
}

var defaultSet = mustParseDefaults()

// Default returns the embedded tables. The returned Set is shared; callers
// must not modify it.
func Default() *Set { return defaultSet }

func mustParseDefaults() *Set {
	s, err := parseDefaults()
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded data: %v", err))
	}
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("lexicon: embedded data: %v", err))
	}
	return s
}

func parseDefaults() (*Set, error) {
	var s Set
	if err := json.Unmarshal(structuralJSON, &s.Structural); err != nil {
		return nil, fmt.Errorf("structural.json: %w", err)
	}
	var wrap struct {
		Genres []Genre `json:"genres"`
	}
	if err := json.Unmarshal(genresJSON, &wrap); err != nil {
		return nil, fmt.Errorf("genres.json: %w", err)
	}
	s.Genres = wrap.Genres
	if err := json.Unmarshal(arcsJSON, &s.Arcs); err != nil {
		return nil, fmt.Errorf("arcs.json: %w", err)
	}
	if err := json.Unmarshal(namesJSON, &s.Names); err != nil {
		return nil, fmt.Errorf("names.json: %w", err)
	}
	return &s, nil
}

// Override is the shape of an optional YAML lexicon override file. Lists
// that are present replace the corresponding default list; everything else
// keeps its default. The taxonomies themselves are fixed: overrides cannot
// add or remove elements, genres, arc categories or disaster types.
type Override struct {
	Structural *Structural         `yaml:"structural"`
	Genres     []Genre             `yaml:"genres"`
	Arcs       map[string][]string `yaml:"arcs"`
	Names      *Names              `yaml:"names"`
}

// Load returns the default tables merged with the YAML override file at
// path. An empty path returns the defaults unchanged. Any unknown key or
// empty replacement list is a configuration error.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon override: %w", err)
	}
	var ov Override
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return nil, fmt.Errorf("parse lexicon override %s: %w", path, err)
	}
	merged, err := Default().apply(&ov)
	if err != nil {
		return nil, fmt.Errorf("lexicon override %s: %w", path, err)
	}
	return merged, nil
}

func (s *Set) apply(ov *Override) (*Set, error) {
	out := s.clone()
	if ov.Structural != nil {
		for kind, list := range ov.Structural.Elements {
			if _, ok := out.Structural.Elements[kind]; !ok {
				return nil, fmt.Errorf("unknown structural element %q (known: %s)", kind, strings.Join(ElementKinds, ", "))
			}
			if len(list) == 0 {
				return nil, fmt.Errorf("structural element %q: empty pattern list", kind)
			}
			out.Structural.Elements[kind] = copyStrings(list)
		}
		if len(ov.Structural.DisasterTypes) > 0 {
			out.Structural.DisasterTypes = make([]DisasterGroup, len(ov.Structural.DisasterTypes))
			for i, g := range ov.Structural.DisasterTypes {
				out.Structural.DisasterTypes[i] = DisasterGroup{Type: g.Type, Patterns: copyStrings(g.Patterns)}
			}
		}
	}
	for _, g := range ov.Genres {
		target := out.GenreByName(g.Name)
		if target == nil {
			return nil, fmt.Errorf("unknown genre %q: the taxonomy is fixed", g.Name)
		}
		if len(g.Keywords) > 0 {
			target.Keywords = copyStrings(g.Keywords)
		}
		if len(g.KeyMoments) > 0 {
			target.KeyMoments = append([]KeyMoment(nil), g.KeyMoments...)
		}
	}
	for kind, list := range ov.Arcs {
		if _, ok := out.Arcs[kind]; !ok {
			return nil, fmt.Errorf("unknown arc category %q (known: %s)", kind, strings.Join(ArcKinds, ", "))
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("arc category %q: empty pattern list", kind)
		}
		out.Arcs[kind] = copyStrings(list)
	}
	if ov.Names != nil {
		if ov.Names.Given != nil {
			out.Names.Given = copyStrings(ov.Names.Given)
		}
		if ov.Names.Stop != nil {
			out.Names.Stop = copyStrings(ov.Names.Stop)
		}
		if ov.Names.Cognition != nil {
			out.Names.Cognition = copyStrings(ov.Names.Cognition)
		}
		if ov.Names.Interiority != nil {
			out.Names.Interiority = copyStrings(ov.Names.Interiority)
		}
		if ov.Names.FirstPerson != nil {
			out.Names.FirstPerson = copyStrings(ov.Names.FirstPerson)
		}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks the taxonomy shape: all six elements, all six arc
// categories, twelve genres with five-beat templates, known disaster types
// and no empty lists.
func (s *Set) Validate() error {
	if len(s.Structural.Elements) != len(ElementKinds) {
		return fmt.Errorf("expected %d structural elements, have %d", len(ElementKinds), len(s.Structural.Elements))
	}
	for _, kind := range ElementKinds {
		if len(s.Structural.Elements[kind]) == 0 {
			return fmt.Errorf("structural element %q: empty pattern list", kind)
		}
	}
	known := make(map[string]struct{}, len(DisasterTypeNames))
	for _, n := range DisasterTypeNames {
		known[n] = struct{}{}
	}
	for _, g := range s.Structural.DisasterTypes {
		if _, ok := known[g.Type]; !ok {
			return fmt.Errorf("unknown disaster type %q (known: %s)", g.Type, strings.Join(DisasterTypeNames, ", "))
		}
		if len(g.Patterns) == 0 {
			return fmt.Errorf("disaster type %q: empty pattern list", g.Type)
		}
	}
	if len(s.Genres) != 12 {
		return fmt.Errorf("expected 12 genres, have %d", len(s.Genres))
	}
	for _, g := range s.Genres {
		if len(g.Keywords) == 0 {
			return fmt.Errorf("genre %q: empty keyword list", g.Name)
		}
		if len(g.KeyMoments) != 5 {
			return fmt.Errorf("genre %q: expected 5 key moments, have %d", g.Name, len(g.KeyMoments))
		}
	}
	if len(s.Arcs) != len(ArcKinds) {
		return fmt.Errorf("expected %d arc categories, have %d", len(ArcKinds), len(s.Arcs))
	}
	for _, kind := range ArcKinds {
		if len(s.Arcs[kind]) == 0 {
			return fmt.Errorf("arc category %q: empty pattern list", kind)
		}
	}
	for name, list := range map[string][]string{
		"given":       s.Names.Given,
		"stop":        s.Names.Stop,
		"cognition":   s.Names.Cognition,
		"interiority": s.Names.Interiority,
		"firstPerson": s.Names.FirstPerson,
	} {
		if len(list) == 0 {
			return fmt.Errorf("name list %q: empty", name)
		}
	}
	return nil
}

// GenreByName returns the genre entry with the given name, or nil.
func (s *Set) GenreByName(name string) *Genre {
	for i := range s.Genres {
		if s.Genres[i].Name == name {
			return &s.Genres[i]
		}
	}
	return nil
}

func (s *Set) clone() *Set {
	out := &Set{
		Structural: Structural{
			Elements:      make(map[string][]string, len(s.Structural.Elements)),
			DisasterTypes: make([]DisasterGroup, len(s.Structural.DisasterTypes)),
		},
		Genres: make([]Genre, len(s.Genres)),
		Arcs:   make(map[string][]string, len(s.Arcs)),
		Names: Names{
			Given:       copyStrings(s.Names.Given),
			Stop:        copyStrings(s.Names.Stop),
			Cognition:   copyStrings(s.Names.Cognition),
			Interiority: copyStrings(s.Names.Interiority),
			FirstPerson: copyStrings(s.Names.FirstPerson),
		},
	}
	for kind, list := range s.Structural.Elements {
		out.Structural.Elements[kind] = copyStrings(list)
	}
	for i, g := range s.Structural.DisasterTypes {
		out.Structural.DisasterTypes[i] = DisasterGroup{Type: g.Type, Patterns: copyStrings(g.Patterns)}
	}
	for i, g := range s.Genres {
		out.Genres[i] = Genre{
			Name:       g.Name,
			Keywords:   copyStrings(g.Keywords),
			KeyMoments: append([]KeyMoment(nil), g.KeyMoments...),
		}
	}
	for kind, list := range s.Arcs {
		out.Arcs[kind] = copyStrings(list)
	}
	return out
}

func copyStrings(s []string) []string {
	return append([]string(nil), s...)
}

// CompilePhrases builds one case-insensitive matcher for a list of words or
// phrases, each bounded at word edges. Longer phrases are tried first so a
// multi-word phrase wins over its own prefix.
func CompilePhrases(phrases []string) *regexp.Regexp {
	quoted := quoteWords(phrases)
	if len(quoted) == 0 {
		// never matches
		return regexp.MustCompile(`a^`)
	}
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// CompileAdjacent matches a capitalized word immediately before one of
// verbs, e.g. "Maria thought". The name lands in capture group 1.
func CompileAdjacent(verbs []string) *regexp.Regexp {
	quoted := quoteWords(verbs)
	if len(quoted) == 0 {
		return regexp.MustCompile(`a^`)
	}
	return regexp.MustCompile(`\b([A-Z][a-z]+)\s+(?:` + strings.Join(quoted, "|") + `)\b`)
}

// CompilePossessive matches possessive interiority such as "Maria's
// heart". The name lands in capture group 1.
func CompilePossessive(nouns []string) *regexp.Regexp {
	quoted := quoteWords(nouns)
	if len(quoted) == 0 {
		return regexp.MustCompile(`a^`)
	}
	return regexp.MustCompile(`\b([A-Z][a-z]+)(?:'|’)s\s+(?:` + strings.Join(quoted, "|") + `)\b`)
}

func quoteWords(words []string) []string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	return quoted
}

// ToSet folds a word list into an exact-match lookup set.
func ToSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// FoldSet folds a word list into a lowercase lookup set.
func FoldSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
