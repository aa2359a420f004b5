// Package genre scores a manuscript sample against fixed genre
// vocabularies and emits a primary/secondary classification plus the
// expected key-moment template for the winning genre.
package genre

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"storyscope/internal/lexicon"
	"storyscope/internal/manuscript"
)

// DefaultGenre is reported when no vocabulary matches anything, so the
// result is always usable downstream.
const DefaultGenre = "drama"

const (
	defaultSampleSize = 30
	minParagraphChars = 100
	maxIndicators     = 10
	strongSignal      = 10
)

var validate = validator.New()

// Evidence records how often one genre vocabulary matched the sample.
type Evidence struct {
	Count      int      `json:"count"`
	Indicators []string `json:"indicators"`
}

// KeyMoment is one expected emotional beat for the detected genre.
// FoundAt and FoundScene stay nil here: correlating beats with actual
// scenes is a separate matching step.
type KeyMoment struct {
	Type                string  `json:"type"`
	ExpectedPosition    float64 `json:"expectedPosition"`
	EmotionalExperience string  `json:"emotionalExperience"`
	StoryFunction       string  `json:"storyFunction"`
	FoundAt             *int    `json:"foundAt"`
	FoundScene          *string `json:"foundScene"`
}

// Result is the complete genre classification for one manuscript.
type Result struct {
	PrimaryGenre       string              `json:"primaryGenre"`
	PrimaryConfidence  float64             `json:"primaryConfidence"`
	SecondaryGenres    []string            `json:"secondaryGenres"`
	Evidence           map[string]Evidence `json:"evidence"`
	ExpectedKeyMoments []KeyMoment         `json:"expectedKeyMoments"`
	SampledParagraphs  int                 `json:"sampledParagraphs"`
}

// Options tunes detection. The zero value asks for the defaults.
type Options struct {
	// SampleSize caps how many paragraphs are scored. The sample is
	// split across the beginning, middle, and end of the document, so
	// values below three are rejected.
	SampleSize int `validate:"omitempty,min=3"`
	// Lexicons overrides the embedded vocabulary set.
	Lexicons *lexicon.Set `validate:"-"`
}

type genreScore struct {
	name       string
	count      int
	indicators []string
}

// Detect samples doc and scores it against every genre vocabulary.
func Detect(doc *manuscript.Doc, opts Options) (*Result, error) {
	if doc == nil {
		return nil, errors.New("genre: manuscript is required")
	}
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("genre: invalid options: %w", err)
	}
	size := opts.SampleSize
	if size == 0 {
		size = defaultSampleSize
	}
	lex := opts.Lexicons
	if lex == nil {
		lex = lexicon.Default()
	}

	sample, sampled := buildSample(doc.Text(), size)
	scores := scoreSample(sample, lex)
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].count != scores[j].count {
			return scores[i].count > scores[j].count
		}
		return scores[i].name < scores[j].name
	})

	total := 0
	evidence := make(map[string]Evidence)
	for _, s := range scores {
		total += s.count
		if s.count > 0 {
			evidence[s.name] = Evidence{Count: s.count, Indicators: s.indicators}
		}
	}

	primary := DefaultGenre
	confidence := 0.0
	secondaries := []string{}
	if total > 0 {
		top := scores[0]
		primary = top.name
		confidence = primaryConfidence(top.count, total)
		for _, s := range scores[1:min(4, len(scores))] {
			if float64(s.count) > 0.3*float64(top.count) {
				secondaries = append(secondaries, s.name)
			}
		}
	}

	moments := []KeyMoment{}
	if g := lex.GenreByName(primary); g != nil {
		moments = make([]KeyMoment, 0, len(g.KeyMoments))
		for _, km := range g.KeyMoments {
			moments = append(moments, KeyMoment{
				Type:                km.Type,
				ExpectedPosition:    km.ExpectedPosition,
				EmotionalExperience: km.EmotionalExperience,
				StoryFunction:       km.StoryFunction,
			})
		}
	}

	return &Result{
		PrimaryGenre:       primary,
		PrimaryConfidence:  confidence,
		SecondaryGenres:    secondaries,
		Evidence:           evidence,
		ExpectedKeyMoments: moments,
		SampledParagraphs:  sampled,
	}, nil
}

// primaryConfidence blends relative dominance with absolute signal
// strength.
func primaryConfidence(primary, total int) float64 {
	if total == 0 {
		return 0
	}
	conf := float64(primary) / float64(total)
	if primary > strongSignal {
		conf += 0.2
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func scoreSample(sample string, lex *lexicon.Set) []genreScore {
	out := make([]genreScore, 0, len(lex.Genres))
	for _, g := range lex.Genres {
		matches := lexicon.CompilePhrases(g.Keywords).FindAllString(sample, -1)
		seen := make(map[string]struct{}, len(matches))
		indicators := []string{}
		for _, m := range matches {
			low := strings.ToLower(m)
			if _, ok := seen[low]; ok {
				continue
			}
			seen[low] = struct{}{}
			if len(indicators) < maxIndicators {
				indicators = append(indicators, low)
			}
		}
		out = append(out, genreScore{name: g.Name, count: len(matches), indicators: indicators})
	}
	return out
}

// buildSample picks the paragraphs to score. Small documents are used
// whole; larger ones contribute slices from the beginning, the middle,
// and the end so the opening chapters do not dominate the counts.
func buildSample(text string, size int) (string, int) {
	paras := []string{}
	for _, p := range manuscript.Paragraphs(text) {
		if len(p) >= minParagraphChars {
			paras = append(paras, p)
		}
	}
	if len(paras) <= size {
		return strings.Join(paras, "\n\n"), len(paras)
	}

	third := size / 3
	rest := size - 2*third
	midStart := len(paras)/2 - third/2
	if midStart < third {
		midStart = third
	}

	picked := make([]string, 0, size)
	picked = append(picked, paras[:third]...)
	picked = append(picked, paras[midStart:midStart+third]...)
	picked = append(picked, paras[len(paras)-rest:]...)
	return strings.Join(picked, "\n\n"), len(picked)
}
