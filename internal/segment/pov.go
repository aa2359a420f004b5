package segment

import (
	"regexp"
	"strings"
)

var (
	properNamePattern = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
	wordPattern       = regexp.MustCompile(`[A-Za-z']+`)
)

// povCandidate guesses the point-of-view holder of a scene from its first
// paragraph. First-person pronouns beat every name signal; after that the
// earliest cognition-verb or interiority match wins, and a roster of common
// given names is the last resort. Returns nil when nothing qualifies.
func (cfg *settings) povCandidate(paragraph string) *string {
	if paragraph == "" {
		return nil
	}
	for _, tok := range wordPattern.FindAllString(paragraph, -1) {
		if tok == "I" {
			s := FirstPersonPOV
			return &s
		}
		low := strings.ToLower(tok)
		if low == "i" {
			continue
		}
		if _, ok := cfg.firstPerson[low]; ok {
			s := FirstPersonPOV
			return &s
		}
	}

	best := -1
	var name string
	for _, re := range []*regexp.Regexp{cfg.cognition, cfg.interiority} {
		for _, m := range re.FindAllStringSubmatchIndex(paragraph, -1) {
			cand := paragraph[m[2]:m[3]]
			if _, stopped := cfg.stop[cand]; stopped {
				continue
			}
			if best == -1 || m[0] < best {
				best = m[0]
				name = cand
			}
			break
		}
	}
	if name != "" {
		return &name
	}

	for _, cand := range properNamePattern.FindAllString(paragraph, -1) {
		if _, stopped := cfg.stop[cand]; stopped {
			continue
		}
		if _, ok := cfg.given[cand]; ok {
			c := cand
			return &c
		}
	}
	return nil
}
