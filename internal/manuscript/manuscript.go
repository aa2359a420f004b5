package manuscript

import (
	"regexp"
	"strings"
)

var (
	paragraphBreakPattern = regexp.MustCompile(`\n[ \t]*\n+`)
	sentencePattern       = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*|[^.!?]+$`)
	spaceRunPattern       = regexp.MustCompile(`\s+`)
)

// Doc is a read-only view of a manuscript with 1-based line addressing.
// Stage outputs reference text only through line numbers on a Doc, so the
// raw text is parsed exactly once per run and never mutated.
type Doc struct {
	Title string

	lines []string
}

// New normalizes line endings and splits text into addressable lines.
func New(title, text string) *Doc {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return &Doc{Title: title, lines: strings.Split(text, "\n")}
}

// LineCount reports the number of lines in the document.
func (d *Doc) LineCount() int { return len(d.lines) }

// Line returns the 1-based line n, or "" when n is out of range.
func (d *Doc) Line(n int) string {
	if n < 1 || n > len(d.lines) {
		return ""
	}
	return d.lines[n-1]
}

// Lines exposes the underlying line slice. Callers must not modify it.
func (d *Doc) Lines() []string { return d.lines }

// Range returns lines start..end inclusive joined by newlines, with the
// bounds clamped to the document.
func (d *Doc) Range(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(d.lines) {
		end = len(d.lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(d.lines[start-1:end], "\n")
}

// Text returns the whole normalized document.
func (d *Doc) Text() string { return strings.Join(d.lines, "\n") }

// WordCount reports whitespace-delimited tokens across the whole document.
func (d *Doc) WordCount() int { return WordCount(d.Text()) }

// WordCount reports whitespace-delimited tokens in s.
func WordCount(s string) int { return len(strings.Fields(s)) }

// Paragraphs splits s on blank-line runs and trims the pieces. Empty
// paragraphs are dropped.
func Paragraphs(s string) []string {
	parts := paragraphBreakPattern.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Sentences splits s into rough sentences, keeping terminal punctuation.
// A trailing fragment without punctuation counts as a sentence.
func Sentences(s string) []string {
	matches := sentencePattern.FindAllString(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Preview returns about max characters of s, collapsed to single spaces and
// cut at a word boundary.
func Preview(s string, max int) string {
	s = strings.TrimSpace(spaceRunPattern.ReplaceAllString(s, " "))
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
