// Package render turns a pipeline result into a markdown reverse outline:
// the chapter and scene tree annotated with narrative function, pacing,
// issues and time cues, followed by the genre and character findings.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"storyscope/internal/characters"
	"storyscope/internal/genre"
	"storyscope/internal/pipeline"
	"storyscope/internal/segment"
	"storyscope/internal/structure"
)

var timeMarkerPattern = regexp.MustCompile(`(?i)\b(that (?:night|morning|evening|afternoon)|the next (?:day|morning|evening|night)|later that (?:day|night|evening)|the following (?:day|morning|week)|(?:hours|days|weeks|months|years) later|last night|yesterday|tomorrow|tonight|at (?:dawn|dusk|midnight|noon)|\d{4})\b`)

// TimeCue returns the first explicit time marker in a scene opening, or "".
func TimeCue(text string) string {
	return timeMarkerPattern.FindString(text)
}

// Outline renders the reverse outline for a completed run. Sections whose
// stage result is missing are skipped.
func Outline(res *pipeline.Result) string {
	if res == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("# Reverse Outline: " + res.Title + "\n")

	if res.Segmentation != nil {
		writeOverview(&b, res)
		writeGenre(&b, res.Genre, res.Segmentation.Metadata.TotalChapters)
		writeSceneMap(&b, res.Segmentation, res.Structure)
	} else if res.Genre != nil {
		writeGenre(&b, res.Genre, 0)
	}
	writeCharacters(&b, res.Characters)
	return b.String()
}

func writeOverview(b *strings.Builder, res *pipeline.Result) {
	seg := res.Segmentation
	b.WriteString(fmt.Sprintf("\n%d words across %d chapters and %d scenes.",
		seg.TotalWords, seg.Metadata.TotalChapters, seg.Metadata.TotalScenes))
	if res.Structure != nil {
		sum := res.Structure.Summary
		b.WriteString(fmt.Sprintf(" Average element confidence %.2f; pacing %d action-heavy / %d balanced / %d reflective; %d structural issues flagged.",
			sum.AverageConfidence,
			sum.PacingCounts[structure.PacingActionHeavy],
			sum.PacingCounts[structure.PacingBalanced],
			sum.PacingCounts[structure.PacingReflective],
			sum.TotalIssues))
	}
	b.WriteString("\n")
}

func writeGenre(b *strings.Builder, g *genre.Result, totalChapters int) {
	if g == nil {
		return
	}
	b.WriteString("\n## Genre\n\n")
	b.WriteString(fmt.Sprintf("Primary: **%s** (confidence %.2f).", g.PrimaryGenre, g.PrimaryConfidence))
	if len(g.SecondaryGenres) > 0 {
		b.WriteString(" Secondary: " + strings.Join(g.SecondaryGenres, ", ") + ".")
	}
	b.WriteString("\n")

	if ev, ok := g.Evidence[g.PrimaryGenre]; ok && ev.Count > 0 {
		b.WriteString(fmt.Sprintf("Signals: %d keyword hits (%s).\n", ev.Count, strings.Join(ev.Indicators, ", ")))
	}

	if len(g.ExpectedKeyMoments) > 0 {
		b.WriteString("\nExpected key moments:\n\n")
		for _, km := range g.ExpectedKeyMoments {
			b.WriteString(fmt.Sprintf("- %s (%s): %s; reader feels %s\n",
				km.Type, momentWindow(totalChapters, km.ExpectedPosition), km.StoryFunction, km.EmotionalExperience))
		}
	}
}

func writeSceneMap(b *strings.Builder, seg *segment.Segmentation, rep *structure.Report) {
	byID := map[string]structure.SceneAnalysis{}
	if rep != nil {
		for _, an := range rep.Scenes {
			byID[an.SceneID] = an
		}
	}

	b.WriteString("\n## Scene Map\n")
	for _, ch := range seg.Chapters {
		b.WriteString(fmt.Sprintf("\n### Chapter %d: %s\n\n", ch.Number, ch.Title))
		for _, sc := range ch.Scenes {
			writeScene(b, sc, byID)
		}
	}
}

func writeScene(b *strings.Builder, sc segment.Scene, byID map[string]structure.SceneAnalysis) {
	b.WriteString(fmt.Sprintf("- **%s** (lines %d-%d, %d words)", sc.ID, sc.StartLine, sc.EndLine, sc.WordCount))
	an, analyzed := byID[sc.ID]
	if analyzed && an.Function != "" {
		b.WriteString(": " + an.Function)
	}
	b.WriteString("\n")
	if analyzed {
		b.WriteString(fmt.Sprintf("  - pacing %s, scene/sequel ratio %.2f\n", an.Pacing, an.SceneSequelRatio))
		if len(an.Issues) > 0 {
			b.WriteString("  - issues: " + strings.Join(an.Issues, "; ") + "\n")
		}
	}
	if sc.POVCandidate != nil {
		b.WriteString("  - pov: " + *sc.POVCandidate + "\n")
	}
	if cue := TimeCue(sc.OpeningText); cue != "" {
		b.WriteString(fmt.Sprintf("  - time cue: %q\n", cue))
	}
}

func writeCharacters(b *strings.Builder, rep *characters.Report) {
	if rep == nil {
		return
	}
	b.WriteString("\n## Characters\n")

	if p := rep.Protagonist; p != nil {
		b.WriteString(fmt.Sprintf("\n### %s (%s)\n\n", p.Name, p.Role))
		b.WriteString(fmt.Sprintf("- arc: %s\n", p.ArcType))
		b.WriteString(fmt.Sprintf("- first appears %s; %d pov scenes; %d mentions\n", p.FirstAppearance, p.POVScenes, p.Mentions))
		writeArcComponent(b, "lie", p.ArcComponents.Lie)
		writeArcComponent(b, "want", p.ArcComponents.Want)
		writeArcComponent(b, "need", p.ArcComponents.Need)
		writeArcComponent(b, "ghost", p.ArcComponents.Ghost)
		writeArcComponent(b, "truth", p.ArcComponents.TruthAcceptance)
		writeArcComponent(b, "transformation", p.ArcComponents.Transformation)
		if len(p.KeyScenes) > 0 {
			b.WriteString("- key scenes: " + strings.Join(p.KeyScenes, ", ") + "\n")
		}
	} else {
		b.WriteString("\nNo protagonist candidate cleared the mention threshold.\n")
	}

	if len(rep.SecondaryCharacters) > 0 {
		b.WriteString("\n### Secondary characters\n\n")
		for _, c := range rep.SecondaryCharacters {
			b.WriteString(fmt.Sprintf("- **%s** (%s): %d mentions, %d pov scenes", c.Name, c.Role, c.Mentions, c.POVScenes))
			if c.ArcComponents.Lie != nil {
				b.WriteString(fmt.Sprintf(", lie %q", excerpt(*c.ArcComponents.Lie, 14)))
			}
			b.WriteString("\n")
		}
	}

	if len(rep.CharacterWeb) > 0 {
		b.WriteString("\nCharacter web: ")
		pairs := make([]string, 0, len(rep.CharacterWeb))
		for _, r := range rep.CharacterWeb {
			pairs = append(pairs, r.Source+" & "+r.Target)
		}
		b.WriteString(strings.Join(pairs, "; ") + "\n")
	}
}

func writeArcComponent(b *strings.Builder, label string, value *string) {
	if value == nil {
		return
	}
	b.WriteString(fmt.Sprintf("- %s: %q\n", label, excerpt(*value, 14)))
}

// momentWindow maps an expected story position onto a chapter range the
// way beat windows map onto chapters: scale, shift to 1-based, clamp.
func momentWindow(totalChapters int, pos float64) string {
	if totalChapters <= 0 {
		return fmt.Sprintf("around %d%% of the story", int(pos*100))
	}
	startRatio := pos - 0.05
	endRatio := pos + 0.05
	if startRatio < 0 {
		startRatio = 0
	}
	if endRatio > 1 {
		endRatio = 1
	}
	start := int(float64(totalChapters)*startRatio) + 1
	end := int(float64(totalChapters)*endRatio) + 1
	if end > totalChapters {
		end = totalChapters
	}
	if start > end {
		start = end
	}
	if start == end {
		return fmt.Sprintf("around chapter %d", start)
	}
	return fmt.Sprintf("chapters %d-%d", start, end)
}

func excerpt(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
