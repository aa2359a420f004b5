package characters

import (
	"reflect"
	"strings"
	"testing"

	"storyscope/internal/manuscript"
	"storyscope/internal/segment"
)

const tollhouse = `Chapter One

Mira thought the pass would be empty so early in the season. The snow had other plans, and the village below kept its lights burning past midnight.

Mira believed that no one could be trusted with the ledger. As a child, Mira had watched the bridge burn, and the lesson stayed. Doran waved from the tollhouse gate, and Tessa counted coins behind him.

Chapter Two

Mira felt the rope give an inch. Her hands burned against the fibers.

Mira wanted the ledger back before the thaw, and Mira needed an ally more than a map. Doran told himself the debt meant nothing. But Doran kept the gate barred, and Doran watched the road all night. Mira's heart hammered against her ribs.

Chapter Three

Mira knew the route by heart now. The tollhouse stood empty.

Mira realized she had been wrong about the debt. Mira was different now, and the pass felt smaller than the stories said. Doran met her at the gate with the ledger, and Doran said nothing at all.`

func track(t *testing.T, text string, opts Options) *Report {
	t.Helper()
	doc := manuscript.New("", text)
	seg, err := segment.Split(doc, segment.Options{})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	rep, err := Track(doc, seg, opts)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	return rep
}

func TestProtagonistSelectionAndArc(t *testing.T) {
	rep := track(t, tollhouse, Options{})
	p := rep.Protagonist
	if p == nil {
		t.Fatalf("no protagonist found")
	}
	if p.Name != "Mira" {
		t.Fatalf("protagonist = %q, want Mira", p.Name)
	}
	if p.Mentions != 10 {
		t.Fatalf("mentions = %d, want 10", p.Mentions)
	}
	if p.POVScenes != 3 {
		t.Fatalf("povScenes = %d, want 3", p.POVScenes)
	}
	if p.FirstAppearance != "ch1-s1" {
		t.Fatalf("firstAppearance = %q", p.FirstAppearance)
	}
	if p.Role != "Protagonist" {
		t.Fatalf("role = %q", p.Role)
	}
	if p.ArcType != ArcPositive {
		t.Fatalf("arcType = %q, want %q", p.ArcType, ArcPositive)
	}
	c := p.ArcComponents
	if c.Lie == nil || !strings.Contains(*c.Lie, "believed") {
		t.Fatalf("lie evidence missing: %+v", c)
	}
	if c.Want == nil || c.Need == nil || c.Ghost == nil {
		t.Fatalf("want/need/ghost evidence missing: %+v", c)
	}
	if c.TruthAcceptance == nil || !strings.Contains(*c.TruthAcceptance, "realized") {
		t.Fatalf("truth evidence missing: %+v", c)
	}
	if c.Transformation == nil {
		t.Fatalf("transformation evidence missing: %+v", c)
	}
	if len(c.LieEvidence) != 1 {
		t.Fatalf("lieEvidence = %v", c.LieEvidence)
	}
	want := []string{"ch1-s1", "ch2-s1", "ch3-s1"}
	if !reflect.DeepEqual(p.KeyScenes, want) {
		t.Fatalf("keyScenes = %v, want %v", p.KeyScenes, want)
	}
}

func TestSecondaryCharactersAndWeb(t *testing.T) {
	rep := track(t, tollhouse, Options{})
	if len(rep.SecondaryCharacters) != 1 {
		t.Fatalf("secondaries = %+v", rep.SecondaryCharacters)
	}
	d := rep.SecondaryCharacters[0]
	if d.Name != "Doran" {
		t.Fatalf("secondary = %q, want Doran", d.Name)
	}
	if d.Mentions != 6 {
		t.Fatalf("mentions = %d, want 6", d.Mentions)
	}
	if d.ArcComponents.Lie == nil || !strings.Contains(*d.ArcComponents.Lie, "told himself") {
		t.Fatalf("secondary lie evidence missing: %+v", d.ArcComponents)
	}
	if d.ArcType != ArcUnclear {
		t.Fatalf("secondary arcType = %q", d.ArcType)
	}
	if len(d.KeyScenes) != 0 {
		t.Fatalf("secondaries carry no key scenes, got %v", d.KeyScenes)
	}
	// 6 mentions against the protagonist's 10 clears the 60% bar.
	if d.Role != "Mentor figure" {
		t.Fatalf("role = %q", d.Role)
	}
	wantWeb := []Relation{{Source: "Mira", Target: "Doran", Relation: "unspecified"}}
	if !reflect.DeepEqual(rep.CharacterWeb, wantWeb) {
		t.Fatalf("web = %+v", rep.CharacterWeb)
	}
}

func TestMentionThresholdDropsRareNames(t *testing.T) {
	rep := track(t, tollhouse, Options{})
	for _, s := range rep.SecondaryCharacters {
		if s.Name == "Tessa" {
			t.Fatalf("Tessa has one mention and must be dropped")
		}
	}
}

func TestProtagonistOverride(t *testing.T) {
	rep := track(t, tollhouse, Options{Protagonist: "Doran"})
	p := rep.Protagonist
	if p == nil || p.Name != "Doran" {
		t.Fatalf("override ignored: %+v", p)
	}
	// Full extraction finds the lie but no truth sentence.
	if p.ArcType != ArcNegative {
		t.Fatalf("arcType = %q, want %q", p.ArcType, ArcNegative)
	}
	if len(p.KeyScenes) != 0 {
		t.Fatalf("keyScenes = %v", p.KeyScenes)
	}
	if len(rep.SecondaryCharacters) != 1 || rep.SecondaryCharacters[0].Name != "Mira" {
		t.Fatalf("secondaries = %+v", rep.SecondaryCharacters)
	}
	if rep.SecondaryCharacters[0].Role != "Major viewpoint character" {
		t.Fatalf("role = %q", rep.SecondaryCharacters[0].Role)
	}
}

func TestUnknownOverrideIsIgnored(t *testing.T) {
	rep := track(t, tollhouse, Options{Protagonist: "Zebadiah"})
	if rep.Protagonist == nil || rep.Protagonist.Name != "Mira" {
		t.Fatalf("unknown override changed ranking: %+v", rep.Protagonist)
	}
}

func TestNoCandidatesIsValid(t *testing.T) {
	rep := track(t, "She waited by the door. Nothing moved in the yard.", Options{})
	if rep.Protagonist != nil {
		t.Fatalf("expected nil protagonist, got %+v", rep.Protagonist)
	}
	if len(rep.SecondaryCharacters) != 0 || len(rep.CharacterWeb) != 0 {
		t.Fatalf("expected empty lists: %+v", rep)
	}
}

func TestMaxSecondaryCap(t *testing.T) {
	text := "Alden walked the wall each dawn. Alden counted the gates. Alden greeted the guards. " +
		"Alden liked the quiet. Alden kept a list. Alden slept early. Brin met Alden at noon. " +
		"Brin sold bread. Brin laughed often. Brin waved. Brin nodded. Coral fished downstream. " +
		"Coral mended nets. Coral sang. Coral counted herons. Coral waited by the river."
	rep := track(t, text, Options{MaxSecondary: 1})
	if rep.Protagonist == nil || rep.Protagonist.Name != "Alden" {
		t.Fatalf("protagonist = %+v", rep.Protagonist)
	}
	if len(rep.SecondaryCharacters) != 1 {
		t.Fatalf("cap ignored: %+v", rep.SecondaryCharacters)
	}
	if rep.SecondaryCharacters[0].Name != "Brin" {
		t.Fatalf("ranking broke the Brin/Coral tie wrong: %+v", rep.SecondaryCharacters)
	}

	rep = track(t, text, Options{})
	if len(rep.SecondaryCharacters) != 2 {
		t.Fatalf("default cap should keep both: %+v", rep.SecondaryCharacters)
	}
}

func TestRoleLabels(t *testing.T) {
	cases := []struct {
		povScenes, mentions, protag int
		want                        string
	}{
		{3, 99, 100, "Major viewpoint character"},
		{0, 60, 100, "Mentor figure"},
		{0, 20, 100, "Supporting character"},
		{0, 5, 100, "Minor character"},
	}
	for _, tc := range cases {
		if got := roleFor(tc.povScenes, tc.mentions, tc.protag); got != tc.want {
			t.Fatalf("roleFor(%d, %d, %d) = %q, want %q", tc.povScenes, tc.mentions, tc.protag, got, tc.want)
		}
	}
}

func TestOptionValidation(t *testing.T) {
	doc := manuscript.New("", tollhouse)
	seg, err := segment.Split(doc, segment.Options{})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if _, err := Track(doc, seg, Options{MaxSecondary: -2}); err == nil {
		t.Fatalf("negative cap must be rejected")
	}
	if _, err := Track(nil, seg, Options{}); err == nil {
		t.Fatalf("nil manuscript must be rejected")
	}
	if _, err := Track(doc, nil, Options{}); err == nil {
		t.Fatalf("nil segmentation must be rejected")
	}
	broken := *seg
	broken.Chapters = append([]segment.Chapter{}, seg.Chapters...)
	broken.Chapters[0].Scenes = append([]segment.Scene{}, seg.Chapters[0].Scenes...)
	broken.Chapters[0].Scenes[0].EndLine = doc.LineCount() + 9
	if _, err := Track(doc, &broken, Options{}); err == nil {
		t.Fatalf("out-of-range scene must be rejected")
	}
}

func TestDeterminism(t *testing.T) {
	a := track(t, tollhouse, Options{})
	b := track(t, tollhouse, Options{})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("repeated tracking diverged")
	}
}
