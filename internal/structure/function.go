package structure

// ruleInput carries the signals the narrative-function table reads.
// position is sceneIndex/totalScenes: 0 at the manuscript start, 1 at the
// end.
type ruleInput struct {
	position     float64
	goalConf     float64
	conflictConf float64
	disaster     bool
	dilemma      bool
	pacing       Pacing
}

type functionRule struct {
	label string
	when  func(ruleInput) bool
}

// functionRules is evaluated top to bottom; the first matching predicate
// names the scene's narrative function. The table is a coarse positional
// overlay, not a verified structural diagnosis.
var functionRules = []functionRule{
	{"Setup", func(in ruleInput) bool {
		return in.position < 0.10
	}},
	{"Inciting incident", func(in ruleInput) bool {
		return in.position >= 0.10 && in.position <= 0.15 && in.disaster
	}},
	{"First plot point", func(in ruleInput) bool {
		return in.position >= 0.20 && in.position <= 0.25 && in.goalConf > 0.6
	}},
	{"Midpoint", func(in ruleInput) bool {
		return in.position >= 0.45 && in.position <= 0.55 && in.conflictConf > 0.7
	}},
	{"Dark night", func(in ruleInput) bool {
		return in.position >= 0.75 && in.position <= 0.85 && (in.pacing == PacingReflective || in.dilemma)
	}},
	{"Climax", func(in ruleInput) bool {
		return in.position >= 0.85 && in.position <= 0.95 && in.pacing == PacingActionHeavy
	}},
	{"Resolution", func(in ruleInput) bool {
		return in.position > 0.95
	}},
}

// functionFor walks the rule table and falls back to a label derived from
// pacing alone.
func functionFor(in ruleInput) string {
	for _, r := range functionRules {
		if r.when(in) {
			return r.label
		}
	}
	switch in.pacing {
	case PacingActionHeavy:
		return "Action beat"
	case PacingReflective:
		return "Character beat"
	default:
		return "Development scene"
	}
}
