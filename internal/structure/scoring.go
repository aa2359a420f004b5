package structure

// elementConfidence scores one element as min(1, density*0.3 + bonus),
// where density is indicators per hundred words and the bonus rewards
// absolute signal strength: 0.4 above two indicators, 0.2 above zero.
func elementConfidence(indicators, wordCount int) float64 {
	if indicators == 0 {
		return 0
	}
	words := float64(wordCount)
	if words < 1 {
		words = 1
	}
	density := float64(indicators) / (words / 100)
	bonus := 0.2
	if indicators > 2 {
		bonus = 0.4
	}
	return clamp01(density*0.3 + bonus)
}

// sceneSequelRatio is the scene score over the total signal, with the
// denominator floored at one so a silent scene yields zero, not NaN.
func sceneSequelRatio(sceneScore, sequelScore int) float64 {
	total := sceneScore + sequelScore
	if total < 1 {
		total = 1
	}
	return float64(sceneScore) / float64(total)
}

// pacingFor applies the fixed ratio thresholds: above 0.65 action-heavy,
// below 0.35 reflective, balanced between.
func pacingFor(ratio float64) Pacing {
	switch {
	case ratio > 0.65:
		return PacingActionHeavy
	case ratio < 0.35:
		return PacingReflective
	default:
		return PacingBalanced
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
