package trust

// ApplyUtilityMultipliers rescales a converged score vector by each
// project's utility-category multiplier and renormalizes the result to sum
// to 1. It is a pure post-transform over the converged vector, never part of
// the propagation loop, so it can be tuned and tested independently.
// Projects with no category, or a category without a configured multiplier,
// keep multiplier 1.
func ApplyUtilityMultipliers(scores map[string]float64, categories map[string]string, multipliers map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	var total float64
	for id, score := range scores {
		m := 1.0
		if cat, ok := categories[id]; ok {
			if w, ok := multipliers[cat]; ok {
				m = w
			}
		}
		out[id] = score * m
		total += out[id]
	}
	if total > 0 {
		for id := range out {
			out[id] /= total
		}
	}
	return out
}
