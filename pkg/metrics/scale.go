package metrics

import "sort"

// percentile returns the given percentile of values using linear
// interpolation between closest ranks, matching the convention of the
// round's historical tooling. values must be non-empty; p is in (0,100].
func percentile(values []float64, p float64) float64 {
	cp := append([]float64(nil), values...)
	sort.Float64s(cp)

	if len(cp) == 1 {
		return cp[0]
	}
	rank := (p / 100) * float64(len(cp)-1)
	lo := int(rank)
	if lo >= len(cp)-1 {
		return cp[len(cp)-1]
	}
	frac := rank - float64(lo)
	return cp[lo]*(1-frac) + cp[lo+1]*frac
}

// minMaxScale scales a series to [0,1]. When cap < 100 the top tail is first
// clipped to the cap percentile so that one outsized project cannot flatten
// everyone else's normalized values. A constant series scales to all ones.
func minMaxScale(values []float64, cap float64) []float64 {
	if len(values) == 0 {
		return values
	}

	scaled := append([]float64(nil), values...)
	if cap < 100 {
		capValue := percentile(scaled, cap)
		for i, v := range scaled {
			if v > capValue {
				scaled[i] = capValue
			}
		}
	}

	lo, hi := scaled[0], scaled[0]
	for _, v := range scaled[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for i := range scaled {
			scaled[i] = 1
		}
		return scaled
	}
	for i, v := range scaled {
		scaled[i] = (v - lo) / (hi - lo)
	}
	return scaled
}
