// Package trust implements the devtooling trust-propagation engine: an
// EigenTrust-style damped fixed point over the heterogeneous contribution
// graph. Trust mass seeds at project pretrust, flows onchain project →
// developer → devtooling project along decay-weighted edges, and converges
// to a stationary devtooling score vector.
package trust

import (
	"fmt"

	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/graph"
)

// Pretrust is a normalized non-negative weight vector over one project
// partition. It carries the non-graph-derived importance each project starts
// with before any propagation.
type Pretrust map[string]float64

// BuildPretrust derives a partition's pretrust from raw project attributes
// using a fixed linear combination: weight(p) = Σ coef[attr] × p.attr. Each
// attribute series is first scaled by its partition maximum so that a single
// dominant attribute (gas fees vs. star counts) cannot swamp the rest. The
// result is normalized to sum to 1; a partition with no attribute mass at
// all yields the zero vector.
func BuildPretrust(s *graph.Snapshot, kind graph.ProjectKind, coefficients map[string]float64) (Pretrust, error) {
	ids := s.ProjectsOfKind(kind)
	if len(coefficients) == 0 {
		return nil, &config.ValidationError{
			Field:  fmt.Sprintf("simulation.%s_pretrust_weights", kind),
			Reason: "no pretrust coefficients configured",
		}
	}

	// Per-attribute maxima for scale alignment.
	maxima := make(map[string]float64, len(coefficients))
	for _, id := range ids {
		p := s.Projects[id]
		for attr := range coefficients {
			if v := p.Attr(attr); v > maxima[attr] {
				maxima[attr] = v
			}
		}
	}

	pt := make(Pretrust, len(ids))
	var total float64
	for _, id := range ids {
		p := s.Projects[id]
		var w float64
		for attr, coef := range coefficients {
			if maxima[attr] > 0 {
				w += coef * p.Attr(attr) / maxima[attr]
			}
		}
		pt[id] = w
		total += w
	}

	if total > 0 {
		for id := range pt {
			pt[id] /= total
		}
	}
	return pt, nil
}

// Sum returns the total mass of the vector.
func (p Pretrust) Sum() float64 {
	var s float64
	for _, v := range p {
		s += v
	}
	return s
}
