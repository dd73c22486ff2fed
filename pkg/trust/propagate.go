package trust

import (
	"fmt"
	"math"
	"sort"

	"github.com/fundgraph/fundgraph/pkg/graph"
)

// Params controls the fixed-point iteration.
type Params struct {
	// AlphaOnchain damps updates of developer and onchain nodes; trust mass
	// reaching a developer is alpha parts propagated, (1-alpha) parts
	// pretrust.
	AlphaOnchain float64
	// AlphaDevtooling damps updates of devtooling nodes.
	AlphaDevtooling float64
	// Tolerance is the L1 convergence threshold between successive
	// iterations.
	Tolerance float64
	// MaxIterations bounds the fixed point; exceeding it is fatal.
	MaxIterations int
}

// DefaultTolerance and DefaultMaxIterations bound the fixed point when a
// configuration leaves them unset.
const (
	DefaultTolerance     = 1e-9
	DefaultMaxIterations = 1000
)

// ConvergenceError reports that the trust fixed point did not reach the
// tolerance within the iteration bound. It is fatal: a truncated iteration
// is not a usable score vector.
type ConvergenceError struct {
	Iterations int
	Residual   float64
	Tolerance  float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("trust propagation did not converge after %d iterations (residual %.3g, tolerance %.3g)",
		e.Iterations, e.Residual, e.Tolerance)
}

// Result holds the converged devtooling score vector and iteration
// diagnostics.
type Result struct {
	// Scores maps devtooling project id to its normalized score. The vector
	// sums to 1 and every entry is non-negative.
	Scores map[string]float64
	// Developers maps developer id to converged intermediary trust,
	// normalized over the developer partition. Diagnostic only.
	Developers map[string]float64
	Iterations int
	Residual   float64
}

// Propagate runs the damped fixed point over the full heterogeneous node
// set. Each iteration every node redistributes its trust along its weighted
// out-edges; a node with no out-edges returns its mass to the pretrust
// distribution, which is what makes the iteration a contraction. Updates are
// damped per partition:
//
//	t[i] ← (1-alpha[i]) × pretrust[i] + alpha[i] × inflow[i]
//
// and the vector is renormalized each step. The devtooling restriction of
// the converged vector, renormalized to sum to 1, is the score vector.
func Propagate(s *graph.Snapshot, adj *graph.Adjacency, onchainPT, devtoolingPT Pretrust, params Params) (*Result, error) {
	if params.Tolerance <= 0 {
		params.Tolerance = DefaultTolerance
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = DefaultMaxIterations
	}

	onchainIDs := s.ProjectsOfKind(graph.KindOnchain)
	devtoolingIDs := s.ProjectsOfKind(graph.KindDevtooling)
	developerIDs := make([]string, 0, len(s.Developers))
	for id := range s.Developers {
		developerIDs = append(developerIDs, id)
	}
	sort.Strings(developerIDs)

	nodes := make([]string, 0, len(onchainIDs)+len(developerIDs)+len(devtoolingIDs))
	nodes = append(nodes, onchainIDs...)
	nodes = append(nodes, developerIDs...)
	nodes = append(nodes, devtoolingIDs...)
	if len(nodes) == 0 {
		return nil, &ConvergenceError{Iterations: 0, Residual: math.Inf(1), Tolerance: params.Tolerance}
	}

	alpha := make(map[string]float64, len(nodes))
	for _, id := range onchainIDs {
		alpha[id] = params.AlphaOnchain
	}
	for _, id := range developerIDs {
		alpha[id] = params.AlphaOnchain
	}
	for _, id := range devtoolingIDs {
		alpha[id] = params.AlphaDevtooling
	}

	// Union pretrust: each partition arrives normalized; the union is
	// renormalized so total mass is 1. Developers carry no pretrust.
	pretrust := make(map[string]float64, len(nodes))
	var ptTotal float64
	for id, w := range onchainPT {
		pretrust[id] += w
		ptTotal += w
	}
	for id, w := range devtoolingPT {
		pretrust[id] += w
		ptTotal += w
	}
	if ptTotal > 0 {
		for id := range pretrust {
			pretrust[id] /= ptTotal
		}
	}

	// Row-normalized out-edges per node, all edge types combined.
	outs := make(map[string]map[string]float64, len(nodes))
	for _, id := range nodes {
		combined := make(map[string]float64)
		var total float64
		for _, t := range graph.KnownEdgeTypes {
			for to, w := range adj.Out(t, id) {
				combined[to] += w
				total += w
			}
		}
		if total > 0 {
			for to := range combined {
				combined[to] /= total
			}
			outs[id] = combined
		}
	}

	current := make(map[string]float64, len(nodes))
	for id, w := range pretrust {
		current[id] = w
	}

	var residual float64
	for iter := 1; iter <= params.MaxIterations; iter++ {
		inflow := make(map[string]float64, len(nodes))
		var dangling float64
		for _, id := range nodes {
			mass := current[id]
			if mass == 0 {
				continue
			}
			row, ok := outs[id]
			if !ok {
				dangling += mass
				continue
			}
			for to, share := range row {
				inflow[to] += mass * share
			}
		}
		// Dangling mass returns to the pretrust distribution.
		if dangling > 0 {
			for id, w := range pretrust {
				inflow[id] += dangling * w
			}
		}

		next := make(map[string]float64, len(nodes))
		var total float64
		for _, id := range nodes {
			v := (1-alpha[id])*pretrust[id] + alpha[id]*inflow[id]
			if v > 0 {
				next[id] = v
				total += v
			}
		}
		if total > 0 {
			for id := range next {
				next[id] /= total
			}
		}

		residual = 0
		for _, id := range nodes {
			residual += math.Abs(next[id] - current[id])
		}
		current = next

		if residual < params.Tolerance {
			return finishResult(current, developerIDs, devtoolingIDs, iter, residual), nil
		}
	}

	return nil, &ConvergenceError{Iterations: params.MaxIterations, Residual: residual, Tolerance: params.Tolerance}
}

func finishResult(t map[string]float64, developerIDs, devtoolingIDs []string, iters int, residual float64) *Result {
	res := &Result{
		Scores:     make(map[string]float64, len(devtoolingIDs)),
		Developers: make(map[string]float64, len(developerIDs)),
		Iterations: iters,
		Residual:   residual,
	}

	var devtoolingTotal float64
	for _, id := range devtoolingIDs {
		res.Scores[id] = t[id]
		devtoolingTotal += t[id]
	}
	if devtoolingTotal > 0 {
		for id := range res.Scores {
			res.Scores[id] /= devtoolingTotal
		}
	}

	var developerTotal float64
	for _, id := range developerIDs {
		res.Developers[id] = t[id]
		developerTotal += t[id]
	}
	if developerTotal > 0 {
		for id := range res.Developers {
			res.Developers[id] /= developerTotal
		}
	}
	return res
}
