package graph

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fundgraph/fundgraph/pkg/config"
)

// WeightScheme controls how raw edges are turned into effective adjacency
// weights: a multiplier per link type, a multiplier per event subtype, and a
// per-link-type time-decay factor in [0,1] applied per measurement period of
// edge age.
type WeightScheme struct {
	LinkTypeWeights  map[EdgeType]float64
	EventTypeWeights map[string]float64
	DecayFactors     map[EdgeType]float64
}

// Adjacency is the decay-aggregated weighted adjacency structure for one
// snapshot. Duplicate edges of the same (from, to, type) are summed.
type Adjacency struct {
	weights map[EdgeType]map[string]map[string]float64
}

// Weight returns the aggregated effective weight for (from, to) under the
// given edge type, or 0 if no such link exists.
func (a *Adjacency) Weight(t EdgeType, from, to string) float64 {
	return a.weights[t][from][to]
}

// Out returns the aggregated out-neighborhood of from under the given edge
// type. The returned map must not be mutated.
func (a *Adjacency) Out(t EdgeType, from string) map[string]float64 {
	return a.weights[t][from]
}

// Sources returns the distinct source node ids with at least one link of the
// given type into to, sorted.
func (a *Adjacency) Sources(t EdgeType, to string) []string {
	var srcs []string
	for from, outs := range a.weights[t] {
		if w, ok := outs[to]; ok && w > 0 {
			srcs = append(srcs, from)
		}
	}
	sort.Strings(srcs)
	return srcs
}

// InWeight returns the total effective weight of the given type flowing
// into to.
func (a *Adjacency) InWeight(t EdgeType, to string) float64 {
	var sum float64
	for _, outs := range a.weights[t] {
		sum += outs[to]
	}
	return sum
}

// BuildAdjacency aggregates the snapshot's raw edges into effective
// adjacency weights:
//
//	effective = raw_weight × event_type_weight(subtype) × link_type_weight(type) × decay^age
//
// where age is the edge's age in whole measurement periods relative to the
// snapshot capture time. An edge of a type not listed in KnownEdgeTypes, or
// of a type the scheme carries no weight for, is a configuration error.
func BuildAdjacency(s *Snapshot, scheme WeightScheme, periodLength time.Duration) (*Adjacency, error) {
	adj := &Adjacency{weights: make(map[EdgeType]map[string]map[string]float64, len(KnownEdgeTypes))}
	for _, t := range KnownEdgeTypes {
		adj.weights[t] = make(map[string]map[string]float64)
	}

	for _, e := range s.Edges {
		linkWeight, ok := scheme.LinkTypeWeights[e.Type]
		if !ok {
			return nil, &config.ValidationError{
				Field:  "simulation.link_type_weights",
				Reason: fmt.Sprintf("edge type %q has no configured link weight", e.Type),
			}
		}

		eventWeight := 1.0
		if w, ok := scheme.EventTypeWeights[e.Subtype]; ok {
			eventWeight = w
		}

		decay := 1.0
		if d, ok := scheme.DecayFactors[e.Type]; ok {
			decay = d
		}
		if decay < 0 || decay > 1 {
			return nil, &config.ValidationError{
				Field:  "simulation.link_type_decay",
				Reason: fmt.Sprintf("decay factor for %s is %v, want [0,1]", e.Type, decay),
			}
		}

		effective := e.Weight * eventWeight * linkWeight * math.Pow(decay, edgeAge(e, s.CapturedAt, periodLength))
		if effective == 0 {
			continue
		}

		outs := adj.weights[e.Type][e.From]
		if outs == nil {
			outs = make(map[string]float64)
			adj.weights[e.Type][e.From] = outs
		}
		outs[e.To] += effective
	}
	return adj, nil
}

// edgeAge returns the edge's age in whole measurement periods at the
// snapshot capture time. Edges with no timestamp, or newer than the capture
// time, count as age zero so that decay^0 = 1 keeps them at full weight.
func edgeAge(e Edge, capturedAt time.Time, periodLength time.Duration) float64 {
	if e.OccurredAt.IsZero() || periodLength <= 0 {
		return 0
	}
	age := capturedAt.Sub(e.OccurredAt)
	if age <= 0 {
		return 0
	}
	return math.Floor(float64(age) / float64(periodLength))
}
