// Package engine exposes the Fundgraph run interface: a closed set of
// scoring algorithms computed over one frozen snapshot, and the allocation
// step that turns a score vector into payouts. A run is deterministic —
// identical snapshot and configuration yield identical output — so the
// engine performs no retries.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fundgraph/fundgraph/pkg/allocate"
	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/eligibility"
	"github.com/fundgraph/fundgraph/pkg/graph"
	"github.com/fundgraph/fundgraph/pkg/metrics"
	"github.com/fundgraph/fundgraph/pkg/trust"
)

// Inputs bundles everything a run reads: the contribution graph snapshot and
// the raw onchain observations for the two compared periods.
type Inputs struct {
	Snapshot     *graph.Snapshot       `json:"snapshot"`
	Observations []metrics.Observation `json:"observations,omitempty"`
}

// Algorithm is one member of the closed algorithm set. It is selected once
// at run start and threaded through the pipeline; there is no string
// dispatch mid-run.
type Algorithm interface {
	// Name is the algorithm family identifier used in output records.
	Name() string
	compute(in Inputs, cfg *config.Config) (map[string]float64, error)
}

// TrustPropagation scores devtooling projects by propagating trust across
// the contribution graph.
type TrustPropagation struct{}

// Name implements Algorithm.
func (TrustPropagation) Name() string { return "devtooling_trust" }

// MetricScoring scores onchain projects from weighted usage metrics.
type MetricScoring struct{}

// Name implements Algorithm.
func (MetricScoring) Name() string { return "onchain_metrics" }

// AlgorithmByName resolves an algorithm family identifier to its member of
// the closed set.
func AlgorithmByName(name string) (Algorithm, error) {
	switch name {
	case TrustPropagation{}.Name():
		return TrustPropagation{}, nil
	case MetricScoring{}.Name():
		return MetricScoring{}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", name)
	}
}

// Compute validates the snapshot, runs the selected algorithm, and returns
// the score vector over eligible projects. Every failure is fatal and fails
// closed; no partial score vector is ever returned.
func Compute(alg Algorithm, in Inputs, cfg *config.Config) (map[string]float64, error) {
	if in.Snapshot == nil {
		return nil, fmt.Errorf("compute: nil snapshot")
	}
	if err := in.Snapshot.Validate(); err != nil {
		return nil, err
	}
	return alg.compute(in, cfg)
}

func (TrustPropagation) compute(in Inputs, cfg *config.Config) (map[string]float64, error) {
	s := in.Snapshot
	sim := &cfg.Simulation

	scheme := graph.WeightScheme{
		LinkTypeWeights:  make(map[graph.EdgeType]float64, len(sim.LinkTypeWeights)),
		EventTypeWeights: sim.EventTypeWeights,
		DecayFactors:     make(map[graph.EdgeType]float64, len(sim.LinkTypeDecay)),
	}
	for name, w := range sim.LinkTypeWeights {
		scheme.LinkTypeWeights[graph.EdgeType(name)] = w
	}
	for name, d := range sim.LinkTypeDecay {
		scheme.DecayFactors[graph.EdgeType(name)] = d
	}

	periodLength := time.Duration(sim.Periods.LengthDays) * 24 * time.Hour
	adj, err := graph.BuildAdjacency(s, scheme, periodLength)
	if err != nil {
		return nil, err
	}

	onchainPT, err := trust.BuildPretrust(s, graph.KindOnchain, sim.OnchainPretrustWeights)
	if err != nil {
		return nil, err
	}
	devtoolingPT, err := trust.BuildPretrust(s, graph.KindDevtooling, sim.DevtoolingPretrustWeights)
	if err != nil {
		return nil, err
	}

	alphaOnchain, alphaDevtooling, err := sim.ResolveAlphas()
	if err != nil {
		return nil, err
	}

	res, err := trust.Propagate(s, adj, onchainPT, devtoolingPT, trust.Params{
		AlphaOnchain:    alphaOnchain,
		AlphaDevtooling: alphaDevtooling,
		Tolerance:       sim.ConvergenceTolerance,
		MaxIterations:   sim.MaxIterations,
	})
	if err != nil {
		return nil, err
	}

	scores := res.Scores
	if len(sim.UtilityWeights) > 0 {
		categories := make(map[string]string)
		for id, p := range s.Projects {
			if p.Kind == graph.KindDevtooling && p.Category != "" {
				categories[id] = p.Category
			}
		}
		scores = trust.ApplyUtilityMultipliers(scores, categories, sim.UtilityWeights)
	}

	report := eligibility.FilterDevtooling(s, eligibility.DevtoolingCriteria{
		MinPackageLinks:   sim.Eligibility.MinPackageLinks,
		MinDeveloperLinks: sim.Eligibility.MinDeveloperLinks,
	})
	return normalize(eligibility.Restrict(scores, report.Eligible)), nil
}

func (MetricScoring) compute(in Inputs, cfg *config.Config) (map[string]float64, error) {
	s := in.Snapshot
	sim := &cfg.Simulation

	for _, obs := range in.Observations {
		if obs.Amount < 0 {
			return nil, &graph.IntegrityError{
				Subject: obs.ProjectID,
				Reason:  fmt.Sprintf("negative raw metric %s = %v", obs.Metric, obs.Amount),
			}
		}
		if _, ok := s.Projects[obs.ProjectID]; !ok {
			return nil, &graph.IntegrityError{
				Subject: obs.ProjectID,
				Reason:  fmt.Sprintf("metric observation references missing project (%s)", obs.Metric),
			}
		}
	}

	projectChains := make(map[string][]string)
	for _, obs := range in.Observations {
		if obs.Period == sim.Periods.Current {
			projectChains[obs.ProjectID] = append(projectChains[obs.ProjectID], obs.Chain)
		}
	}

	report := eligibility.FilterOnchain(s, projectChains, eligibility.OnchainCriteria{
		Chains:      sim.Chains,
		RequireFlag: sim.EligibilityFilter,
	})
	eligible := make(map[string]bool, len(report.Eligible))
	for _, id := range report.Eligible {
		eligible[id] = true
	}

	observations := make([]metrics.Observation, 0, len(in.Observations))
	for _, obs := range in.Observations {
		if eligible[obs.ProjectID] {
			observations = append(observations, obs)
		}
	}

	res, err := metrics.Score(observations, metrics.Params{
		PreviousPeriod: sim.Periods.Previous,
		CurrentPeriod:  sim.Periods.Current,
		ChainWeights:   sim.Chains,
		MetricWeights:  sim.Metrics,
		VariantWeights: sim.MetricVariants,
		PercentileCap:  sim.PercentileCap,
		TVLMinimum:     sim.TVLMinimum,
		TVLMaximum:     sim.TVLMaximum,
	})
	if err != nil {
		return nil, err
	}
	return res.Scores, nil
}

// Reward is one per-project allocation record, serialized for downstream
// consolidation across algorithms and periods.
type Reward struct {
	ProjectID   string  `json:"project_id"`
	ProjectName string  `json:"project_name"`
	DisplayName string  `json:"display_name,omitempty"`
	Score       float64 `json:"score"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// AllocationResult is the complete output of one allocation pass.
type AllocationResult struct {
	RunID     string    `json:"run_id"`
	Round     string    `json:"round"`
	Period    string    `json:"period"`
	Algorithm string    `json:"algorithm"`
	Budget    float64   `json:"budget"`
	Currency  string    `json:"currency"`
	Rewards   []Reward  `json:"rewards"`
	CreatedAt time.Time `json:"created_at"`
}

// Allocate distributes the allocation budget over the score vector and
// attaches project metadata from the snapshot. Only funded projects appear
// in the result, ordered by descending amount then id.
func Allocate(alg Algorithm, scores map[string]float64, s *graph.Snapshot, ac config.Allocation) (*AllocationResult, error) {
	amounts, err := allocate.Allocate(scores, allocate.Config{
		Budget:              ac.Budget,
		MinAmountPerProject: ac.MinAmountPerProject,
		MaxSharePerProject:  ac.MaxSharePerProject,
		CurrencyUnit:        ac.CurrencyUnit,
	})
	if err != nil {
		return nil, err
	}

	result := &AllocationResult{
		RunID:     uuid.New().String(),
		Round:     s.Round,
		Period:    s.Period,
		Algorithm: alg.Name(),
		Budget:    ac.Budget,
		Currency:  ac.CurrencyUnit,
		CreatedAt: time.Now().UTC(),
	}
	for id, amount := range amounts {
		if amount <= 0 {
			continue
		}
		reward := Reward{
			ProjectID: id,
			Score:     scores[id],
			Amount:    amount,
			Currency:  ac.CurrencyUnit,
		}
		if p, ok := s.Projects[id]; ok {
			reward.ProjectName = p.Name
			reward.DisplayName = p.DisplayName
		}
		result.Rewards = append(result.Rewards, reward)
	}
	sort.Slice(result.Rewards, func(i, j int) bool {
		if result.Rewards[i].Amount != result.Rewards[j].Amount {
			return result.Rewards[i].Amount > result.Rewards[j].Amount
		}
		return result.Rewards[i].ProjectID < result.Rewards[j].ProjectID
	})
	return result, nil
}

func normalize(scores map[string]float64) map[string]float64 {
	var total float64
	for _, v := range scores {
		total += v
	}
	if total == 0 {
		return scores
	}
	out := make(map[string]float64, len(scores))
	for id, v := range scores {
		out[id] = v / total
	}
	return out
}
