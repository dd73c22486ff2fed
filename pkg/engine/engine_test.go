package engine_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/engine"
	"github.com/fundgraph/fundgraph/pkg/graph"
	"github.com/fundgraph/fundgraph/pkg/metrics"
)

func trustSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	s := &graph.Snapshot{
		ID:     "snap1",
		Round:  "round-8",
		Period: "2025-04",
		Projects: map[string]*graph.Project{
			"oc1": {ID: "oc1", Kind: graph.KindOnchain, Attributes: map[string]float64{graph.AttrTransactionCount: 900}},
			"oc2": {ID: "oc2", Kind: graph.KindOnchain, Attributes: map[string]float64{graph.AttrTransactionCount: 100}},
			"dt1": {ID: "dt1", Kind: graph.KindDevtooling, Attributes: map[string]float64{graph.AttrStarCount: 50}},
			"dt2": {ID: "dt2", Kind: graph.KindDevtooling, Attributes: map[string]float64{graph.AttrStarCount: 50}},
		},
		Developers: map[string]*graph.Developer{
			"dev1": {ID: "dev1"},
		},
		Edges: []graph.Edge{
			{From: "oc1", To: "dt1", Type: graph.EdgePackageDependency, Weight: 1},
			{From: "oc2", To: "dt1", Type: graph.EdgePackageDependency, Weight: 1},
			{From: "oc1", To: "dt2", Type: graph.EdgePackageDependency, Weight: 1},
			{From: "oc1", To: "dev1", Type: graph.EdgeOnchainToDeveloper, Weight: 1},
			{From: "dev1", To: "dt1", Type: graph.EdgeDeveloperToDevtooling, Subtype: "COMMIT_CODE", Weight: 1},
		},
		CapturedAt: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	}
	s.ComputeStats()
	return s
}

func trustConfig(t *testing.T) *config.Config {
	t.Helper()
	alpha := 0.5
	return &config.Config{
		Simulation: config.Simulation{
			Periods: config.Periods{Previous: "2025-03", Current: "2025-04", LengthDays: 30},
			Alpha:   &alpha,
			LinkTypeWeights: map[string]float64{
				string(graph.EdgePackageDependency):     0.4,
				string(graph.EdgeOnchainToDeveloper):    0.3,
				string(graph.EdgeDeveloperToDevtooling): 0.3,
			},
			OnchainPretrustWeights:    map[string]float64{graph.AttrTransactionCount: 1},
			DevtoolingPretrustWeights: map[string]float64{graph.AttrStarCount: 1},
			MaxIterations:             200,
			ConvergenceTolerance:      1e-9,
			Eligibility:               config.Eligibility{MinPackageLinks: 1},
		},
		Allocation: config.Allocation{Budget: 1000, CurrencyUnit: "OP"},
	}
}

func TestComputeNilSnapshot(t *testing.T) {
	_, err := engine.Compute(engine.TrustPropagation{}, engine.Inputs{}, trustConfig(t))
	if err == nil {
		t.Fatal("Compute should reject a nil snapshot")
	}
}

func TestComputeRejectsBrokenSnapshot(t *testing.T) {
	s := trustSnapshot(t)
	s.Edges = append(s.Edges, graph.Edge{
		From: "oc1", To: "ghost", Type: graph.EdgePackageDependency, Weight: 1,
	})

	_, err := engine.Compute(engine.TrustPropagation{}, engine.Inputs{Snapshot: s}, trustConfig(t))
	var ie *graph.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Compute error = %v, want IntegrityError", err)
	}
}

func TestComputeTrustPropagation(t *testing.T) {
	scores, err := engine.Compute(engine.TrustPropagation{}, engine.Inputs{Snapshot: trustSnapshot(t)}, trustConfig(t))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if len(scores) != 2 {
		t.Fatalf("scores = %v, want the two devtooling projects", scores)
	}
	var total float64
	for id, v := range scores {
		if v < 0 {
			t.Errorf("score[%s] = %v, want >= 0", id, v)
		}
		total += v
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("scores sum to %v, want 1", total)
	}
	// dt1 receives both package links and the developer link.
	if scores["dt1"] <= scores["dt2"] {
		t.Errorf("scores = %v, want dt1 above dt2", scores)
	}
}

func TestComputeTrustPropagationEligibilityCut(t *testing.T) {
	cfg := trustConfig(t)
	cfg.Simulation.Eligibility.MinPackageLinks = 2

	scores, err := engine.Compute(engine.TrustPropagation{}, engine.Inputs{Snapshot: trustSnapshot(t)}, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("scores = %v, want only dt1", scores)
	}
	if math.Abs(scores["dt1"]-1) > 1e-9 {
		t.Errorf("scores[dt1] = %v, want 1 after renormalization", scores["dt1"])
	}
}

func metricSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	s := &graph.Snapshot{
		ID:     "snap2",
		Round:  "round-8",
		Period: "2025-04",
		Projects: map[string]*graph.Project{
			"oc1": {ID: "oc1", Kind: graph.KindOnchain, IsEligible: true},
			"oc2": {ID: "oc2", Kind: graph.KindOnchain, IsEligible: true},
			"oc3": {ID: "oc3", Kind: graph.KindOnchain, IsEligible: false},
		},
		CapturedAt: time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	}
	s.ComputeStats()
	return s
}

func metricConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Simulation: config.Simulation{
			Periods:           config.Periods{Previous: "2025-03", Current: "2025-04", LengthDays: 30},
			Chains:            map[string]float64{"OPTIMISM": 1},
			Metrics:           map[string]float64{"transaction_count": 1},
			MetricVariants:    map[string]float64{config.VariantAdoption: 0.5, config.VariantGrowth: 0.25, config.VariantRetention: 0.25},
			PercentileCap:     100,
			EligibilityFilter: true,
		},
		Allocation: config.Allocation{Budget: 1000, CurrencyUnit: "OP"},
	}
}

func metricObservations(project string, prev, cur float64) []metrics.Observation {
	return []metrics.Observation{
		{ProjectID: project, Chain: "OPTIMISM", Metric: "transaction_count", Period: "2025-03", Amount: prev},
		{ProjectID: project, Chain: "OPTIMISM", Metric: "transaction_count", Period: "2025-04", Amount: cur},
	}
}

func TestComputeMetricScoring(t *testing.T) {
	in := engine.Inputs{
		Snapshot: metricSnapshot(t),
		Observations: append(
			metricObservations("oc1", 500, 1000),
			append(metricObservations("oc2", 100, 150),
				metricObservations("oc3", 10000, 20000)...)...,
		),
	}

	scores, err := engine.Compute(engine.MetricScoring{}, in, metricConfig(t))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if _, ok := scores["oc3"]; ok {
		t.Error("oc3 failed the eligibility flag and must not be scored")
	}
	if scores["oc1"] <= scores["oc2"] {
		t.Errorf("scores = %v, want oc1 above oc2", scores)
	}
}

func TestComputeMetricScoringRejectsUnknownProject(t *testing.T) {
	in := engine.Inputs{
		Snapshot:     metricSnapshot(t),
		Observations: metricObservations("ghost", 1, 2),
	}

	_, err := engine.Compute(engine.MetricScoring{}, in, metricConfig(t))
	var ie *graph.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Compute error = %v, want IntegrityError", err)
	}
}

func TestComputeMetricScoringRejectsNegativeAmount(t *testing.T) {
	in := engine.Inputs{
		Snapshot: metricSnapshot(t),
		Observations: []metrics.Observation{
			{ProjectID: "oc1", Chain: "OPTIMISM", Metric: "transaction_count", Period: "2025-04", Amount: -5},
		},
	}

	_, err := engine.Compute(engine.MetricScoring{}, in, metricConfig(t))
	var ie *graph.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Compute error = %v, want IntegrityError", err)
	}
}

func TestAlgorithmByName(t *testing.T) {
	for _, name := range []string{"devtooling_trust", "onchain_metrics"} {
		alg, err := engine.AlgorithmByName(name)
		if err != nil {
			t.Fatalf("AlgorithmByName(%q): %v", name, err)
		}
		if alg.Name() != name {
			t.Errorf("AlgorithmByName(%q).Name() = %q", name, alg.Name())
		}
	}

	if _, err := engine.AlgorithmByName("pagerank"); err == nil {
		t.Error("unknown algorithm name should be rejected")
	}
}

func TestAllocateOrdersAndFilters(t *testing.T) {
	s := trustSnapshot(t)
	s.Projects["dt1"].Name = "toolkit"
	s.Projects["dt1"].DisplayName = "Toolkit"

	scores := map[string]float64{"dt1": 0.7, "dt2": 0.3, "oc1": 0}
	result, err := engine.Allocate(engine.TrustPropagation{}, scores, s, config.Allocation{
		Budget:       1000,
		CurrencyUnit: "OP",
	})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if result.RunID == "" {
		t.Error("RunID should be assigned")
	}
	if result.Round != "round-8" || result.Period != "2025-04" {
		t.Errorf("result carries round %q period %q", result.Round, result.Period)
	}
	if result.Algorithm != "devtooling_trust" {
		t.Errorf("Algorithm = %q", result.Algorithm)
	}
	if len(result.Rewards) != 2 {
		t.Fatalf("Rewards = %+v, want the two funded projects", result.Rewards)
	}
	if result.Rewards[0].ProjectID != "dt1" || result.Rewards[1].ProjectID != "dt2" {
		t.Errorf("rewards out of order: %+v", result.Rewards)
	}
	if result.Rewards[0].ProjectName != "toolkit" || result.Rewards[0].DisplayName != "Toolkit" {
		t.Errorf("reward metadata not attached: %+v", result.Rewards[0])
	}
	if math.Abs(result.Rewards[0].Amount-700) > 1e-6 {
		t.Errorf("Rewards[0].Amount = %v, want 700", result.Rewards[0].Amount)
	}
}

func TestAllocatePropagatesInfeasibility(t *testing.T) {
	s := trustSnapshot(t)
	_, err := engine.Allocate(engine.TrustPropagation{}, map[string]float64{"dt1": 0, "dt2": 0}, s, config.Allocation{
		Budget:       1000,
		CurrencyUnit: "OP",
	})
	if err == nil {
		t.Fatal("Allocate should fail when no project has positive score")
	}
}
