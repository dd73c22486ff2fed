package graph_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/graph"
)

func testSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	captured := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
	s := &graph.Snapshot{
		ID:     "snap-1",
		Round:  "round-8",
		Period: "2025-04",
		Projects: map[string]*graph.Project{
			"oc1": {ID: "oc1", Name: "swapper", Kind: graph.KindOnchain,
				Attributes: map[string]float64{graph.AttrTransactionCount: 1000}},
			"dt1": {ID: "dt1", Name: "sdk", Kind: graph.KindDevtooling,
				Attributes: map[string]float64{graph.AttrStarCount: 50}},
		},
		Developers: map[string]*graph.Developer{
			"dev1": {ID: "dev1", Name: "alice"},
		},
		Edges: []graph.Edge{
			{From: "oc1", To: "dt1", Type: graph.EdgePackageDependency, Subtype: "NPM", Weight: 1},
			{From: "oc1", To: "dev1", Type: graph.EdgeOnchainToDeveloper, Weight: 2},
			{From: "dev1", To: "dt1", Type: graph.EdgeDeveloperToDevtooling, Subtype: "COMMIT_CODE", Weight: 3,
				OccurredAt: captured.AddDate(0, -2, 0)},
		},
		CapturedAt: captured,
	}
	s.ComputeStats()
	return s
}

func TestValidateAcceptsWellFormedSnapshot(t *testing.T) {
	s := testSnapshot(t)
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestValidateRejectsMissingEndpoint(t *testing.T) {
	s := testSnapshot(t)
	s.Edges = append(s.Edges, graph.Edge{
		From: "oc1", To: "ghost", Type: graph.EdgePackageDependency, Weight: 1,
	})

	err := s.Validate()
	var ie *graph.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Validate() = %v, want IntegrityError", err)
	}
}

func TestValidateRejectsKindMismatch(t *testing.T) {
	s := testSnapshot(t)
	// A package dependency must point at a devtooling project.
	s.Edges = append(s.Edges, graph.Edge{
		From: "oc1", To: "oc1", Type: graph.EdgePackageDependency, Weight: 1,
	})

	var ie *graph.IntegrityError
	if !errors.As(s.Validate(), &ie) {
		t.Fatal("expected IntegrityError for kind mismatch")
	}
}

func TestValidateRejectsNegativeWeightAndAttribute(t *testing.T) {
	s := testSnapshot(t)
	s.Edges[0].Weight = -1
	var ie *graph.IntegrityError
	if !errors.As(s.Validate(), &ie) {
		t.Error("expected IntegrityError for negative edge weight")
	}

	s = testSnapshot(t)
	s.Projects["dt1"].Attributes[graph.AttrStarCount] = -5
	if !errors.As(s.Validate(), &ie) {
		t.Error("expected IntegrityError for negative attribute")
	}
}

func TestValidateRejectsUnknownEdgeType(t *testing.T) {
	s := testSnapshot(t)
	s.Edges = append(s.Edges, graph.Edge{From: "oc1", To: "dt1", Type: "mystery", Weight: 1})

	var ie *graph.IntegrityError
	if !errors.As(s.Validate(), &ie) {
		t.Fatal("expected IntegrityError for unknown edge type")
	}
}

func defaultScheme() graph.WeightScheme {
	return graph.WeightScheme{
		LinkTypeWeights: map[graph.EdgeType]float64{
			graph.EdgePackageDependency:     1,
			graph.EdgeOnchainToDeveloper:    1,
			graph.EdgeDeveloperToDevtooling: 1,
		},
	}
}

func TestBuildAdjacencyAggregatesDuplicates(t *testing.T) {
	s := testSnapshot(t)
	s.Edges = append(s.Edges, graph.Edge{
		From: "oc1", To: "dt1", Type: graph.EdgePackageDependency, Subtype: "CARGO", Weight: 2,
	})

	adj, err := graph.BuildAdjacency(s, defaultScheme(), 30*24*time.Hour)
	if err != nil {
		t.Fatalf("BuildAdjacency() error: %v", err)
	}

	if got := adj.Weight(graph.EdgePackageDependency, "oc1", "dt1"); got != 3 {
		t.Errorf("aggregated weight = %v, want 3", got)
	}
	if srcs := adj.Sources(graph.EdgePackageDependency, "dt1"); len(srcs) != 1 || srcs[0] != "oc1" {
		t.Errorf("Sources = %v, want [oc1]", srcs)
	}
}

func TestBuildAdjacencyAppliesEventAndLinkWeights(t *testing.T) {
	s := testSnapshot(t)
	scheme := defaultScheme()
	scheme.LinkTypeWeights[graph.EdgeDeveloperToDevtooling] = 0.5
	scheme.EventTypeWeights = map[string]float64{"COMMIT_CODE": 2}

	adj, err := graph.BuildAdjacency(s, scheme, 0)
	if err != nil {
		t.Fatalf("BuildAdjacency() error: %v", err)
	}

	// raw 3 × event 2 × link 0.5, no decay with zero period length.
	if got := adj.Weight(graph.EdgeDeveloperToDevtooling, "dev1", "dt1"); got != 3 {
		t.Errorf("effective weight = %v, want 3", got)
	}
}

func TestBuildAdjacencyAppliesDecayPerWholePeriod(t *testing.T) {
	s := testSnapshot(t)
	scheme := defaultScheme()
	scheme.DecayFactors = map[graph.EdgeType]float64{graph.EdgeDeveloperToDevtooling: 0.5}

	// The developer edge occurred two months before capture: exactly 2 whole
	// 30-day periods, so weight is raw × 0.5².
	adj, err := graph.BuildAdjacency(s, scheme, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("BuildAdjacency() error: %v", err)
	}
	if got := adj.Weight(graph.EdgeDeveloperToDevtooling, "dev1", "dt1"); got != 0.75 {
		t.Errorf("decayed weight = %v, want 0.75", got)
	}

	// Untimestamped edges decay nothing.
	if got := adj.Weight(graph.EdgePackageDependency, "oc1", "dt1"); got != 1 {
		t.Errorf("untimestamped weight = %v, want 1", got)
	}
}

func TestBuildAdjacencyRejectsUnconfiguredLinkType(t *testing.T) {
	s := testSnapshot(t)
	scheme := defaultScheme()
	delete(scheme.LinkTypeWeights, graph.EdgeOnchainToDeveloper)

	_, err := graph.BuildAdjacency(s, scheme, 0)
	var ve *config.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("BuildAdjacency() = %v, want ValidationError", err)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	s := testSnapshot(t)

	data, err := graph.EncodeSnapshot(s)
	if err != nil {
		t.Fatalf("EncodeSnapshot() error: %v", err)
	}
	got, err := graph.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error: %v", err)
	}

	if got.ID != s.ID || got.Round != s.Round || got.Period != s.Period {
		t.Errorf("metadata mismatch: got %s/%s/%s", got.ID, got.Round, got.Period)
	}
	if len(got.Projects) != 2 || len(got.Developers) != 1 || len(got.Edges) != 3 {
		t.Errorf("counts mismatch: %d projects, %d developers, %d edges",
			len(got.Projects), len(got.Developers), len(got.Edges))
	}
	if got.Stats != s.Stats {
		t.Errorf("stats = %+v, want %+v", got.Stats, s.Stats)
	}
}

func TestProjectsOfKindSorted(t *testing.T) {
	s := testSnapshot(t)
	s.Projects["dt0"] = &graph.Project{ID: "dt0", Kind: graph.KindDevtooling}

	got := s.ProjectsOfKind(graph.KindDevtooling)
	if len(got) != 2 || got[0] != "dt0" || got[1] != "dt1" {
		t.Errorf("ProjectsOfKind = %v, want [dt0 dt1]", got)
	}
}
