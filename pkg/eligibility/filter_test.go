package eligibility_test

import (
	"testing"

	"github.com/fundgraph/fundgraph/pkg/eligibility"
	"github.com/fundgraph/fundgraph/pkg/graph"
)

func devtoolingSnapshot(t *testing.T) *graph.Snapshot {
	t.Helper()
	s := &graph.Snapshot{
		Projects: map[string]*graph.Project{
			"oc1": {ID: "oc1", Kind: graph.KindOnchain},
			"oc2": {ID: "oc2", Kind: graph.KindOnchain},
			// dt1: two package links, one developer link.
			"dt1": {ID: "dt1", Kind: graph.KindDevtooling},
			// dt2: one package link, no developer links.
			"dt2": {ID: "dt2", Kind: graph.KindDevtooling},
			// dt3: unlinked.
			"dt3": {ID: "dt3", Kind: graph.KindDevtooling},
		},
		Developers: map[string]*graph.Developer{
			"dev1": {ID: "dev1"},
		},
		Edges: []graph.Edge{
			{From: "oc1", To: "dt1", Type: graph.EdgePackageDependency, Weight: 1},
			{From: "oc2", To: "dt1", Type: graph.EdgePackageDependency, Weight: 1},
			// Duplicate edge from the same source counts once.
			{From: "oc1", To: "dt2", Type: graph.EdgePackageDependency, Weight: 1},
			{From: "oc1", To: "dt2", Type: graph.EdgePackageDependency, Weight: 2},
			{From: "dev1", To: "dt1", Type: graph.EdgeDeveloperToDevtooling, Weight: 1},
		},
	}
	s.ComputeStats()
	return s
}

func TestFilterDevtoolingThresholds(t *testing.T) {
	s := devtoolingSnapshot(t)

	report := eligibility.FilterDevtooling(s, eligibility.DevtoolingCriteria{
		MinPackageLinks:   2,
		MinDeveloperLinks: 1,
	})

	if len(report.Eligible) != 1 || report.Eligible[0] != "dt1" {
		t.Errorf("Eligible = %v, want [dt1]", report.Eligible)
	}
	if _, ok := report.Excluded["dt2"]; !ok {
		t.Error("dt2 should be excluded (one distinct package link)")
	}
	if _, ok := report.Excluded["dt3"]; !ok {
		t.Error("dt3 should be excluded (unlinked)")
	}
}

func TestFilterDevtoolingDistinctSources(t *testing.T) {
	s := devtoolingSnapshot(t)

	// dt2 has two package edges but only one distinct source.
	report := eligibility.FilterDevtooling(s, eligibility.DevtoolingCriteria{MinPackageLinks: 2})
	if _, ok := report.Excluded["dt2"]; !ok {
		t.Error("duplicate edges from one source must count as one link")
	}
}

func TestFilterDevtoolingZeroThresholdsKeepAll(t *testing.T) {
	s := devtoolingSnapshot(t)

	report := eligibility.FilterDevtooling(s, eligibility.DevtoolingCriteria{})
	if len(report.Eligible) != 3 {
		t.Errorf("Eligible = %v, want all three devtooling projects", report.Eligible)
	}
}

func TestFilterOnchain(t *testing.T) {
	s := &graph.Snapshot{
		Projects: map[string]*graph.Project{
			"flagged":    {ID: "flagged", Kind: graph.KindOnchain, IsEligible: true},
			"unflagged":  {ID: "unflagged", Kind: graph.KindOnchain},
			"wrongchain": {ID: "wrongchain", Kind: graph.KindOnchain, IsEligible: true},
		},
	}
	projectChains := map[string][]string{
		"flagged":    {"optimism"},
		"unflagged":  {"OPTIMISM"},
		"wrongchain": {"SOLANA"},
	}

	report := eligibility.FilterOnchain(s, projectChains, eligibility.OnchainCriteria{
		Chains:      map[string]float64{"OPTIMISM": 1},
		RequireFlag: true,
	})

	if len(report.Eligible) != 1 || report.Eligible[0] != "flagged" {
		t.Errorf("Eligible = %v, want [flagged]", report.Eligible)
	}
	if report.Excluded["unflagged"] != "failed eligibility flag" {
		t.Errorf("unflagged excluded for %q", report.Excluded["unflagged"])
	}
	if report.Excluded["wrongchain"] != "no activity on a configured chain" {
		t.Errorf("wrongchain excluded for %q", report.Excluded["wrongchain"])
	}
}

func TestRestrict(t *testing.T) {
	scores := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}

	got := eligibility.Restrict(scores, []string{"a", "c"})
	if len(got) != 2 {
		t.Fatalf("Restrict kept %d scores, want 2", len(got))
	}
	if _, ok := got["b"]; ok {
		t.Error("b should have been dropped")
	}
}
