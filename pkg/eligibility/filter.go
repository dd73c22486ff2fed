// Package eligibility removes projects that fail structural or threshold
// criteria. Filtering runs before allocation: an excluded project receives
// no payout even when its raw score would have been positive.
package eligibility

import (
	"sort"
	"strings"

	"github.com/fundgraph/fundgraph/pkg/graph"
)

// DevtoolingCriteria are the structural thresholds a devtooling project must
// meet: enough distinct package-dependency links from onchain projects and
// enough distinct linked developers.
type DevtoolingCriteria struct {
	MinPackageLinks   int
	MinDeveloperLinks int
}

// OnchainCriteria filter the onchain partition.
type OnchainCriteria struct {
	// Chains is the configured chain set; a project must have activity on at
	// least one of them. Empty means no chain restriction.
	Chains map[string]float64
	// RequireFlag enforces the snapshot's per-project eligibility flag (the
	// master switch).
	RequireFlag bool
}

// Report records which projects survived and why the rest were excluded.
type Report struct {
	Eligible []string
	// Excluded maps project id to the failed criterion.
	Excluded map[string]string
}

// FilterDevtooling evaluates the devtooling partition against the criteria.
// Link counts are over distinct raw edges, not decay-weighted mass, so an
// old-but-real integration still counts toward the threshold.
func FilterDevtooling(s *graph.Snapshot, c DevtoolingCriteria) *Report {
	packageLinks := make(map[string]map[string]bool)
	developerLinks := make(map[string]map[string]bool)
	for _, e := range s.Edges {
		switch e.Type {
		case graph.EdgePackageDependency:
			addLink(packageLinks, e.To, e.From)
		case graph.EdgeDeveloperToDevtooling:
			addLink(developerLinks, e.To, e.From)
		}
	}

	report := &Report{Excluded: make(map[string]string)}
	for _, id := range s.ProjectsOfKind(graph.KindDevtooling) {
		switch {
		case len(packageLinks[id]) < c.MinPackageLinks:
			report.Excluded[id] = "insufficient package-dependency links"
		case len(developerLinks[id]) < c.MinDeveloperLinks:
			report.Excluded[id] = "insufficient linked developers"
		default:
			report.Eligible = append(report.Eligible, id)
		}
	}
	sort.Strings(report.Eligible)
	return report
}

// FilterOnchain evaluates the onchain partition. projectChains maps each
// project to the chains it was observed on during the measurement period.
func FilterOnchain(s *graph.Snapshot, projectChains map[string][]string, c OnchainCriteria) *Report {
	report := &Report{Excluded: make(map[string]string)}
	for _, id := range s.ProjectsOfKind(graph.KindOnchain) {
		p := s.Projects[id]
		switch {
		case c.RequireFlag && !p.IsEligible:
			report.Excluded[id] = "failed eligibility flag"
		case len(c.Chains) > 0 && !onConfiguredChain(projectChains[id], c.Chains):
			report.Excluded[id] = "no activity on a configured chain"
		default:
			report.Eligible = append(report.Eligible, id)
		}
	}
	sort.Strings(report.Eligible)
	return report
}

// Restrict drops scores for projects outside the eligible set.
func Restrict(scores map[string]float64, eligible []string) map[string]float64 {
	allowed := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		allowed[id] = true
	}
	out := make(map[string]float64, len(eligible))
	for id, score := range scores {
		if allowed[id] {
			out[id] = score
		}
	}
	return out
}

func addLink(links map[string]map[string]bool, to, from string) {
	set := links[to]
	if set == nil {
		set = make(map[string]bool)
		links[to] = set
	}
	set[from] = true
}

func onConfiguredChain(chains []string, configured map[string]float64) bool {
	for _, chain := range chains {
		if _, ok := configured[strings.ToUpper(chain)]; ok {
			return true
		}
	}
	return false
}
