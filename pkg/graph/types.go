// Package graph defines the core data model for Fundgraph: the heterogeneous
// contribution graph linking onchain projects, developers, and devtooling
// projects for one measurement period. These types are the shared vocabulary
// across all modules.
package graph

import (
	"sort"
	"time"
)

// ProjectKind partitions the project population.
type ProjectKind string

const (
	KindOnchain    ProjectKind = "onchain"
	KindDevtooling ProjectKind = "devtooling"
)

// EdgeType identifies the three supported link families. Edges of any other
// type are rejected during snapshot construction.
type EdgeType string

const (
	// EdgePackageDependency links an onchain project to a devtooling project
	// it depends on through a package registry.
	EdgePackageDependency EdgeType = "package_dependency"
	// EdgeOnchainToDeveloper links an onchain project to a developer who
	// contributed to it.
	EdgeOnchainToDeveloper EdgeType = "onchain_project_to_developer"
	// EdgeDeveloperToDevtooling links a developer to a devtooling project
	// they engaged with (commits, PRs, issues, stars, forks).
	EdgeDeveloperToDevtooling EdgeType = "developer_to_devtooling_project"
)

// KnownEdgeTypes lists every edge type the engine accepts.
var KnownEdgeTypes = []EdgeType{
	EdgePackageDependency,
	EdgeOnchainToDeveloper,
	EdgeDeveloperToDevtooling,
}

// Raw attribute names carried on projects. Onchain projects carry activity
// totals; devtooling projects carry repository popularity counts.
const (
	AttrStarCount        = "star_count"
	AttrForkCount        = "fork_count"
	AttrPackageCount     = "num_packages"
	AttrTransactionCount = "transaction_count"
	AttrGasFees          = "gas_fees"
	AttrActiveDays       = "active_days"
	AttrTVL              = "tvl"
)

// Project is a funding candidate or graph endpoint.
// Immutable once a snapshot is built.
type Project struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name,omitempty"`
	Kind        ProjectKind        `json:"kind"`
	Category    string             `json:"category,omitempty"` // utility label, devtooling only
	IsEligible  bool               `json:"is_eligible"`
	Attributes  map[string]float64 `json:"attributes,omitempty"`
}

// Attr returns a raw attribute value, or 0 if absent.
func (p *Project) Attr(name string) float64 {
	if p.Attributes == nil {
		return 0
	}
	return p.Attributes[name]
}

// Developer participates only as a graph intermediary and is never funded
// directly.
type Developer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Edge is a directed, typed link between two graph nodes. Multiple edges may
// exist between the same ordered pair; they are aggregated during adjacency
// construction.
type Edge struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Type       EdgeType  `json:"type"`
	Subtype    string    `json:"subtype,omitempty"` // event subtype: NPM, COMMIT_CODE, ...
	Weight     float64   `json:"weight"`            // raw event weight
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// Key returns a stable string key for the (from, to, type) triple.
func (e Edge) Key() string {
	return e.From + "|" + e.To + "|" + string(e.Type)
}

// SnapshotStats holds summary statistics for a snapshot.
type SnapshotStats struct {
	OnchainProjectCount    int `json:"onchain_project_count"`
	DevtoolingProjectCount int `json:"devtooling_project_count"`
	DeveloperCount         int `json:"developer_count"`
	EdgeCount              int `json:"edge_count"`
}

// Snapshot is a frozen view of the contribution graph and project metadata
// for one (round, measurement period). Snapshots are immutable once created;
// every run is a pure function of its snapshot and weight configuration.
type Snapshot struct {
	ID         string                `json:"id"`
	Round      string                `json:"round"`
	Period     string                `json:"period"`
	Projects   map[string]*Project   `json:"projects"`
	Developers map[string]*Developer `json:"developers"`
	Edges      []Edge                `json:"edges"`
	Stats      SnapshotStats         `json:"stats"`
	CapturedAt time.Time             `json:"captured_at"`
}

// ProjectsOfKind returns the ids of all projects in one partition, sorted for
// deterministic iteration.
func (s *Snapshot) ProjectsOfKind(kind ProjectKind) []string {
	ids := make([]string, 0, len(s.Projects))
	for id, p := range s.Projects {
		if p.Kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ComputeStats recounts the snapshot statistics from its contents.
func (s *Snapshot) ComputeStats() {
	stats := SnapshotStats{
		DeveloperCount: len(s.Developers),
		EdgeCount:      len(s.Edges),
	}
	for _, p := range s.Projects {
		switch p.Kind {
		case KindOnchain:
			stats.OnchainProjectCount++
		case KindDevtooling:
			stats.DevtoolingProjectCount++
		}
	}
	s.Stats = stats
}
