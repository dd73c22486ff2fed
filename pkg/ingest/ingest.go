// Package ingest parses the tabular snapshot inputs — project metadata,
// onchain metrics, dependency graph, developer graph, utility labels — into
// the engine's graph and observation structures. All integrity failures are
// fatal; the loader never patches over a malformed table.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/graph"
	"github.com/fundgraph/fundgraph/pkg/metrics"
)

// Reserved project table columns; every other column is parsed as a numeric
// raw attribute.
var projectColumns = map[string]bool{
	"project_id":   true,
	"project_name": true,
	"display_name": true,
	"kind":         true,
	"category":     true,
	"is_eligible":  true,
}

// LoadSnapshot reads the project, dependency-graph, developer-graph, and
// utility-label tables named by the data snapshot into one immutable graph
// snapshot for the given round and period.
func LoadSnapshot(ds config.DataSnapshot, round, period string) (*graph.Snapshot, error) {
	snap := &graph.Snapshot{
		ID:         uuid.New().String(),
		Round:      round,
		Period:     period,
		Projects:   make(map[string]*graph.Project),
		Developers: make(map[string]*graph.Developer),
		CapturedAt: time.Now().UTC(),
	}

	if err := readTable(filepath.Join(ds.DataDir, ds.ProjectsFile), func(row row) error {
		return addProject(snap, row)
	}); err != nil {
		return nil, err
	}

	if ds.DependencyGraphFile != "" {
		if err := readTable(filepath.Join(ds.DataDir, ds.DependencyGraphFile), func(row row) error {
			return addDependencyEdge(snap, row)
		}); err != nil {
			return nil, err
		}
	}

	if ds.DeveloperGraphFile != "" {
		if err := readTable(filepath.Join(ds.DataDir, ds.DeveloperGraphFile), func(row row) error {
			return addDeveloperEdge(snap, row)
		}); err != nil {
			return nil, err
		}
	}

	if ds.UtilityLabelsFile != "" {
		if err := readTable(filepath.Join(ds.DataDir, ds.UtilityLabelsFile), func(row row) error {
			id := row.get("project_id")
			if p, ok := snap.Projects[id]; ok {
				p.Category = row.get("category")
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	snap.ComputeStats()
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// LoadObservations reads the per-project onchain metric table.
func LoadObservations(ds config.DataSnapshot) ([]metrics.Observation, error) {
	if ds.MetricsFile == "" {
		return nil, nil
	}
	var observations []metrics.Observation
	err := readTable(filepath.Join(ds.DataDir, ds.MetricsFile), func(row row) error {
		amount, err := row.getFloat("amount")
		if err != nil {
			return err
		}
		observations = append(observations, metrics.Observation{
			ProjectID: row.get("project_id"),
			Chain:     row.get("chain"),
			Metric:    row.get("metric_name"),
			Period:    row.get("measurement_period"),
			Amount:    amount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return observations, nil
}

func addProject(snap *graph.Snapshot, row row) error {
	id := row.get("project_id")
	if id == "" {
		return &graph.IntegrityError{Subject: row.source(), Reason: "project row without project_id"}
	}
	if _, exists := snap.Projects[id]; exists {
		return &graph.IntegrityError{Subject: id, Reason: "duplicate project id"}
	}

	kind := graph.ProjectKind(row.get("kind"))
	switch kind {
	case graph.KindOnchain, graph.KindDevtooling:
	default:
		return &config.ValidationError{Field: row.source(), Reason: fmt.Sprintf("project %s has unknown kind %q", id, kind)}
	}

	p := &graph.Project{
		ID:          id,
		Name:        row.get("project_name"),
		DisplayName: row.get("display_name"),
		Kind:        kind,
		Category:    row.get("category"),
		IsEligible:  parseBool(row.get("is_eligible")),
		Attributes:  make(map[string]float64),
	}
	for _, col := range row.columns() {
		if projectColumns[col] {
			continue
		}
		raw := row.get(col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &graph.IntegrityError{Subject: id, Reason: fmt.Sprintf("attribute %s is not numeric: %q", col, raw)}
		}
		p.Attributes[col] = v
	}

	snap.Projects[id] = p
	return nil
}

func addDependencyEdge(snap *graph.Snapshot, row row) error {
	edge := graph.Edge{
		From:    row.get("onchain_project_id"),
		To:      row.get("devtooling_project_id"),
		Type:    graph.EdgePackageDependency,
		Subtype: row.get("dependency_source"),
		Weight:  1,
	}
	if edge.From == "" || edge.To == "" {
		return &graph.IntegrityError{Subject: row.source(), Reason: "dependency edge with empty endpoint"}
	}
	snap.Edges = append(snap.Edges, edge)
	return nil
}

func addDeveloperEdge(snap *graph.Snapshot, row row) error {
	devID := row.get("developer_id")
	projectID := row.get("project_id")
	if devID == "" || projectID == "" {
		return &graph.IntegrityError{Subject: row.source(), Reason: "developer edge with empty endpoint"}
	}

	if _, ok := snap.Developers[devID]; !ok {
		snap.Developers[devID] = &graph.Developer{ID: devID, Name: row.get("developer_name")}
	}

	linkType := graph.EdgeType(row.get("link_type"))
	var edge graph.Edge
	switch linkType {
	case graph.EdgeOnchainToDeveloper:
		edge = graph.Edge{From: projectID, To: devID, Type: linkType}
	case graph.EdgeDeveloperToDevtooling:
		edge = graph.Edge{From: devID, To: projectID, Type: linkType}
	default:
		return &config.ValidationError{Field: row.source(), Reason: fmt.Sprintf("unknown link type %q", linkType)}
	}

	edge.Subtype = row.get("event_type")
	edge.Weight = 1
	if raw := row.get("amount"); raw != "" {
		w, err := row.getFloat("amount")
		if err != nil {
			return err
		}
		edge.Weight = w
	}
	if raw := row.get("event_month"); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return &graph.IntegrityError{Subject: row.source(), Reason: fmt.Sprintf("bad event_month %q: %v", raw, err)}
		}
		edge.OccurredAt = ts
	}

	snap.Edges = append(snap.Edges, edge)
	return nil
}

// row is one CSV record with header-based access.
type row struct {
	path   string
	line   int
	header map[string]int
	fields []string
}

func (r row) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r row) getFloat(col string) (float64, error) {
	raw := r.get(col)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &graph.IntegrityError{Subject: r.source(), Reason: fmt.Sprintf("column %s is not numeric: %q", col, raw)}
	}
	return v, nil
}

func (r row) columns() []string {
	cols := make([]string, len(r.header))
	for name, i := range r.header {
		cols[i] = name
	}
	return cols
}

func (r row) source() string {
	return fmt.Sprintf("%s:%d", filepath.Base(r.path), r.line)
}

func readTable(path string, fn func(row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	headerFields, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header of %s: %w", path, err)
	}
	header := make(map[string]int, len(headerFields))
	for i, name := range headerFields {
		header[strings.TrimSpace(strings.ToLower(name))] = i
	}

	for line := 2; ; line++ {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s:%d: %w", path, line, err)
		}
		if err := fn(row{path: path, line: line, header: header, fields: fields}); err != nil {
			return err
		}
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "t", "1", "yes":
		return true
	}
	return false
}
