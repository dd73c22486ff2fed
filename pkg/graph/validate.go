package graph

import "fmt"

// IntegrityError reports a structural defect in a snapshot: an edge
// referencing a missing node, a duplicate project id, or a negative raw
// value. Integrity errors are fatal; a run never continues past one.
type IntegrityError struct {
	Subject string // offending project, developer, or edge key
	Reason  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("snapshot integrity: %s: %s", e.Subject, e.Reason)
}

// Validate checks snapshot integrity. It verifies that every edge endpoint
// resolves to a known project or developer for its edge type, and that no
// raw attribute or edge weight is negative.
func (s *Snapshot) Validate() error {
	for id, p := range s.Projects {
		if p.ID != id {
			return &IntegrityError{Subject: id, Reason: fmt.Sprintf("project keyed as %q but carries id %q", id, p.ID)}
		}
		for name, v := range p.Attributes {
			if v < 0 {
				return &IntegrityError{Subject: id, Reason: fmt.Sprintf("negative raw attribute %s = %v", name, v)}
			}
		}
	}

	for _, e := range s.Edges {
		if e.Weight < 0 {
			return &IntegrityError{Subject: e.Key(), Reason: fmt.Sprintf("negative edge weight %v", e.Weight)}
		}
		switch e.Type {
		case EdgePackageDependency:
			if err := s.requireProject(e.From, KindOnchain, e); err != nil {
				return err
			}
			if err := s.requireProject(e.To, KindDevtooling, e); err != nil {
				return err
			}
		case EdgeOnchainToDeveloper:
			if err := s.requireProject(e.From, KindOnchain, e); err != nil {
				return err
			}
			if err := s.requireDeveloper(e.To, e); err != nil {
				return err
			}
		case EdgeDeveloperToDevtooling:
			if err := s.requireDeveloper(e.From, e); err != nil {
				return err
			}
			if err := s.requireProject(e.To, KindDevtooling, e); err != nil {
				return err
			}
		default:
			// Unknown types are a configuration problem, reported by
			// BuildAdjacency; here we only check referential integrity.
			return &IntegrityError{Subject: e.Key(), Reason: fmt.Sprintf("edge of unknown type %q", e.Type)}
		}
	}
	return nil
}

func (s *Snapshot) requireProject(id string, kind ProjectKind, e Edge) error {
	p, ok := s.Projects[id]
	if !ok {
		return &IntegrityError{Subject: e.Key(), Reason: fmt.Sprintf("edge references missing project %q", id)}
	}
	if p.Kind != kind {
		return &IntegrityError{Subject: e.Key(), Reason: fmt.Sprintf("edge of type %s expects a %s project at %q, found %s", e.Type, kind, id, p.Kind)}
	}
	return nil
}

func (s *Snapshot) requireDeveloper(id string, e Edge) error {
	if _, ok := s.Developers[id]; !ok {
		return &IntegrityError{Subject: e.Key(), Reason: fmt.Sprintf("edge references missing developer %q", id)}
	}
	return nil
}
