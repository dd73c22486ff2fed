package config

import (
	"fmt"
	"math"
)

// ValidationError reports a malformed or inconsistent weight configuration.
// Validation errors are fatal and abort the run before any computation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s", e.Field, e.Reason)
}

// weightSumTolerance is how far a weight group may drift from 1.0 before
// strict validation rejects it.
const weightSumTolerance = 1e-6

// knownLinkTypes mirrors the closed edge-type set in pkg/graph. Kept as
// plain strings so this package stays a leaf.
var knownLinkTypes = map[string]bool{
	"package_dependency":              true,
	"onchain_project_to_developer":    true,
	"developer_to_devtooling_project": true,
}

var knownVariants = map[string]bool{
	VariantAdoption:  true,
	VariantGrowth:    true,
	VariantRetention: true,
}

// Validate checks the full strict invariant set: weight groups required to
// sum to 1 do, every weight is non-negative, and scalar parameters are in
// range.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(strict bool) error {
	s := &c.Simulation

	if err := nonNegative("simulation.chains", s.Chains); err != nil {
		return err
	}
	for _, group := range []struct {
		field   string
		weights map[string]float64
	}{
		{"simulation.metrics", s.Metrics},
		{"simulation.metric_variants", s.MetricVariants},
		{"simulation.onchain_pretrust_weights", s.OnchainPretrustWeights},
		{"simulation.devtooling_pretrust_weights", s.DevtoolingPretrustWeights},
	} {
		if err := nonNegative(group.field, group.weights); err != nil {
			return err
		}
		if strict && len(group.weights) > 0 {
			if err := sumsToOne(group.field, group.weights); err != nil {
				return err
			}
		}
	}

	if err := nonNegative("simulation.event_type_weights", s.EventTypeWeights); err != nil {
		return err
	}
	if err := nonNegative("simulation.link_type_weights", s.LinkTypeWeights); err != nil {
		return err
	}
	if err := nonNegative("simulation.utility_weights", s.UtilityWeights); err != nil {
		return err
	}

	for name := range s.LinkTypeWeights {
		if !knownLinkTypes[name] {
			return &ValidationError{Field: "simulation.link_type_weights", Reason: fmt.Sprintf("unknown link type %q", name)}
		}
	}
	for name, d := range s.LinkTypeDecay {
		if !knownLinkTypes[name] {
			return &ValidationError{Field: "simulation.link_type_decay", Reason: fmt.Sprintf("unknown link type %q", name)}
		}
		if d < 0 || d > 1 {
			return &ValidationError{Field: "simulation.link_type_decay", Reason: fmt.Sprintf("decay for %s is %v, want [0,1]", name, d)}
		}
	}
	for name := range s.MetricVariants {
		if !knownVariants[name] {
			return &ValidationError{Field: "simulation.metric_variants", Reason: fmt.Sprintf("unknown variant %q", name)}
		}
	}

	if s.PercentileCap <= 0 || s.PercentileCap > 100 {
		return &ValidationError{Field: "simulation.percentile_cap", Reason: fmt.Sprintf("is %v, want (0,100]", s.PercentileCap)}
	}
	if s.TVLMinimum < 0 {
		return &ValidationError{Field: "simulation.tvl_minimum", Reason: "must be non-negative"}
	}
	if s.TVLMaximum < 0 {
		return &ValidationError{Field: "simulation.tvl_maximum", Reason: "must be non-negative"}
	}
	if s.TVLMaximum > 0 && s.TVLMaximum < s.TVLMinimum {
		return &ValidationError{Field: "simulation.tvl_maximum", Reason: "below tvl_minimum"}
	}
	if s.MaxIterations < 0 {
		return &ValidationError{Field: "simulation.max_iterations", Reason: "must be non-negative"}
	}
	if s.ConvergenceTolerance < 0 {
		return &ValidationError{Field: "simulation.convergence_tolerance", Reason: "must be non-negative"}
	}
	if s.Eligibility.MinPackageLinks < 0 || s.Eligibility.MinDeveloperLinks < 0 {
		return &ValidationError{Field: "simulation.eligibility", Reason: "thresholds must be non-negative"}
	}

	for _, alpha := range []struct {
		field string
		v     *float64
	}{
		{"simulation.alpha", s.Alpha},
		{"simulation.alpha_onchain", s.AlphaOnchain},
		{"simulation.alpha_devtooling", s.AlphaDevtooling},
	} {
		if alpha.v != nil && (*alpha.v < 0 || *alpha.v > 1) {
			return &ValidationError{Field: alpha.field, Reason: fmt.Sprintf("is %v, want [0,1]", *alpha.v)}
		}
	}

	a := &c.Allocation
	if a.Budget < 0 {
		return &ValidationError{Field: "allocation.budget", Reason: "must be non-negative"}
	}
	if a.MinAmountPerProject < 0 {
		return &ValidationError{Field: "allocation.min_amount_per_project", Reason: "must be non-negative"}
	}
	if a.Budget > 0 && (a.MaxSharePerProject <= 0 || a.MaxSharePerProject > 1) {
		return &ValidationError{Field: "allocation.max_share_per_project", Reason: fmt.Sprintf("is %v, want (0,1]", a.MaxSharePerProject)}
	}

	return nil
}

func nonNegative(field string, weights map[string]float64) error {
	for name, w := range weights {
		if w < 0 {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("weight %q is negative (%v)", name, w)}
		}
	}
	return nil
}

func sumsToOne(field string, weights map[string]float64) error {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("weights sum to %v, want 1", sum)}
	}
	return nil
}
