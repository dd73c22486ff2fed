// Package config handles loading and validating Fundgraph weight
// configurations. A configuration is immutable input to a run: it names the
// snapshot files, every simulation weight and threshold, and the allocation
// envelope. Configurations are versioned per algorithm and measurement
// period and live under the round's weights directory.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level weight configuration for one algorithm run.
type Config struct {
	DataSnapshot DataSnapshot `yaml:"data_snapshot"`
	Simulation   Simulation   `yaml:"simulation"`
	Allocation   Allocation   `yaml:"allocation"`
}

// DataSnapshot names the input files for a run, relative to DataDir.
type DataSnapshot struct {
	DataDir             string `yaml:"data_dir"`
	ProjectsFile        string `yaml:"projects_file"`
	MetricsFile         string `yaml:"metrics_file,omitempty"`
	DependencyGraphFile string `yaml:"dependency_graph_file,omitempty"`
	DeveloperGraphFile  string `yaml:"developer_graph_file,omitempty"`
	UtilityLabelsFile   string `yaml:"utility_labels_file,omitempty"`
}

// Periods names the two adjacent measurement periods a run compares.
type Periods struct {
	Previous string `yaml:"previous"`
	Current  string `yaml:"current"`
	// LengthDays is the measurement period length used for edge age and
	// time decay. Defaults to 30.
	LengthDays int `yaml:"length_days,omitempty"`
}

// Eligibility holds the structural thresholds a devtooling project must meet
// before it can be scored.
type Eligibility struct {
	MinPackageLinks   int `yaml:"min_package_links"`
	MinDeveloperLinks int `yaml:"min_developer_links"`
}

// Simulation holds every weight, decay, and threshold described by the
// algorithm designers. Weight groups that are required to sum to 1 are
// checked by Validate.
type Simulation struct {
	Periods Periods `yaml:"periods"`

	// Onchain metric scoring.
	Chains            map[string]float64 `yaml:"chains,omitempty"`
	Metrics           map[string]float64 `yaml:"metrics,omitempty"`
	MetricVariants    map[string]float64 `yaml:"metric_variants,omitempty"`
	PercentileCap     float64            `yaml:"percentile_cap,omitempty"`
	TVLMinimum        float64            `yaml:"tvl_minimum,omitempty"`
	TVLMaximum        float64            `yaml:"tvl_maximum,omitempty"`
	EligibilityFilter bool               `yaml:"eligibility_filter,omitempty"`

	// Trust propagation. AlphaOnchain/AlphaDevtooling supersede Alpha when
	// present; at least one form is required for trust runs.
	Alpha                *float64 `yaml:"alpha,omitempty"`
	AlphaOnchain         *float64 `yaml:"alpha_onchain,omitempty"`
	AlphaDevtooling      *float64 `yaml:"alpha_devtooling,omitempty"`
	MaxIterations        int      `yaml:"max_iterations,omitempty"`
	ConvergenceTolerance float64  `yaml:"convergence_tolerance,omitempty"`

	LinkTypeWeights           map[string]float64 `yaml:"link_type_weights,omitempty"`
	EventTypeWeights          map[string]float64 `yaml:"event_type_weights,omitempty"`
	LinkTypeDecay             map[string]float64 `yaml:"link_type_decay,omitempty"`
	OnchainPretrustWeights    map[string]float64 `yaml:"onchain_pretrust_weights,omitempty"`
	DevtoolingPretrustWeights map[string]float64 `yaml:"devtooling_pretrust_weights,omitempty"`
	UtilityWeights            map[string]float64 `yaml:"utility_weights,omitempty"`

	Eligibility Eligibility `yaml:"eligibility,omitempty"`
}

// Allocation is the budget envelope for turning scores into payouts.
type Allocation struct {
	Budget              float64 `yaml:"budget"`
	MinAmountPerProject float64 `yaml:"min_amount_per_project"`
	MaxSharePerProject  float64 `yaml:"max_share_per_project"`
	CurrencyUnit        string  `yaml:"currency_unit,omitempty"` // defaults to OP
}

// Metric variant names used by Simulation.MetricVariants.
const (
	VariantAdoption  = "adoption"
	VariantGrowth    = "growth"
	VariantRetention = "retention"
)

// DefaultPeriodLengthDays is the measurement period length assumed when a
// configuration does not set periods.length_days.
const DefaultPeriodLengthDays = 30

// Load reads and strictly decodes a configuration file, then validates it.
// Unknown keys are rejected rather than silently ignored, so a typo in a
// weight name cannot pass as an unused weight.
func Load(path string) (*Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRelaxed reads a configuration without enforcing the sum-to-1 weight
// group invariants. Historical round configurations predate that check and
// violate it loosely; relaxed loading still rejects unknown keys, negative
// weights, and out-of-range parameters.
func LoadRelaxed(path string) (*Config, error) {
	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ValidationError{Field: path, Reason: err.Error()}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Simulation.Periods.LengthDays == 0 {
		c.Simulation.Periods.LengthDays = DefaultPeriodLengthDays
	}
	if c.Simulation.PercentileCap == 0 {
		c.Simulation.PercentileCap = 100
	}
	if c.Allocation.CurrencyUnit == "" {
		c.Allocation.CurrencyUnit = "OP"
	}
}

// ResolveAlphas returns the damping parameters for the two propagation
// passes. Partition-specific values supersede the shared alpha.
func (s *Simulation) ResolveAlphas() (onchain, devtooling float64, err error) {
	shared := s.Alpha
	pick := func(specific *float64, field string) (float64, error) {
		v := shared
		if specific != nil {
			v = specific
		}
		if v == nil {
			return 0, &ValidationError{Field: field, Reason: "no alpha configured (set simulation.alpha or the partition-specific value)"}
		}
		if *v < 0 || *v > 1 {
			return 0, &ValidationError{Field: field, Reason: fmt.Sprintf("alpha is %v, want [0,1]", *v)}
		}
		return *v, nil
	}

	if onchain, err = pick(s.AlphaOnchain, "simulation.alpha_onchain"); err != nil {
		return 0, 0, err
	}
	if devtooling, err = pick(s.AlphaDevtooling, "simulation.alpha_devtooling"); err != nil {
		return 0, 0, err
	}
	return onchain, devtooling, nil
}
