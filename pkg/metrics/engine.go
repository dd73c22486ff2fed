// Package metrics implements the onchain metric scoring engine. It combines
// multiple raw usage metrics across three temporal variants — adoption
// (current value), growth (positive period-over-period change), and
// retention (minimum of both periods) — into one normalized score per
// project, after percentile-capped min-max scaling of every series.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fundgraph/fundgraph/pkg/config"
)

// Observation is one raw measurement: a metric value for a project on one
// chain in one measurement period.
type Observation struct {
	ProjectID string  `json:"project_id"`
	Chain     string  `json:"chain"`
	Metric    string  `json:"metric"`
	Period    string  `json:"period"`
	Amount    float64 `json:"amount"`
}

// Params configures a scoring pass.
type Params struct {
	PreviousPeriod string
	CurrentPeriod  string
	// ChainWeights scale a project's per-chain contributions before
	// aggregation across chains. Chains absent from the map weigh 1.
	ChainWeights map[string]float64
	// MetricWeights must sum to 1 across configured metrics; zero-weight
	// metrics are tolerated and ignored.
	MetricWeights map[string]float64
	// VariantWeights must sum to 1 across adoption/growth/retention.
	VariantWeights map[string]float64
	// PercentileCap in (0,100] clips each series' top tail before scaling.
	PercentileCap float64
	// TVLMinimum/TVLMaximum exclude projects outside the TVL band before
	// scoring. Zero disables the bound.
	TVLMinimum float64
	TVLMaximum float64
}

// Result holds the composite score vector and the projects excluded by the
// TVL band.
type Result struct {
	// Scores maps project id to its composite score in [0,1].
	Scores map[string]float64
	// Excluded lists projects removed before scoring, sorted.
	Excluded []string
}

// Score runs the scoring pipeline over the observations of all candidate
// projects. Weight-group preconditions are re-checked here so a caller
// bypassing config.Load still cannot compute with inconsistent weights.
func Score(observations []Observation, p Params) (*Result, error) {
	if err := checkWeights("simulation.metrics", p.MetricWeights); err != nil {
		return nil, err
	}
	if err := checkWeights("simulation.metric_variants", p.VariantWeights); err != nil {
		return nil, err
	}
	if p.PercentileCap <= 0 || p.PercentileCap > 100 {
		return nil, &config.ValidationError{Field: "simulation.percentile_cap", Reason: fmt.Sprintf("is %v, want (0,100]", p.PercentileCap)}
	}

	metrics := activeMetrics(p.MetricWeights)

	// Aggregate chain-weighted amounts: project → metric → period → value.
	amounts := make(map[string]map[string]map[string]float64)
	for _, obs := range observations {
		if obs.Period != p.PreviousPeriod && obs.Period != p.CurrentPeriod {
			continue
		}
		if _, configured := p.MetricWeights[obs.Metric]; !configured && !isTVLMetric(obs.Metric) {
			continue
		}
		w := 1.0
		if cw, ok := p.ChainWeights[strings.ToUpper(obs.Chain)]; ok {
			w = cw
		}
		byMetric := amounts[obs.ProjectID]
		if byMetric == nil {
			byMetric = make(map[string]map[string]float64)
			amounts[obs.ProjectID] = byMetric
		}
		byPeriod := byMetric[obs.Metric]
		if byPeriod == nil {
			byPeriod = make(map[string]float64)
			byMetric[obs.Metric] = byPeriod
		}
		byPeriod[obs.Period] += obs.Amount * w
	}

	// TVL band: excluded projects are removed before scoring, not zeroed.
	ids := make([]string, 0, len(amounts))
	var excluded []string
	for id := range amounts {
		tvl := totalTVL(amounts[id], p.CurrentPeriod)
		if (p.TVLMinimum > 0 && tvl < p.TVLMinimum) || (p.TVLMaximum > 0 && tvl > p.TVLMaximum) {
			excluded = append(excluded, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	sort.Strings(excluded)

	if len(ids) == 0 {
		return &Result{Scores: map[string]float64{}, Excluded: excluded}, nil
	}

	// Per metric and variant, build the series across projects, scale it,
	// and accumulate the weighted contribution. Normalization needs the full
	// population's statistics, so each series completes before combination.
	composite := make([]float64, len(ids))
	for _, metric := range metrics {
		mWeight := p.MetricWeights[metric]
		for variant, vWeight := range p.VariantWeights {
			if vWeight == 0 {
				continue
			}
			series := make([]float64, len(ids))
			for i, id := range ids {
				series[i] = variantValue(variant, amounts[id][metric], p)
			}
			scaled := minMaxScale(series, p.PercentileCap)
			for i := range ids {
				composite[i] += mWeight * vWeight * scaled[i]
			}
		}
	}

	// The composite vector is itself capped and scaled to [0,1].
	composite = minMaxScale(composite, p.PercentileCap)

	scores := make(map[string]float64, len(ids))
	for i, id := range ids {
		scores[id] = composite[i]
	}
	return &Result{Scores: scores, Excluded: excluded}, nil
}

// variantValue computes one temporal variant of a metric. Growth is clipped
// at zero: a decline cannot subtract from a reward score.
func variantValue(variant string, byPeriod map[string]float64, p Params) float64 {
	cur := byPeriod[p.CurrentPeriod]
	prev := byPeriod[p.PreviousPeriod]
	switch variant {
	case config.VariantAdoption:
		return cur
	case config.VariantGrowth:
		return math.Max(0, cur-prev)
	case config.VariantRetention:
		return math.Min(cur, prev)
	}
	return 0
}

func activeMetrics(weights map[string]float64) []string {
	var names []string
	for name, w := range weights {
		if w > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func isTVLMetric(name string) bool {
	return strings.Contains(strings.ToLower(name), "tvl")
}

func totalTVL(byMetric map[string]map[string]float64, period string) float64 {
	var sum float64
	for metric, byPeriod := range byMetric {
		if isTVLMetric(metric) {
			sum += byPeriod[period]
		}
	}
	return sum
}

func checkWeights(field string, weights map[string]float64) error {
	if len(weights) == 0 {
		return &config.ValidationError{Field: field, Reason: "no weights configured"}
	}
	var sum float64
	for name, w := range weights {
		if w < 0 {
			return &config.ValidationError{Field: field, Reason: fmt.Sprintf("weight %q is negative", name)}
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return &config.ValidationError{Field: field, Reason: fmt.Sprintf("weights sum to %v, want 1", sum)}
	}
	return nil
}
