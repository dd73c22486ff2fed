package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RoundPaths resolves the on-disk layout for one funding round: each
// measurement period keeps its inputs, weight configurations, and outputs
// under results/<round>/<period>/{data,weights,outputs}.
type RoundPaths struct {
	Root  string
	Round string
}

// NewRoundPaths creates a RoundPaths rooted at the given results directory.
func NewRoundPaths(root, round string) RoundPaths {
	return RoundPaths{Root: root, Round: round}
}

// DataDir returns the snapshot data directory for a measurement period.
func (r RoundPaths) DataDir(period string) string {
	return filepath.Join(r.Root, r.Round, period, "data")
}

// WeightsDir returns the weight configuration directory for a period.
func (r RoundPaths) WeightsDir(period string) string {
	return filepath.Join(r.Root, r.Round, period, "weights")
}

// OutputsDir returns the results directory for a period.
func (r RoundPaths) OutputsDir(period string) string {
	return filepath.Join(r.Root, r.Round, period, "outputs")
}

// ModelConfigPath returns the full path of a model's weight configuration.
func (r RoundPaths) ModelConfigPath(period, model string) string {
	return filepath.Join(r.WeightsDir(period), model+".yaml")
}

// RewardsPath returns the output path for a model's reward records.
func (r RoundPaths) RewardsPath(period, model string) string {
	return filepath.Join(r.OutputsDir(period), model+"_rewards.csv")
}

// EnsureDirectories creates the period's data, weights, and outputs
// directories if they do not exist.
func (r RoundPaths) EnsureDirectories(period string) error {
	for _, dir := range []string{r.DataDir(period), r.WeightsDir(period), r.OutputsDir(period)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
