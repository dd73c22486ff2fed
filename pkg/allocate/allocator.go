// Package allocate turns a normalized score vector into currency payouts
// under a per-project maximum share cap and minimum amount floor, conserving
// the total budget exactly.
package allocate

import (
	"fmt"
	"math"
	"sort"
)

// Config is the allocation envelope.
type Config struct {
	Budget              float64
	MinAmountPerProject float64
	MaxSharePerProject  float64
	CurrencyUnit        string
}

// InfeasibleError reports that the budget cannot be distributed under the
// configured constraints: no eligible projects remain, or the cap is too
// tight for the eligible set to absorb the whole budget. It is fatal; the
// allocator never emits a partial distribution.
type InfeasibleError struct {
	Projects int
	Reason   string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("allocation infeasible with %d eligible projects: %s", e.Projects, e.Reason)
}

// conservationTolerance bounds the acceptable floating-point drift between
// the distributed total and the budget.
const conservationTolerance = 1e-6

// Allocate distributes cfg.Budget over the scored projects:
//
//  1. Raw allocation is proportional to score.
//  2. Projects above MaxSharePerProject × Budget are clamped to the cap and
//     their excess is redistributed over the renormalized remainder, repeated
//     until no new project exceeds the cap.
//  3. Projects whose fixed-point allocation falls below MinAmountPerProject
//     are dropped entirely (never clamped up) and the distribution is
//     recomputed over the survivors, iterated to a fixed point.
//
// The returned amounts sum to the budget within floating-point tolerance.
func Allocate(scores map[string]float64, cfg Config) (map[string]float64, error) {
	if cfg.Budget <= 0 {
		return nil, &InfeasibleError{Projects: len(scores), Reason: fmt.Sprintf("budget is %v", cfg.Budget)}
	}
	if cfg.MaxSharePerProject <= 0 || cfg.MaxSharePerProject > 1 {
		return nil, &InfeasibleError{Projects: len(scores), Reason: fmt.Sprintf("max share per project is %v, want (0,1]", cfg.MaxSharePerProject)}
	}
	for id, s := range scores {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, &InfeasibleError{Projects: len(scores), Reason: fmt.Sprintf("project %s has invalid score %v", id, s)}
		}
	}

	survivors := make([]string, 0, len(scores))
	for id, s := range scores {
		if s > 0 {
			survivors = append(survivors, id)
		}
	}
	sort.Strings(survivors)

	for {
		if len(survivors) == 0 {
			return nil, &InfeasibleError{Projects: 0, Reason: "no projects with positive score remain"}
		}

		amounts, err := capAndRedistribute(scores, survivors, cfg)
		if err != nil {
			return nil, err
		}

		// Floor pass: drop, never clamp up.
		var kept []string
		for _, id := range survivors {
			if amounts[id] >= cfg.MinAmountPerProject {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(survivors) {
			if err := checkConservation(amounts, cfg.Budget); err != nil {
				return nil, err
			}
			return amounts, nil
		}
		survivors = kept
	}
}

// capAndRedistribute computes the cap fixed point over the given project
// set. The capped set only grows and is bounded by the project count, so the
// loop terminates.
func capAndRedistribute(scores map[string]float64, ids []string, cfg Config) (map[string]float64, error) {
	capAmount := cfg.MaxSharePerProject * cfg.Budget
	amounts := make(map[string]float64, len(ids))
	capped := make(map[string]bool, len(ids))

	for {
		remaining := cfg.Budget - capAmount*float64(len(capped))

		var scoreTotal float64
		for _, id := range ids {
			if !capped[id] {
				scoreTotal += scores[id]
			}
		}
		if scoreTotal == 0 {
			if remaining > conservationTolerance {
				return nil, &InfeasibleError{
					Projects: len(ids),
					Reason: fmt.Sprintf("cap of %v per project leaves %v of the budget undistributable",
						capAmount, remaining),
				}
			}
			break
		}

		newlyCapped := false
		for _, id := range ids {
			if capped[id] {
				amounts[id] = capAmount
				continue
			}
			amounts[id] = scores[id] / scoreTotal * remaining
			if amounts[id] > capAmount {
				capped[id] = true
				newlyCapped = true
			}
		}
		if !newlyCapped {
			break
		}
	}
	return amounts, nil
}

func checkConservation(amounts map[string]float64, budget float64) error {
	var total float64
	for _, v := range amounts {
		total += v
	}
	if math.Abs(total-budget) > conservationTolerance*math.Max(1, budget) {
		return &InfeasibleError{
			Projects: len(amounts),
			Reason:   fmt.Sprintf("distributed %v of a %v budget", total, budget),
		}
	}
	return nil
}
