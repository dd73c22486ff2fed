package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/engine"
	"github.com/fundgraph/fundgraph/pkg/ingest"
)

func newAllocateCmd() *cobra.Command {
	var (
		resultsDir string
		round      string
		period     string
		model      string
		outputFmt  string
		relaxed    bool
		budget     float64
		minAmount  float64
		maxShare   float64
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Re-run allocation over previously computed scores",
		Long: `Reads the score vector written by a prior score run and distributes the
budget again, optionally under an overridden allocation envelope. Scoring is
not repeated; only the allocation pass runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAllocate(allocateOpts{
				resultsDir: resultsDir,
				round:      round,
				period:     period,
				model:      model,
				outputFmt:  outputFmt,
				relaxed:    relaxed,
				budget:     budget,
				minAmount:  minAmount,
				maxShare:   maxShare,
			})
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results", "results", "Root of the results directory tree")
	cmd.Flags().StringVar(&round, "round", "", "Funding round (required)")
	cmd.Flags().StringVar(&period, "period", "", "Measurement period (required)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (required)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&relaxed, "relaxed", false, "Skip the sum-to-1 weight group checks (historical configs)")
	cmd.Flags().Float64Var(&budget, "budget", 0, "Override the configured budget")
	cmd.Flags().Float64Var(&minAmount, "min-amount", 0, "Override the minimum amount per project")
	cmd.Flags().Float64Var(&maxShare, "max-share", 0, "Override the maximum share per project")
	_ = cmd.MarkFlagRequired("round")
	_ = cmd.MarkFlagRequired("period")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

type allocateOpts struct {
	resultsDir string
	round      string
	period     string
	model      string
	outputFmt  string
	relaxed    bool
	budget     float64
	minAmount  float64
	maxShare   float64
}

func runAllocate(opts allocateOpts) error {
	paths := config.NewRoundPaths(opts.resultsDir, opts.round)

	cfg, err := loadModelConfig(paths, opts.period, opts.model, opts.relaxed)
	if err != nil {
		return err
	}

	alg, err := engine.AlgorithmByName(opts.model)
	if err != nil {
		return err
	}

	scoresPath := filepath.Join(paths.OutputsDir(opts.period), opts.model+"_scores.json")
	data, err := os.ReadFile(scoresPath)
	if err != nil {
		return fmt.Errorf("reading scores (run `fundgraph score` first): %w", err)
	}
	var scores map[string]float64
	if err := json.Unmarshal(data, &scores); err != nil {
		return fmt.Errorf("unmarshaling scores: %w", err)
	}

	snap, err := ingest.LoadSnapshot(cfg.DataSnapshot, opts.round, opts.period)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	ac := cfg.Allocation
	if opts.budget > 0 {
		ac.Budget = opts.budget
	}
	if opts.minAmount > 0 {
		ac.MinAmountPerProject = opts.minAmount
	}
	if opts.maxShare > 0 {
		ac.MaxSharePerProject = opts.maxShare
	}

	fmt.Fprintf(os.Stderr, "Allocating %.0f %s over %d scored projects...\n",
		ac.Budget, ac.CurrencyUnit, len(scores))

	result, err := engine.Allocate(alg, scores, snap, ac)
	if err != nil {
		return fmt.Errorf("allocating: %w", err)
	}

	if err := engine.SaveRewardsCSV(paths.RewardsPath(opts.period, opts.model), result); err != nil {
		return err
	}
	resultPath := filepath.Join(paths.OutputsDir(opts.period), opts.model+"_result.json")
	if err := engine.SaveResultJSON(resultPath, result); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rewards: %s\n", paths.RewardsPath(opts.period, opts.model))

	return render(os.Stdout, opts.outputFmt, result)
}
