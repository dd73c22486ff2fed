package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fundgraph/fundgraph/internal/archive"
	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/engine"
	"github.com/fundgraph/fundgraph/pkg/ingest"
	"github.com/fundgraph/fundgraph/pkg/surface"
)

func newScoreCmd() *cobra.Command {
	var (
		resultsDir string
		round      string
		period     string
		model      string
		outputFmt  string
		archiveDir string
		relaxed    bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Full scoring and allocation pipeline",
		Long:  `Runs data ingestion, algorithm scoring, budget allocation, and rendering.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), scoreOpts{
				resultsDir: resultsDir,
				round:      round,
				period:     period,
				model:      model,
				outputFmt:  outputFmt,
				archiveDir: archiveDir,
				relaxed:    relaxed,
			})
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results", "results", "Root of the results directory tree")
	cmd.Flags().StringVar(&round, "round", "", "Funding round, e.g. round-8 (required)")
	cmd.Flags().StringVar(&period, "period", "", "Measurement period, e.g. 2025-04 (required)")
	cmd.Flags().StringVar(&model, "model", "", "Model name: devtooling_trust or onchain_metrics (required)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")
	cmd.Flags().StringVar(&archiveDir, "archive-dir", "", "Archive inputs and result under this directory")
	cmd.Flags().BoolVar(&relaxed, "relaxed", false, "Skip the sum-to-1 weight group checks (historical configs)")
	_ = cmd.MarkFlagRequired("round")
	_ = cmd.MarkFlagRequired("period")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

type scoreOpts struct {
	resultsDir string
	round      string
	period     string
	model      string
	outputFmt  string
	archiveDir string
	relaxed    bool
}

func runScore(ctx context.Context, opts scoreOpts) error {
	paths := config.NewRoundPaths(opts.resultsDir, opts.round)

	cfg, err := loadModelConfig(paths, opts.period, opts.model, opts.relaxed)
	if err != nil {
		return err
	}

	alg, err := engine.AlgorithmByName(opts.model)
	if err != nil {
		return err
	}

	// Step 1: Ingest
	fmt.Fprintf(os.Stderr, "Step 1/4: Ingesting snapshot data...\n")
	snap, err := ingest.LoadSnapshot(cfg.DataSnapshot, opts.round, opts.period)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	observations, err := ingest.LoadObservations(cfg.DataSnapshot)
	if err != nil {
		return fmt.Errorf("loading observations: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  Projects: %d onchain, %d devtooling  Developers: %d  Edges: %d  Observations: %d\n",
		snap.Stats.OnchainProjectCount, snap.Stats.DevtoolingProjectCount,
		snap.Stats.DeveloperCount, snap.Stats.EdgeCount, len(observations))

	in := engine.Inputs{Snapshot: snap, Observations: observations}

	// Step 2: Score
	fmt.Fprintf(os.Stderr, "Step 2/4: Scoring (%s)...\n", alg.Name())
	scores, err := engine.Compute(alg, in, cfg)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  Scored %d eligible projects\n", len(scores))

	if err := paths.EnsureDirectories(opts.period); err != nil {
		return err
	}
	scoresPath := filepath.Join(paths.OutputsDir(opts.period), opts.model+"_scores.json")
	if err := saveJSON(scoresPath, scores); err != nil {
		return fmt.Errorf("saving scores: %w", err)
	}

	// Step 3: Allocate
	fmt.Fprintf(os.Stderr, "Step 3/4: Allocating %.0f %s...\n", cfg.Allocation.Budget, cfg.Allocation.CurrencyUnit)
	result, err := engine.Allocate(alg, scores, snap, cfg.Allocation)
	if err != nil {
		return fmt.Errorf("allocating: %w", err)
	}

	// Step 4: Persist and render
	fmt.Fprintf(os.Stderr, "Step 4/4: Writing outputs...\n")
	if err := engine.SaveRewardsCSV(paths.RewardsPath(opts.period, opts.model), result); err != nil {
		return err
	}
	resultPath := filepath.Join(paths.OutputsDir(opts.period), opts.model+"_result.json")
	if err := engine.SaveResultJSON(resultPath, result); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  Rewards: %s\n", paths.RewardsPath(opts.period, opts.model))

	if opts.archiveDir != "" {
		if err := archiveRun(ctx, opts.archiveDir, opts.round, in, result); err != nil {
			return err
		}
	}

	return render(os.Stdout, opts.outputFmt, result)
}

// archiveRun stores the run inputs and result in a local archive so the
// hosted service can replay them later.
func archiveRun(ctx context.Context, dir, round string, in engine.Inputs, result *engine.AllocationResult) error {
	storage := archive.NewLocalStorage(dir)

	inputData, err := engine.EncodeInputs(in)
	if err != nil {
		return err
	}
	if err := storage.PutSnapshot(ctx, round, in.Snapshot.ID, inputData); err != nil {
		return fmt.Errorf("archiving inputs: %w", err)
	}

	resultData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := storage.PutResult(ctx, round, result.RunID, resultData); err != nil {
		return fmt.Errorf("archiving result: %w", err)
	}

	fmt.Fprintf(os.Stderr, "  Archived snapshot %s and run %s\n", in.Snapshot.ID, result.RunID)
	return nil
}

func loadModelConfig(paths config.RoundPaths, period, model string, relaxed bool) (*config.Config, error) {
	path := paths.ModelConfigPath(period, model)
	if relaxed {
		return config.LoadRelaxed(path)
	}
	return config.Load(path)
}

func render(w *os.File, format string, result *engine.AllocationResult) error {
	var r surface.Renderer
	switch format {
	case "json":
		r = &surface.JSONRenderer{}
	default:
		r = &surface.TerminalRenderer{}
	}
	if err := r.Render(w, result); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
