package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/engine"
)

func newRenderCmd() *cobra.Command {
	var (
		resultsDir string
		round      string
		period     string
		model      string
		file       string
		outputFmt  string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a saved allocation result",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				if round == "" || period == "" || model == "" {
					return fmt.Errorf("either --file or --round, --period and --model are required")
				}
				paths := config.NewRoundPaths(resultsDir, round)
				path = filepath.Join(paths.OutputsDir(period), model+"_result.json")
			}

			result, err := engine.LoadResultJSON(path)
			if err != nil {
				return err
			}
			return render(os.Stdout, outputFmt, result)
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results", "results", "Root of the results directory tree")
	cmd.Flags().StringVar(&round, "round", "", "Funding round")
	cmd.Flags().StringVar(&period, "period", "", "Measurement period")
	cmd.Flags().StringVar(&model, "model", "", "Model name")
	cmd.Flags().StringVar(&file, "file", "", "Result JSON path (overrides round/period/model)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text or json")

	return cmd
}
