// Package main provides the fundgraph CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "fundgraph",
		Short: "Scoring and allocation engine for open source funding rounds",
		Long: `Fundgraph scores projects from contribution graph snapshots and onchain
metrics, then distributes a funding budget over the score vector.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newScoreCmd(),
		newAllocateCmd(),
		newRenderCmd(),
		newConsolidateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
