package main

import (
	"database/sql"
	"fmt"
	"os"
	"text/tabwriter"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/fundgraph/fundgraph/internal/ledger"
	"github.com/fundgraph/fundgraph/internal/platform"
	"github.com/fundgraph/fundgraph/pkg/engine"
)

func newConsolidateCmd() *cobra.Command {
	var (
		round       string
		period      string
		databaseURL string
		record      []string
	)

	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Consolidate rewards across algorithms and periods",
		Long: `Sums every project's rewards across the recorded runs of a round into one
payout table. Result JSON files passed via --record are recorded in the
ledger first, so a full round can be consolidated in one invocation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("postgres", databaseURL)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			if err := platform.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			svc := ledger.NewService(db)

			for _, path := range record {
				result, err := engine.LoadResultJSON(path)
				if err != nil {
					return err
				}
				if err := svc.RecordRun(cmd.Context(), result); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Recorded run %s (%s, %d rewards)\n",
					result.RunID, result.Algorithm, len(result.Rewards))
			}

			consolidated, err := svc.Consolidate(cmd.Context(), round, period)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROJECT\tNAME\tRUNS\tTOTAL")
			var total float64
			for _, c := range consolidated {
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", c.ProjectID, c.Name, c.RunCount, c.Amount)
				total += c.Amount
			}
			fmt.Fprintf(w, "\t\t\t%.2f\n", total)
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&round, "round", "", "Funding round (required)")
	cmd.Flags().StringVar(&period, "period", "", "Restrict to one measurement period")
	cmd.Flags().StringVar(&databaseURL, "database-url",
		envOrDefault("DATABASE_URL", "postgres://localhost:5432/fundgraph?sslmode=disable"),
		"Postgres connection string")
	cmd.Flags().StringSliceVar(&record, "record", nil, "Result JSON files to record before consolidating")
	_ = cmd.MarkFlagRequired("round")

	return cmd
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
