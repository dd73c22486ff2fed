package surface

import (
	"fmt"
	"io"
	"os"

	"github.com/fundgraph/fundgraph/pkg/engine"
)

// TerminalRenderer renders an AllocationResult as a colored terminal table.
type TerminalRenderer struct{}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func green(s string) string {
	if noColor() {
		return s
	}
	return colorGreen + s + colorReset
}

func (r *TerminalRenderer) Render(w io.Writer, result *engine.AllocationResult) error {
	fmt.Fprintf(w, "%s\n\n", bold(fmt.Sprintf("Fundgraph: %s %s/%s — %s %s %s",
		result.Algorithm, result.Round, result.Period,
		formatAmount(result.Budget), result.Currency, "budget")))

	fmt.Fprintf(w, "Funded projects: %d\n\n", len(result.Rewards))

	var total float64
	for _, reward := range result.Rewards {
		name := reward.DisplayName
		if name == "" {
			name = reward.ProjectName
		}
		if name == "" {
			name = reward.ProjectID
		}
		fmt.Fprintf(w, "  %-42s %8.4f  %s %s\n",
			truncate(name, 42), reward.Score,
			green(fmt.Sprintf("%14s", formatAmount(reward.Amount))), reward.Currency)
		total += reward.Amount
	}

	fmt.Fprintf(w, "\n%s\n", dim(fmt.Sprintf("Total distributed: %s %s (run %s)",
		formatAmount(total), result.Currency, result.RunID)))
	return nil
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
