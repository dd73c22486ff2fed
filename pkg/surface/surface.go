// Package surface defines output rendering for Fundgraph allocation results.
// Implementations handle different output targets: terminal and JSON.
package surface

import (
	"io"

	"github.com/fundgraph/fundgraph/pkg/engine"
)

// Renderer produces formatted output from an AllocationResult.
type Renderer interface {
	// Render writes the formatted allocation result to the writer.
	Render(w io.Writer, result *engine.AllocationResult) error
}
