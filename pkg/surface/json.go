package surface

import (
	"encoding/json"
	"io"

	"github.com/fundgraph/fundgraph/pkg/engine"
)

// JSONRenderer marshals AllocationResult to indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, result *engine.AllocationResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
