package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fundgraph/fundgraph/pkg/config"
	"github.com/fundgraph/fundgraph/pkg/engine"
)

type replayRequest struct {
	Round      string `json:"round"`
	Period     string `json:"period"`
	Model      string `json:"model"`
	SnapshotID string `json:"snapshot_id"`
}

type replayResponse struct {
	RunID  string  `json:"run_id"`
	Funded int     `json:"funded"`
	Total  float64 `json:"total"`
}

// handleReplay feeds an archived snapshot back through the engine under the
// round's stored model configuration, records the resulting run in the
// ledger, and archives the new result. Because a run is deterministic,
// replaying an unchanged snapshot and configuration reproduces the original
// allocation under a fresh run ID.
func (h *Handler) handleReplay(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Round == "" || req.Period == "" || req.Model == "" || req.SnapshotID == "" {
		writeError(w, http.StatusBadRequest, "round, period, model and snapshot_id are required")
		return
	}

	ctx := r.Context()

	// Historical model configs may predate the current validation rules,
	// hence the relaxed load.
	paths := config.NewRoundPaths(h.configDir, req.Round)
	cfg, err := config.LoadRelaxed(paths.ModelConfigPath(req.Period, req.Model))
	if err != nil {
		writeError(w, http.StatusBadRequest, "load model config: "+err.Error())
		return
	}

	alg, err := engine.AlgorithmByName(req.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.storage.GetSnapshot(ctx, req.Round, req.SnapshotID)
	if err != nil {
		writeError(w, http.StatusNotFound, "snapshot not found: "+req.SnapshotID)
		return
	}
	in, err := engine.DecodeInputs(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "decode snapshot: "+err.Error())
		return
	}

	scores, err := engine.Compute(alg, in, cfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "compute: "+err.Error())
		return
	}

	result, err := engine.Allocate(alg, scores, in.Snapshot, cfg.Allocation)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "allocate: "+err.Error())
		return
	}

	if err := h.ledgerSvc.RecordRun(ctx, result); err != nil {
		writeError(w, http.StatusInternalServerError, "record run: "+err.Error())
		return
	}

	resultData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "marshal result: "+err.Error())
		return
	}
	if err := h.storage.PutResult(ctx, req.Round, result.RunID, resultData); err != nil {
		// The run is already in the ledger; a failed archive write is not fatal.
		log.Printf("replay %s: archive result: %v", result.RunID, err)
	}

	var total float64
	for _, rw := range result.Rewards {
		total += rw.Amount
	}
	log.Printf("replay completed: run=%s round=%s period=%s model=%s funded=%d",
		result.RunID, req.Round, req.Period, req.Model, len(result.Rewards))

	writeJSON(w, http.StatusOK, replayResponse{
		RunID:  result.RunID,
		Funded: len(result.Rewards),
		Total:  total,
	})
}
