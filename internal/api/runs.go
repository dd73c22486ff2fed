package api

import (
	"net/http"
)

// handleListRuns returns all allocation runs recorded for a round.
func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	round := r.PathValue("round")

	runs, err := h.ledgerSvc.ListRuns(r.Context(), round)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"round": round,
		"runs":  runs,
	})
}

// handleGetRun returns one run with its reward rows.
func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")

	run, err := h.ledgerSvc.GetRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found: "+runID)
		return
	}
	rewards, err := h.ledgerSvc.ListRewards(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list rewards: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run":     run,
		"rewards": rewards,
	})
}

// handleListRewards returns only the reward rows of a run.
func (h *Handler) handleListRewards(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")

	rewards, err := h.ledgerSvc.ListRewards(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list rewards: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  runID,
		"rewards": rewards,
	})
}

// handleConsolidated returns per-project totals summed across every run of a
// round, optionally restricted to one period via ?period=.
func (h *Handler) handleConsolidated(w http.ResponseWriter, r *http.Request) {
	round := r.PathValue("round")
	period := r.URL.Query().Get("period")

	consolidated, err := h.ledgerSvc.Consolidate(r.Context(), round, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "consolidate: "+err.Error())
		return
	}

	var total float64
	for _, c := range consolidated {
		total += c.Amount
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"round":    round,
		"period":   period,
		"total":    total,
		"projects": consolidated,
	})
}

// handleGetSnapshot streams an archived snapshot blob.
func (h *Handler) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	round := r.PathValue("round")
	snapshotID := r.PathValue("snapshotID")

	data, err := h.storage.GetSnapshot(r.Context(), round, snapshotID)
	if err != nil {
		writeError(w, http.StatusNotFound, "snapshot not found: "+snapshotID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
