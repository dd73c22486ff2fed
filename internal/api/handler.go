// Package api implements the hosted Fundgraph REST API.
// It provides read endpoints for rounds, runs, and rewards backed by
// Postgres and blob storage, plus a replay endpoint that feeds an archived
// snapshot back through the engine.
package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/fundgraph/fundgraph/internal/archive"
	"github.com/fundgraph/fundgraph/internal/ledger"
)

// Handler is the top-level API handler for the hosted Fundgraph service.
type Handler struct {
	db        *sql.DB
	ledgerSvc *ledger.Service
	storage   archive.StorageClient
	configDir string
}

// NewHandler creates a new API handler. configDir is the root of the
// results directory tree holding per-round model configurations.
func NewHandler(db *sql.DB, ledgerSvc *ledger.Service, storage archive.StorageClient, configDir string) *Handler {
	return &Handler{
		db:        db,
		ledgerSvc: ledgerSvc,
		storage:   storage,
		configDir: configDir,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Write endpoints (auth-protected)
	mux.HandleFunc("POST /api/v1/replay", h.handleReplay)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/rounds/{round}/runs", h.handleListRuns)
	mux.HandleFunc("GET /api/v1/rounds/{round}/consolidated", h.handleConsolidated)
	mux.HandleFunc("GET /api/v1/rounds/{round}/snapshots/{snapshotID}", h.handleGetSnapshot)
	mux.HandleFunc("GET /api/v1/runs/{runID}", h.handleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{runID}/rewards", h.handleListRewards)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
