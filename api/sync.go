package api

import (
	"context"
	"net/http"

	"github.com/szhang829/badgerscholar/internal/log"
	"github.com/szhang829/badgerscholar/internal/rag"
)

// SyncRunner brings the coarse paper index up to date with the store.
type SyncRunner interface {
	Run(ctx context.Context) (rag.SyncResult, error)
}

// StatusReporter reports sync state for both index stages.
type StatusReporter interface {
	CoarseStatus(ctx context.Context) (rag.CoarseStatus, error)
	FineStatus(ctx context.Context) (rag.FineStatus, error)
}

// VectorResetter drops all stored vectors and clears index flags.
type VectorResetter interface {
	DropAllVectors(ctx context.Context) error
}

// SyncHandler handles index sync, status and reset endpoints.
type SyncHandler struct {
	runner   SyncRunner
	reporter StatusReporter
	resetter VectorResetter
	logger   log.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(runner SyncRunner, reporter StatusReporter, resetter VectorResetter, logger log.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, reporter: reporter, resetter: resetter, logger: logger}
}

// RegisterRoutes registers sync routes on the given mux.
// Routes whose service is nil are left unregistered.
func (h *SyncHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.runner != nil {
		mux.HandleFunc("POST /api/sync/coarse", h.syncCoarse)
	}
	if h.reporter != nil {
		mux.HandleFunc("GET /api/sync/status/coarse", h.coarseStatus)
		mux.HandleFunc("GET /api/sync/status/fine", h.fineStatus)
	}
	if h.resetter != nil {
		mux.HandleFunc("DELETE /api/vectors", h.resetVectors)
	}
}

func (h *SyncHandler) syncCoarse(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.Error("coarse sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "coarse sync failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SyncHandler) coarseStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.reporter.CoarseStatus(r.Context())
	if err != nil {
		h.logger.Error("coarse status failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "coarse status failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *SyncHandler) fineStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.reporter.FineStatus(r.Context())
	if err != nil {
		h.logger.Error("fine status failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "fine status failed")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *SyncHandler) resetVectors(w http.ResponseWriter, r *http.Request) {
	if err := h.resetter.DropAllVectors(r.Context()); err != nil {
		h.logger.Error("vector reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "vector reset failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
