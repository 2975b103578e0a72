package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/clarastars/zyda-order-sync/internal/database"
	"github.com/clarastars/zyda-order-sync/internal/dispatch"
)

// Runner executes one scrape-then-sync pass.
type Runner interface {
	RunOnce(ctx context.Context) dispatch.Stats
}

// LedgerReader exposes the forwarded-phone ledger contents.
type LedgerReader interface {
	Phones() []string
	Len() int
}

// StatsSource reads the persisted sync log. Nil when the database is
// not configured.
type StatsSource interface {
	OutcomeCounts(ctx context.Context) (map[string]int, error)
	RecentSyncs(ctx context.Context, limit int) ([]database.SyncEntry, error)
}

type Handlers struct {
	runner  Runner
	ledger  LedgerReader
	syncLog StatsSource
	logger  *slog.Logger

	// One browser session exists; passes must not overlap.
	running sync.Mutex
}

func NewHandlers(runner Runner, ledger LedgerReader, syncLog StatsSource, logger *slog.Logger) *Handlers {
	return &Handlers{
		runner:  runner,
		ledger:  ledger,
		syncLog: syncLog,
		logger:  logger,
	}
}

func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/runs", h.TriggerRun)
		r.Get("/ledger", h.GetLedger)
		r.Get("/stats", h.GetStats)
	})
	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// TriggerRun executes one pass synchronously and returns its stats.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if !h.running.TryLock() {
		h.respondError(w, http.StatusConflict, "a pass is already running")
		return
	}
	defer h.running.Unlock()

	stats := h.runner.RunOnce(r.Context())
	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) GetLedger(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":  h.ledger.Len(),
		"phones": h.ledger.Phones(),
	})
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.syncLog == nil {
		h.respondError(w, http.StatusServiceUnavailable, "sync log is not configured")
		return
	}

	counts, err := h.syncLog.OutcomeCounts(r.Context())
	if err != nil {
		h.logger.Error("failed to read outcome counts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	recent, err := h.syncLog.RecentSyncs(r.Context(), 20)
	if err != nil {
		h.logger.Error("failed to read recent syncs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"outcomes": counts,
		"recent":   recent,
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
