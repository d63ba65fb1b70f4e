package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fairyhunter13/plati-repricer/internal/config"
)

// StatusSource reports the repricing loop's live state.
type StatusSource interface {
	IsShuttingDown() bool
}

// PendingSource reports the batcher backlog.
type PendingSource interface {
	PendingSize() int
}

// App wires the observability endpoints to the running repricer.
type App struct {
	Cfg     config.Config
	Status  StatusSource
	Pending PendingSource
	started time.Time
}

// NewApp creates the HTTP app.
func NewApp(cfg config.Config, status StatusSource, pending PendingSource) *App {
	return &App{Cfg: cfg, Status: status, Pending: pending, started: time.Now()}
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	st := map[string]any{
		"shutting_down":   a.Status.IsShuttingDown(),
		"pending_updates": a.Pending.PendingSize(),
		"chunk_size":      a.Cfg.ChunkSize,
		"flush_threshold": a.Cfg.FlushThreshold,
		"uptime_sec":      time.Since(a.started).Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}
