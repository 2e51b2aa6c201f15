// Package diag exposes the local diagnostics endpoint: health, metrics,
// and read-only views of the cache and agenda state for support
// sessions. It binds to localhost and is disabled by default.
package diag

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/agenda/viewmodel"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// Config holds the diagnostic server's dependencies.
type Config struct {
	Logger *logging.Logger
	Cache  *query.Client
	// Surfaces maps a display name ("SPA", "LOG") to its view-model.
	Surfaces map[string]*viewmodel.VM
	// MetricsHandler serves /metrics; defaults to promhttp.Handler.
	MetricsHandler http.Handler
}

// New builds the diagnostics router.
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Get("/debug/cache", func(w http.ResponseWriter, _ *http.Request) {
		entries := cfg.Cache.Snapshot()
		type entryView struct {
			Key       string    `json:"key"`
			FetchedAt time.Time `json:"fetchedAt"`
		}
		views := make([]entryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, entryView{Key: e.Key.Canonical(), FetchedAt: e.FetchedAt})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"entries": views,
			"count":   len(views),
		})
	})

	r.Get("/debug/agenda", func(w http.ResponseWriter, _ *http.Request) {
		surfaces := make(map[string]any, len(cfg.Surfaces))
		for name, vm := range cfg.Surfaces {
			s := vm.State()
			snap := vm.Snapshot()
			surfaces[name] = map[string]any{
				"viewDate":     s.ViewDate.Format("2006-01-02"),
				"dayDate":      s.DayDate.Format("2006-01-02"),
				"viewMode":     s.ViewMode,
				"tab":          s.Tab,
				"searchTerm":   s.SearchTerm,
				"selected":     len(s.Selection),
				"formOpen":     s.Modal.FormOpen,
				"detailsOpen":  s.Modal.DetailsOpen,
				"lastFetchAt":  s.LastFetch.At,
				"lastFetchMs":  s.LastFetch.Duration.Milliseconds(),
				"items":        len(snap.Items),
				"conflicts":    len(snap.Conflicts),
				"hasConflicts": snap.HasConflicts,
				"isFetching":   snap.IsFetching,
			}
		}
		writeJSON(w, http.StatusOK, surfaces)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
