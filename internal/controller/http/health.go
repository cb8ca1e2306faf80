package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/beehiiv-metric/internal/httpx/response"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	store  Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{store: store, logger: logger}
}

// RegisterRoutes registers health routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root())
	r.Get("/healthz", h.Live())
	r.Get("/readyz", h.Ready())
}

// Root handles GET /
func (h *HealthHandler) Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Beehiiv API Server is running"))
	}
}

// Live handles GET /healthz
func (h *HealthHandler) Live() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	}
}

// Ready handles GET /readyz
func (h *HealthHandler) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("session store not ready", "error", err)
			response.ServiceUnavailable(w, "session store unavailable")
			return
		}
		response.OK(w, map[string]string{"status": "ready"})
	}
}
