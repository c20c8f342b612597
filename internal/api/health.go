package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger checks a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyChecker reports whether the WhatsApp engine can send.
type ReadyChecker interface {
	IsReady() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db      Pinger
	engine  ReadyChecker
	timeout time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, engine ReadyChecker) *HealthHandler {
	return &HealthHandler{db: db, engine: engine, timeout: 5 * time.Second}
}

// Health returns the health status of the API and its dependencies. An
// unpaired WhatsApp session does not degrade health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.db.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.engine.IsReady() {
		checks["whatsapp"] = "ready"
	} else {
		checks["whatsapp"] = "not_ready"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
