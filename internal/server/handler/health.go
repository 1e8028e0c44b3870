package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker reports whether backing dependencies are reachable.
type HealthChecker interface {
	Healthy() bool
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	checker HealthChecker
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. checker may be nil, in which case
// the endpoint always reports ok.
func NewHealthHandler(checker HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.checker != nil && !h.checker.Healthy() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
