package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	cache   HealthChecker
	started time.Time
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for cache if Redis is not configured.
func NewHealthHandler(cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		cache:   cache,
		started: time.Now(),
	}
}

// Health is the public liveness endpoint.
//
// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, envelope{
		"status": "healthy",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running.
// No dependency checks - this is for Kubernetes liveness probes.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{"status": "ok"})
}

// Readyz is a readiness probe endpoint.
// It checks optional dependencies and returns 200 only if all
// configured ones are healthy. The file store needs no probe: if the
// process is up, the data directory is reachable.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "not configured"
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, envelope{"status": status, "checks": checks})
}
