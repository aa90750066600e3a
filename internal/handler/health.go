package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler serves /healthz.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler reports on the named checks.  Nil checks are skipped.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	h := &HealthHandler{checks: make(map[string]Check, len(checks))}
	for name, c := range checks {
		if c != nil {
			h.checks[name] = c
		}
	}
	return h
}

// Health returns 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	body := echo.Map{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	return c.JSON(status, body)
}
