// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// healthPingTimeout bounds the reachability check of the answering service.
const healthPingTimeout = 3 * time.Second

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	backend Pinger
}

// NewHealthHandler creates a new health handler. backend may be nil.
func NewHealthHandler(version string, backend Pinger) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		backend: backend,
	}
}

// HandleHealth returns server health status and whether the answering
// service responds. An unreachable service degrades the status but the
// gateway itself stays healthy.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}

	if h.backend != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		if msg, err := h.backend.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["backend"] = "unreachable"
			resp["backendError"] = err.Error()
		} else {
			resp["backend"] = "ok"
			if msg != "" {
				resp["backendMessage"] = msg
			}
		}
	}

	return c.JSON(http.StatusOK, resp)
}
