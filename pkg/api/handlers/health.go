package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Pinger is a dependency the service needs in order to serve traffic
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	environment string
	checks      map[string]Pinger
	logger      *zap.Logger
}

// NewHealthHandler creates a health handler. Each check is pinged by /ready.
func NewHealthHandler(environment string, checks map[string]Pinger, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{environment: environment, checks: checks, logger: logger}
}

// Health godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "healthy",
		"environment": h.environment,
		"timestamp":   time.Now().Unix(),
	})
}

// Ready godoc
// @Summary Readiness probe
// @Description Pings storage and, when configured, Redis
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]any{"status": "ready"}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			body[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "up"
	}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	return c.JSON(status, body)
}
