package api

import (
	"context"
	"net/http"
	"time"

	domrepo "AirPulse/internal/domain/repository"

	"github.com/labstack/echo/v4"
)

// SetStorage wires the storage dependency checked by the health endpoint.
func (h *AnalysisHandler) SetStorage(s domrepo.Storage) { h.storage = s }

type healthStatus struct {
	Status string            `json:"status"`
	Time   string            `json:"time"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports liveness plus the state of infrastructure dependencies.
func (h *AnalysisHandler) Health(c echo.Context) error {
	status := healthStatus{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
		Checks: map[string]string{},
	}

	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Health(ctx); err != nil {
			status.Status = "degraded"
			status.Checks["storage"] = err.Error()
		} else {
			status.Checks["storage"] = "ok"
		}
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
