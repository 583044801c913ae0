package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports liveness along with the running configuration
type HealthHandler struct {
	env     string
	storage string
	started time.Time
}

func NewHealthHandler(env, storage string) *HealthHandler {
	return &HealthHandler{env: env, storage: storage, started: time.Now()}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":      "healthy",
		"service":     "nest-api",
		"environment": h.env,
		"storage":     h.storage,
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"timestamp":   time.Now().UTC(),
	})
}
