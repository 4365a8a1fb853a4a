package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
)

const serviceName = "surveystudio-api"

// HealthCheck probes one dependency
type HealthCheck = func(ctx context.Context) error

// HealthHandlers holds health check dependencies
type HealthHandlers struct {
	checks map[string]HealthCheck
}

// NewHealthHandlers creates a new HealthHandlers instance. checks is keyed by
// the name reported in the readiness response (database, redis, ...).
func NewHealthHandlers(checks map[string]HealthCheck) *HealthHandlers {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &HealthHandlers{checks: checks}
}

// HealthResponse represents the liveness probe response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
}

// Health returns a basic liveness check
// GET /health
func (hh *HealthHandlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness runs every dependency check
// GET /health/ready
func (hh *HealthHandlers) Readiness(c echo.Context) error {
	names := make([]string, 0, len(hh.checks))
	for name := range hh.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(names))
	status := "ready"
	for _, name := range names {
		if err := hh.checks[name](ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = "not_ready"
		} else {
			checks[name] = "healthy"
		}
	}

	httpStatus := http.StatusOK
	if status == "not_ready" {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, ReadinessResponse{
		Status:  status,
		Service: serviceName,
		Checks:  checks,
	})
}
