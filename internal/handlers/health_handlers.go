package handlers

import (
	"context"
	"net/http"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/services"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db      Pinger
	cache   caching.CacheService
	reports services.ReportStore
	version string
	started time.Time
}

// NewHealthHandlers creates a new health handlers instance. db and reports
// may be nil for the memory store and when object storage is off.
func NewHealthHandlers(db Pinger, cache caching.CacheService, reports services.ReportStore, version string) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		cache:   cache,
		reports: reports,
		version: version,
		started: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

func (h *HealthHandlers) check(ctx context.Context) *HealthStatus {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	probe := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			health.Services[name] = "unhealthy"
			health.Status = "degraded"
			return
		}
		health.Services[name] = "healthy"
	}

	if h.db != nil {
		probe("database", h.db.Ping)
	} else {
		health.Services["database"] = "memory"
	}
	if h.cache != nil {
		probe("redis", h.cache.Ping)
	}
	if h.reports != nil {
		probe("storage", h.reports.Ping)
	} else {
		health.Services["storage"] = "disabled"
	}
	return health
}

// HealthCheck reports every dependency; a degraded dependency yields 206.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	health := h.check(ctx)
	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

// ReadinessCheck only fails on the ledger store; cache and object storage
// are optional.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "not_ready",
				"message": "Ledger store unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}
