package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// SystemHandler reports liveness of the API and its backing stores.
type SystemHandler struct {
	checks    map[string]HealthCheck
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. checks is keyed by dependency name.
func NewSystemHandler(checks map[string]HealthCheck, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		checks:    checks,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Answers 200 when every dependency responds, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	response.Success(c, status, gin.H{
		"status":       state,
		"dependencies": deps,
		"uptime":       formatDuration(time.Since(h.startTime)),
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
	})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
