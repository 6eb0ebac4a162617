package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omega-networks/mapkit-auth/internal/domain/repository"
	"github.com/omega-networks/mapkit-auth/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks map[string]repository.Pinger
	log    logger.Logger
}

// NewHealthHandler creates a new HealthHandler probing checks on readiness.
func NewHealthHandler(checks map[string]repository.Pinger, log logger.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, log: log.WithComponent("health")}
}

// LivenessCheck reports that the process is serving requests.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// ReadinessCheck pings every dependency concurrently.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := h.performChecks(ctx)
	status, httpStatus := "ready", http.StatusOK
	for name, result := range checks {
		if result != "ok" {
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			h.log.Warn(ctx, "Readiness check failed", logger.String("dependency", name), logger.String("result", result))
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	results := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		wg.Add(1)
		go func(name string, p repository.Pinger) {
			defer wg.Done()
			result := "ok"
			if err := p.Ping(ctx); err != nil {
				result = "error: " + err.Error()
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, p)
	}
	wg.Wait()
	return results
}
