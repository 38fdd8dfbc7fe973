package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tair/fundwatch/pkg/logger"
)

// Check tests one dependency
type Check func(ctx context.Context) error

// ComponentHealth is the result of one check
type ComponentHealth struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // healthy, unhealthy
	LatencyMs float64   `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceHealth is the overall health report
type ServiceHealth struct {
	Service    string                     `json:"service"`
	Status     string                     `json:"status"` // healthy, degraded
	Components map[string]ComponentHealth `json:"components"`
	Uptime     float64                    `json:"uptime_seconds"`
}

// HealthChecker runs dependency checks. Failing dependencies degrade the
// service but never make it unhealthy, since every dependency has a fallback.
type HealthChecker struct {
	service   string
	checks    map[string]Check
	timeout   time.Duration
	startTime time.Time
}

// NewHealthChecker creates a health checker
func NewHealthChecker(service string, checks map[string]Check) *HealthChecker {
	return &HealthChecker{
		service:   service,
		checks:    checks,
		timeout:   2 * time.Second,
		startTime: time.Now(),
	}
}

// CheckAll runs every check concurrently
func (h *HealthChecker) CheckAll(ctx context.Context) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	components := make(map[string]ComponentHealth, len(h.checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, check := range h.checks {
		wg.Add(1)
		go func(n string, c Check) {
			defer wg.Done()
			start := time.Now()
			result := ComponentHealth{Name: n, Status: "healthy", Timestamp: start}
			if err := c(ctx); err != nil {
				result.Status = "unhealthy"
				result.Error = err.Error()
				logger.Warn(ctx).Err(err).Str("component", n).Msg("Health check failed")
			}
			result.LatencyMs = float64(time.Since(start).Microseconds()) / 1000

			mu.Lock()
			components[n] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	status := "healthy"
	for _, c := range components {
		if c.Status != "healthy" {
			status = "degraded"
			break
		}
	}

	return ServiceHealth{
		Service:    h.service,
		Status:     status,
		Components: components,
		Uptime:     time.Since(h.startTime).Seconds(),
	}
}

// ServeHTTP handles GET /health
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.CheckAll(r.Context()))
}
