package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the health status.
type HealthStatus string

const (
	// HealthStatusUp indicates the service is healthy.
	HealthStatusUp HealthStatus = "UP"
	// HealthStatusDown indicates the service is unhealthy.
	HealthStatusDown HealthStatus = "DOWN"
)

// Probe paths.
const (
	LivenessPath  = "/healthz"
	ReadinessPath = "/readyz"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status HealthStatus           `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult represents an individual health check result.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthChecker performs one readiness check.
type HealthChecker func(ctx context.Context) error

// HealthManager manages readiness checks.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	ready    bool
	timeout  time.Duration
}

// NewHealthManager creates a health manager that is not ready until SetReady(true).
func NewHealthManager() *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		timeout:  2 * time.Second,
	}
}

// RegisterChecker registers a readiness checker.
func (h *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// SetReady sets the readiness status.
func (h *HealthManager) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady returns the readiness status.
func (h *HealthManager) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Check runs all readiness checks.
func (h *HealthManager) Check(ctx context.Context) HealthResponse {
	h.mu.RLock()
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for name, c := range h.checkers {
		checkers[name] = c
	}
	ready := h.ready
	h.mu.RUnlock()

	resp := HealthResponse{Status: HealthStatusUp}
	if !ready {
		resp.Status = HealthStatusDown
	}
	if len(checkers) == 0 {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp.Checks = make(map[string]CheckResult, len(checkers))
	for name, checker := range checkers {
		if err := checker(ctx); err != nil {
			resp.Status = HealthStatusDown
			resp.Checks[name] = CheckResult{Status: HealthStatusDown, Message: err.Error()}
			continue
		}
		resp.Checks[name] = CheckResult{Status: HealthStatusUp}
	}
	return resp
}

// RegisterHealthRoutes registers the liveness and readiness probes.
func RegisterHealthRoutes(engine *gin.Engine, manager *HealthManager) {
	engine.GET(LivenessPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: HealthStatusUp})
	})

	engine.GET(ReadinessPath, func(c *gin.Context) {
		resp := manager.Check(c.Request.Context())
		status := http.StatusOK
		if resp.Status == HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	})
}
