// Package health provides the liveness check for the dashboard backend.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Uptime     string                     `json:"uptime"`
}

// Check probes one component. The name keys the component in the response.
type Check struct {
	Name string
	Fn   func() ComponentStatus
}

// Checker aggregates component checks into one health response.
type Checker struct {
	startTime time.Time

	mu     sync.RWMutex
	checks []Check
}

// NewChecker creates a checker with no registered components.
func NewChecker() *Checker {
	return &Checker{startTime: time.Now()}
}

// Register adds a component check.
func (c *Checker) Register(name string, fn func() ComponentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, Check{Name: name, Fn: fn})
}

// Run executes all checks and returns the aggregated response. A single
// unhealthy component makes the whole response unhealthy; degraded components
// degrade it.
func (c *Checker) Run() *Response {
	c.mu.RLock()
	checks := c.checks
	c.mu.RUnlock()

	components := make(map[string]ComponentStatus, len(checks))
	overall := StatusHealthy
	for _, check := range checks {
		status := check.Fn()
		components[check.Name] = status

		if status.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		} else if status.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
	}

	return &Response{
		Status:     overall,
		Components: components,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

// Handler returns an HTTP handler for health checks. Degraded still answers
// 200: the process is serving, even if a refresh has never run.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Run()

		w.Header().Set("Content-Type", "application/json")
		if response.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(response)
	}
}
