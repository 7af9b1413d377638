package daemon

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the body of GET /healthz.
type HealthStatus struct {
	Status        string        `json:"status"`
	Uptime        string        `json:"uptime"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	MemoryMB      float64       `json:"memory_mb"`
	Goroutines    int           `json:"goroutines"`
	Version       string        `json:"version,omitempty"`
	NextRun       *time.Time    `json:"next_run,omitempty"`
	Checks        []CheckResult `json:"checks"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthChecker reports uptime and runs named checks such as a store ping.
type HealthChecker struct {
	mu        sync.RWMutex
	startTime time.Time
	version   string
	checks    map[string]func(context.Context) error
	nextRun   func() time.Time
}

// NewHealthChecker creates a checker with no checks.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		version:   version,
		checks:    make(map[string]func(context.Context) error),
	}
}

// AddCheck registers a named check. A non-nil error marks the service unhealthy.
func (h *HealthChecker) AddCheck(name string, check func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// SetNextRun sets the source of the next scheduled run time.
func (h *HealthChecker) SetNextRun(fn func() time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextRun = fn
}

// Check runs every check and returns the combined status.
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := h.checks
	nextRun := h.nextRun
	h.mu.RUnlock()
	sort.Strings(names)

	uptime := time.Since(h.startTime)
	status := &HealthStatus{
		Status:        StatusHealthy,
		Uptime:        formatUptime(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		MemoryMB:      float64(mem.Alloc) / 1024 / 1024,
		Goroutines:    runtime.NumGoroutine(),
		Version:       h.version,
		Checks:        make([]CheckResult, 0, len(names)),
	}
	for _, name := range names {
		res := CheckResult{Name: name, Healthy: true}
		if err := checks[name](ctx); err != nil {
			res.Healthy = false
			res.Error = err.Error()
			status.Status = StatusUnhealthy
		}
		status.Checks = append(status.Checks, res)
	}
	if nextRun != nil {
		if t := nextRun(); !t.IsZero() {
			status.NextRun = &t
		}
	}
	return status
}

// IsHealthy reports whether every check passes.
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Status == StatusHealthy
}

// Uptime returns how long the checker has existed.
func (h *HealthChecker) Uptime() time.Duration {
	return time.Since(h.startTime)
}

func formatUptime(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if minutes := int(d.Minutes()) % 60; minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours() / 24)
	if hours := int(d.Hours()) % 24; hours > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
