package observability

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Status: HealthStatusUp, Version: version}
}

// AddComponent adds a component result. Down wins over degraded.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	switch h.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) Health

// HealthRegistry runs registered checks concurrently.
type HealthRegistry struct {
	service string
	version string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]HealthCheck
}

// NewHealthRegistry creates a registry. Each check gets at most timeout.
func NewHealthRegistry(service, version string, timeout time.Duration) *HealthRegistry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthRegistry{
		service: service,
		version: version,
		timeout: timeout,
		checks:  make(map[string]HealthCheck),
	}
}

// Register adds or replaces a named check.
func (r *HealthRegistry) Register(name string, check HealthCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = check
}

// Check runs every check and aggregates the results in name order.
func (r *HealthRegistry) Check(ctx context.Context) *ServiceHealth {
	r.mu.RLock()
	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheck, len(r.checks))
	for k, v := range r.checks {
		checks[k] = v
	}
	r.mu.RUnlock()
	sort.Strings(names)

	results := make([]Health, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			h := checks[name](cctx)
			h.Name = name
			results[i] = h
		}()
	}
	wg.Wait()

	sh := NewServiceHealth(r.service, r.version)
	for _, h := range results {
		sh.AddComponent(h)
	}
	return sh
}

// PingCheck adapts a ping-style function to a HealthCheck.
func PingCheck(ping func(ctx context.Context) error) HealthCheck {
	return func(ctx context.Context) Health {
		if err := ping(ctx); err != nil {
			return Health{Status: HealthStatusDown, Message: err.Error()}
		}
		return Health{Status: HealthStatusUp}
	}
}
