package observability

import "context"

// HealthStatus is up, degraded or down.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

var severity = map[HealthStatus]int{
	HealthStatusUp:       0,
	HealthStatusDegraded: 1,
	HealthStatusDown:     2,
}

// Worse returns the more severe of a and b.
func Worse(a, b HealthStatus) HealthStatus {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Health is the state of one component, such as a transport.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecker reports the health of a component.
// httpclient.Transport reports its circuit breaker.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// ServiceHealth aggregates the components of a client. Status is the
// worst component status.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth returns an up ServiceHealth without components.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

// AddComponent records h and lowers Status to match it.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	sh.Status = Worse(sh.Status, h.Status)
}

// Check runs every checker and records the results. Nil checkers are skipped.
func (sh *ServiceHealth) Check(ctx context.Context, checkers ...HealthChecker) *ServiceHealth {
	for _, c := range checkers {
		if c != nil {
			sh.AddComponent(c.CheckHealth(ctx))
		}
	}
	return sh
}
