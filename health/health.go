package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// State summarizes a check outcome.
type State string

const (
	// StateHealthy means the dependency is fully operational.
	StateHealthy State = "healthy"

	// StateDegraded means the dependency responded but not as expected;
	// the agent can operate with reduced fidelity.
	StateDegraded State = "degraded"

	// StateUnhealthy means the dependency is unreachable or broken.
	StateUnhealthy State = "unhealthy"
)

// Status is the outcome of one health check.
type Status struct {
	State   State          `json:"state"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Healthy builds a healthy status.
func Healthy(message string) Status {
	return Status{State: StateHealthy, Message: message}
}

// Degraded builds a degraded status with optional details.
func Degraded(message string, details map[string]any) Status {
	return Status{State: StateDegraded, Message: message, Details: details}
}

// Unhealthy builds an unhealthy status with optional details.
func Unhealthy(message string, details map[string]any) Status {
	return Status{State: StateUnhealthy, Message: message, Details: details}
}

// Check is a named probe of one dependency.
type Check struct {
	Name string
	Run  func(ctx context.Context) Status
}

// EndpointCheck probes an HTTP API endpoint. Any HTTP response counts
// as reachable: providers answer unauthenticated probes with 401 or
// 404, which still proves the endpoint is up. Server errors degrade the
// status; transport failures are unhealthy.
func EndpointCheck(name, url string, client *http.Client) Check {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return Check{
		Name: name,
		Run: func(ctx context.Context) Status {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return Unhealthy(fmt.Sprintf("invalid endpoint %s", url),
					map[string]any{"error": err.Error()})
			}
			resp, err := client.Do(req)
			if err != nil {
				return Unhealthy(fmt.Sprintf("%s is unreachable", url),
					map[string]any{"error": err.Error()})
			}
			resp.Body.Close()

			if resp.StatusCode >= 500 {
				return Degraded(fmt.Sprintf("%s returned %d", url, resp.StatusCode),
					map[string]any{"status": resp.StatusCode})
			}
			return Healthy(fmt.Sprintf("%s is reachable", url))
		},
	}
}

// PingCheck wraps a dependency's own connectivity probe, such as the
// Redis limiter's Ping.
func PingCheck(name string, ping func(ctx context.Context) error) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) Status {
			if err := ping(ctx); err != nil {
				return Unhealthy(fmt.Sprintf("%s ping failed", name),
					map[string]any{"error": err.Error()})
			}
			return Healthy(fmt.Sprintf("%s is reachable", name))
		},
	}
}

// Report maps check names to their outcomes.
type Report map[string]Status

// Overall reduces the report to its worst state. An empty report is
// healthy.
func (r Report) Overall() State {
	overall := StateHealthy
	for _, s := range r {
		switch s.State {
		case StateUnhealthy:
			return StateUnhealthy
		case StateDegraded:
			overall = StateDegraded
		}
	}
	return overall
}

// RunAll executes every check sequentially and collects the outcomes.
func RunAll(ctx context.Context, checks []Check) Report {
	report := make(Report, len(checks))
	for _, c := range checks {
		report[c.Name] = c.Run(ctx)
	}
	return report
}
