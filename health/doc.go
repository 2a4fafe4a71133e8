// Package health provides reusable health check functions for the
// agent's dependencies: provider API endpoints and the shared rate
// limit backend. It offers a standardized status type so callers can
// surface readiness without knowing each dependency's failure modes.
package health
