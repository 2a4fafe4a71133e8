package netagent

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/springbank-ai/netagent/agent"
	"github.com/springbank-ai/netagent/component"
	"github.com/springbank-ai/netagent/provider"
	"github.com/springbank-ai/netagent/ratelimit"
)

// Option configures the Client.
type Option func(*clientConfig)

// clientConfig holds configuration for a Client instance.
type clientConfig struct {
	configPath string
	config     *component.Config
	adapters   []provider.Adapter
	budget     agent.Budget
	limiter    ratelimit.Limiter
	logger     *slog.Logger
	tracer     trace.TracerProvider
	meter      metric.MeterProvider
}

// WithConfig sets the agent.yaml path the client loads its providers,
// budgets, and rate limits from. The path may point at the file itself
// or at a directory containing it.
func WithConfig(path string) Option {
	return func(c *clientConfig) {
		c.configPath = path
	}
}

// WithParsedConfig supplies an already-loaded configuration, bypassing
// file loading entirely.
func WithParsedConfig(cfg *component.Config) Option {
	return func(c *clientConfig) {
		c.config = cfg
	}
}

// WithAdapters replaces the config-driven provider set with explicit
// adapters. Useful for tests and custom providers.
func WithAdapters(adapters ...provider.Adapter) Option {
	return func(c *clientConfig) {
		c.adapters = adapters
	}
}

// WithBudget overrides the session budget from the config file.
func WithBudget(b agent.Budget) Option {
	return func(c *clientConfig) {
		c.budget = b
	}
}

// WithLimiter overrides the config-driven rate limiter. The client does
// not close limiters it did not create.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *clientConfig) {
		c.limiter = l
	}
}

// WithLogger sets a custom logger for the client.
// If not provided, a default JSON logger is created.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracerProvider sets an OpenTelemetry tracer provider for
// distributed tracing. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *clientConfig) {
		c.tracer = tp
	}
}

// WithMeterProvider sets an OpenTelemetry meter provider for metrics.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *clientConfig) {
		c.meter = mp
	}
}
