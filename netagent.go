package netagent

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/springbank-ai/netagent/agent"
	"github.com/springbank-ai/netagent/component"
	"github.com/springbank-ai/netagent/health"
	"github.com/springbank-ai/netagent/llm"
	"github.com/springbank-ai/netagent/provider"
	"github.com/springbank-ai/netagent/provider/affinity"
	"github.com/springbank-ai/netagent/provider/harmonic"
	"github.com/springbank-ai/netagent/ratelimit"
)

// Client is the top-level entry point. It owns the provider adapters,
// the rate limiter, and the orchestrating agent, and is safe for
// concurrent use.
type Client struct {
	agent   *agent.Agent
	logger  *slog.Logger
	limiter *ratelimit.Redis // non-nil only when the client created it
	checks  []health.Check
}

// NewClient builds a client around the given oracle.
//
// Providers, budgets, and rate limits come from an agent.yaml
// configuration (WithConfig or WithParsedConfig) unless explicit
// adapters are supplied with WithAdapters.
//
// Example:
//
//	client, err := netagent.NewClient(oracle,
//	    netagent.WithConfig("/etc/netagent/agent.yaml"),
//	    netagent.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
func NewClient(oracle llm.Completer, opts ...Option) (*Client, error) {
	const op = "NewClient"

	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	fileCfg := cfg.config
	if fileCfg == nil && cfg.configPath != "" {
		loaded, err := component.Load(cfg.configPath)
		if err != nil {
			return nil, configError(op, err)
		}
		fileCfg = loaded
	}

	adapters := cfg.adapters
	if len(adapters) == 0 {
		if fileCfg == nil {
			return nil, configError(op, fmt.Errorf("%w: no adapters and no config file", ErrInvalidConfig))
		}
		built, err := buildAdapters(fileCfg)
		if err != nil {
			return nil, configError(op, err)
		}
		adapters = built
	}

	var owned *ratelimit.Redis
	limiter := cfg.limiter
	if limiter == nil {
		budgets := rateBudgets(fileCfg)
		if fileCfg != nil && fileCfg.Redis != nil {
			r, err := ratelimit.NewRedis(ratelimit.RedisOptions{
				URL:            fileCfg.Redis.URL,
				KeyPrefix:      fileCfg.Redis.KeyPrefix,
				ConnectTimeout: fileCfg.Redis.GetConnectTimeout(),
			}, budgets)
			if err != nil {
				return nil, configError(op, err)
			}
			owned = r
			limiter = r
		} else {
			limiter = ratelimit.NewLocal(budgets)
		}
	}

	budget := cfg.budget
	if budget == (agent.Budget{}) && fileCfg != nil {
		budget = agent.Budget{
			MaxToolCalls:   fileCfg.Budget.GetMaxToolCalls(),
			MaxDuration:    fileCfg.Budget.GetMaxDuration(),
			ProviderFanOut: fileCfg.Budget.GetProviderFanOut(),
		}
	}

	ag, err := agent.New(agent.Config{
		Completer:      oracle,
		Adapters:       adapters,
		Budget:         budget,
		Limiter:        limiter,
		Logger:         cfg.logger,
		TracerProvider: cfg.tracer,
		MeterProvider:  cfg.meter,
	})
	if err != nil {
		if owned != nil {
			owned.Close()
		}
		return nil, configError(op, err)
	}

	checks := healthChecks(fileCfg, owned)
	return &Client{agent: ag, logger: cfg.logger, limiter: owned, checks: checks}, nil
}

// Health probes the configured provider endpoints and, when the client
// owns one, the Redis rate limit backend.
func (c *Client) Health(ctx context.Context) health.Report {
	return health.RunAll(ctx, c.checks)
}

// Ask answers one question about the relationship network. See
// agent.Agent.Ask for the failure contract: degraded sessions come back
// as partial or empty answers, and only a session where every attempted
// lookup failed returns an error.
func (c *Client) Ask(ctx context.Context, question string) (*agent.Answer, error) {
	answer, err := c.agent.Ask(ctx, question)
	if err != nil {
		return nil, &ClientError{Op: "Client.Ask", Kind: KindExecution, Err: err}
	}
	return answer, nil
}

// Close releases resources the client created. Limiters supplied via
// WithLimiter are the caller's to close.
func (c *Client) Close() error {
	if c.limiter != nil {
		return c.limiter.Close()
	}
	return nil
}

// buildAdapters instantiates one adapter per configured provider.
func buildAdapters(cfg *component.Config) ([]provider.Adapter, error) {
	adapters := make([]provider.Adapter, 0, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		key, err := pc.APIKey()
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w: %v", name, ErrMissingCredential, err)
		}
		pcfg := provider.Config{
			BaseURL:  pc.BaseURL,
			APIKey:   key,
			PageSize: pc.PageSize,
			MaxPages: pc.MaxPages,
			Timeout:  pc.GetTimeout(),
		}

		switch name {
		case affinity.Name:
			a, err := affinity.New(pcfg)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", name, err)
			}
			adapters = append(adapters, a)
		case harmonic.Name:
			a, err := harmonic.New(pcfg)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", name, err)
			}
			adapters = append(adapters, a)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
	}
	return adapters, nil
}

// healthChecks derives dependency probes from the loaded configuration.
// Clients built from explicit adapters have no endpoints to probe.
func healthChecks(cfg *component.Config, owned *ratelimit.Redis) []health.Check {
	var checks []health.Check
	if cfg != nil {
		for name, pc := range cfg.Providers {
			url := pc.BaseURL
			if url == "" {
				switch name {
				case affinity.Name:
					url = affinity.DefaultBaseURL
				case harmonic.Name:
					url = harmonic.DefaultBaseURL
				}
			}
			if url != "" {
				checks = append(checks, health.EndpointCheck(name, url, nil))
			}
		}
	}
	if owned != nil {
		checks = append(checks, health.PingCheck("ratelimit-redis", owned.Ping))
	}
	return checks
}

func rateBudgets(cfg *component.Config) map[string]ratelimit.Budget {
	if cfg == nil || len(cfg.RateLimits) == 0 {
		return nil
	}
	budgets := make(map[string]ratelimit.Budget, len(cfg.RateLimits))
	for name, rl := range cfg.RateLimits {
		budgets[name] = ratelimit.Budget{Calls: rl.Calls, Window: rl.GetWindow()}
	}
	return budgets
}
