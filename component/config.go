// Package component provides loading and parsing of agent.yaml configuration
// files. An agent configuration defines the data providers, their credentials
// and paging limits, the session budgets, and the shared rate limits.
package component

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents an agent.yaml configuration file.
type Config struct {
	// Identity
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Providers maps provider names ("affinity", "harmonic") to their
	// connection settings.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Budget bounds each question session.
	Budget *BudgetConfig `yaml:"budget,omitempty"`

	// RateLimits maps provider names to call budgets. Providers without
	// an entry get the limiter's default.
	RateLimits map[string]RateLimitConfig `yaml:"rate_limits,omitempty"`

	// Redis, when set, switches rate limiting from in-process windows to
	// a shared Redis backend.
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// ProviderConfig holds the connection settings for one data provider.
type ProviderConfig struct {
	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the credential.
	// Keys are never stored in the file itself.
	APIKeyEnv string `yaml:"api_key_env"`

	// PageSize is the per-request page size. Zero takes the provider's
	// default.
	PageSize int `yaml:"page_size,omitempty"`

	// MaxPages caps pagination per tool call.
	MaxPages int `yaml:"max_pages,omitempty"`

	// Timeout bounds each HTTP request.
	// Format: Go duration string (e.g., "15s").
	Timeout string `yaml:"timeout,omitempty"`
}

// GetTimeout parses the request timeout string.
// Returns the default value if not set or invalid.
func (p *ProviderConfig) GetTimeout() time.Duration {
	if p == nil || p.Timeout == "" {
		return 15 * time.Second
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// APIKey resolves the credential from the configured environment variable.
func (p *ProviderConfig) APIKey() (string, error) {
	if p.APIKeyEnv == "" {
		return "", fmt.Errorf("api_key_env is not set")
	}
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is empty", p.APIKeyEnv)
	}
	return key, nil
}

// BudgetConfig bounds one question session.
type BudgetConfig struct {
	// MaxToolCalls caps tool invocations per session.
	// Default: 20
	MaxToolCalls int `yaml:"max_tool_calls,omitempty"`

	// MaxDuration is the session's wall-clock allowance.
	// Format: Go duration string (e.g., "2m")
	// Default: 2m
	MaxDuration string `yaml:"max_duration,omitempty"`

	// ProviderFanOut caps concurrent steps per provider.
	// Default: 2
	ProviderFanOut int `yaml:"provider_fan_out,omitempty"`
}

// GetMaxDuration parses the session duration string.
// Returns the default value if not set or invalid.
func (b *BudgetConfig) GetMaxDuration() time.Duration {
	if b == nil || b.MaxDuration == "" {
		return 2 * time.Minute
	}
	d, err := time.ParseDuration(b.MaxDuration)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// GetMaxToolCalls returns the configured call ceiling or the default.
func (b *BudgetConfig) GetMaxToolCalls() int {
	if b == nil || b.MaxToolCalls <= 0 {
		return 20
	}
	return b.MaxToolCalls
}

// GetProviderFanOut returns the configured fan-out or the default.
func (b *BudgetConfig) GetProviderFanOut() int {
	if b == nil || b.ProviderFanOut <= 0 {
		return 2
	}
	return b.ProviderFanOut
}

// RateLimitConfig is a fixed-window call budget for one provider.
type RateLimitConfig struct {
	// Calls is the number of calls allowed per window.
	Calls int `yaml:"calls"`

	// Window is the budget window.
	// Format: Go duration string (e.g., "1m")
	// Default: 1m
	Window string `yaml:"window,omitempty"`
}

// GetWindow parses the window duration string.
// Returns the default value if not set or invalid.
func (r *RateLimitConfig) GetWindow() time.Duration {
	if r == nil || r.Window == "" {
		return time.Minute
	}
	d, err := time.ParseDuration(r.Window)
	if err != nil {
		return time.Minute
	}
	return d
}

// RedisConfig points the rate limiter at a shared Redis backend.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection string.
	URL string `yaml:"url"`

	// KeyPrefix namespaces the limiter's keys.
	// Default: "netagent:ratelimit"
	KeyPrefix string `yaml:"key_prefix,omitempty"`

	// ConnectTimeout bounds the initial connection check.
	// Format: Go duration string (e.g., "5s")
	// Default: 5s
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
}

// GetConnectTimeout parses the connect timeout string.
// Returns the default value if not set or invalid.
func (r *RedisConfig) GetConnectTimeout() time.Duration {
	if r == nil || r.ConnectTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(r.ConnectTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// Validate checks the parts of the config that cannot default.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	for name, p := range c.Providers {
		if p.APIKeyEnv == "" {
			return fmt.Errorf("provider %s: api_key_env is required", name)
		}
	}
	if c.Redis != nil && c.Redis.URL == "" {
		return fmt.Errorf("redis: url is required when the redis block is present")
	}
	return nil
}

// Load reads and parses an agent.yaml file from the given path.
// If the path is a directory, it looks for agent.yaml or agent.yml in
// that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "agent.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "agent.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no agent.yaml or agent.yml found in %s", path)
			}
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return &config, nil
}

// LoadFromDir searches for agent.yaml starting from the given directory
// and walking up to parent directories until found or root is reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no agent.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}
