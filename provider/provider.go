// Package provider defines the adapter contract for upstream data
// sources and the HTTP plumbing the concrete adapters share. Each
// adapter translates the closed tool set it serves into provider API
// calls and normalizes the responses into graph records.
package provider

import (
	"net/http"
	"time"

	"github.com/springbank-ai/netagent/tool"
)

// Adapter exposes one upstream data source as a set of tools.
type Adapter interface {
	// Name identifies the provider in results, errors, and budgets.
	Name() string

	// Tools returns the tool set this adapter serves. The set is
	// fixed for the life of the adapter.
	Tools() []*tool.Tool
}

// Config carries the settings every adapter needs.
type Config struct {
	// BaseURL overrides the provider's production endpoint. Used by
	// tests and proxies.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests.
	APIKey string `yaml:"-"`

	// PageSize is the records-per-page the adapter requests.
	PageSize int `yaml:"page_size"`

	// MaxPages caps pagination per tool call. When the provider still
	// reports more data at the cap, the result is marked truncated.
	MaxPages int `yaml:"max_pages"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// HTTPClient overrides the transport. Nil uses a client built
	// from Timeout.
	HTTPClient *http.Client `yaml:"-"`
}

// DefaultMaxPages bounds pagination when the config does not.
const DefaultMaxPages = 5

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 15 * time.Second

func (c *Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// GetMaxPages returns the pagination cap, falling back to
// DefaultMaxPages when unset.
func (c *Config) GetMaxPages() int {
	if c.MaxPages > 0 {
		return c.MaxPages
	}
	return DefaultMaxPages
}
