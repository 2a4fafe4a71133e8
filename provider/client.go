package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/springbank-ai/netagent/toolerr"
)

// AuthFunc attaches credentials to an outgoing request.
type AuthFunc func(*http.Request)

// BasicAuth authenticates with HTTP basic auth. Affinity-style APIs
// take an empty username and the API key as the password.
func BasicAuth(username, password string) AuthFunc {
	return func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

// BearerAuth authenticates with an Authorization bearer token.
func BearerAuth(token string) AuthFunc {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Client is the GET-and-decode plumbing shared by the adapters. It
// translates transport and status failures into classified tool errors
// so the retry executor can act on them without provider knowledge.
type Client struct {
	provider string
	baseURL  string
	auth     AuthFunc
	http     *http.Client
}

// NewClient creates a client for one provider API.
func NewClient(provider, baseURL string, auth AuthFunc, cfg *Config) *Client {
	return &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		auth:     auth,
		http:     cfg.httpClient(),
	}
}

// GetJSON issues a GET against path, decodes the JSON body into out,
// and classifies any failure. The operation name appears in errors.
func (c *Client) GetJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return toolerr.New(c.provider, operation, toolerr.ErrCodeNetwork,
			"build request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return toolerr.New(c.provider, operation, toolerr.ErrCodeNetwork,
			"request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Bounded read keeps a misbehaving provider from holding us.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		terr := toolerr.FromHTTPStatus(c.provider, operation, resp.StatusCode,
			resp.Header.Get("Retry-After"))
		if len(body) > 0 {
			return terr.WithDetails(map[string]any{"body": string(body)})
		}
		return terr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return toolerr.New(c.provider, operation, toolerr.ErrCodeNormalization,
			fmt.Sprintf("decode %s response", path)).WithCause(err)
	}
	return nil
}
