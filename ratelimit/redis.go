package ratelimit

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/springbank-ai/netagent/toolerr"
)

// RedisOptions configures the shared limiter's Redis connection.
type RedisOptions struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string

	// TLS configuration for secure connections.
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration

	// KeyPrefix namespaces limiter keys. Defaults to "netagent:ratelimit".
	KeyPrefix string
}

// Redis is a fixed-window limiter whose counters live in Redis, so all
// agent instances sharing a provider account draw from one budget.
type Redis struct {
	client  *redis.Client
	budgets map[string]Budget
	prefix  string
	now     func() time.Time
}

// NewRedis creates a shared limiter and verifies the connection.
func NewRedis(opts RedisOptions, budgets map[string]Budget) (*Redis, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "netagent:ratelimit"
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	r := &Redis{
		client:  client,
		budgets: make(map[string]Budget, len(budgets)),
		prefix:  opts.KeyPrefix,
		now:     time.Now,
	}
	for p, b := range budgets {
		r.budgets[p] = b
	}
	return r, nil
}

func (r *Redis) budget(provider string) Budget {
	if b, ok := r.budgets[provider]; ok && b.Calls > 0 && b.Window > 0 {
		return b
	}
	return DefaultBudget
}

// Acquire implements Limiter. The counter key embeds the window start,
// so a new window begins with a fresh key and the old one expires on
// its own.
func (r *Redis) Acquire(ctx context.Context, provider string) error {
	b := r.budget(provider)
	now := r.now()
	windowStart := now.Truncate(b.Window)
	key := fmt.Sprintf("%s:%s:%d", r.prefix, provider, windowStart.Unix())

	pipe := r.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, b.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return toolerr.New(provider, "", toolerr.ErrCodeNetwork,
			"rate limit backend unavailable").WithCause(err)
	}

	if count.Val() > int64(b.Calls) {
		reset := windowStart.Add(b.Window).Sub(now)
		return rateLimited(provider, b, reset)
	}
	return nil
}

// Ping verifies backend connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
