package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientOptions carries the pool tuning the runtime resolves for the
// config-store client. Zero values leave the driver defaults in place.
type ClientOptions struct {
	PoolSize    int
	DialTimeout time.Duration
}

// Connect builds the Redis client backing the tiered config store.
// Deployed environments hand us a redis:// URL (which may select a DB
// and carry credentials); local runs pass a bare host:port. Pool tuning
// from opts applies on top of either form so resolution fails fast
// instead of queueing behind an unreachable cache.
func Connect(_ context.Context, addr string, opts ClientOptions) (*redis.Client, error) {
	var clientOpts *redis.Options
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		clientOpts = parsed
	} else {
		clientOpts = &redis.Options{Addr: addr}
	}

	if opts.PoolSize > 0 {
		clientOpts.PoolSize = opts.PoolSize
	}
	if opts.DialTimeout > 0 {
		clientOpts.DialTimeout = opts.DialTimeout
	}
	return redis.NewClient(clientOpts), nil
}
