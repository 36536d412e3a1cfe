package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deviceautosetup/provisioning/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisConfigStore reads serialized configuration documents from Redis.
// Writers live outside this service; the store never mutates keys.
type RedisConfigStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisConfigStore creates the config cache adapter. keyPrefix may be
// empty when the cache holds bare `{model}_{version}` keys.
func NewRedisConfigStore(client redis.UniversalClient, keyPrefix string) *RedisConfigStore {
	return &RedisConfigStore{client: client, keyPrefix: keyPrefix}
}

// Get returns the decoded payload for key. A missing key is a plain
// miss. A present key whose value does not decode is an error: the entry
// exists, so reporting a miss would hide corruption from operators.
func (s *RedisConfigStore) Get(ctx context.Context, key string) (domain.ConfigPayload, bool, error) {
	raw, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var payload domain.ConfigPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("decode cached config: %w", err)
	}
	return payload, true, nil
}
