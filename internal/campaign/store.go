package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const configKey = "reminders:campaign_config"

// Store keeps the campaign configuration in Redis under a bounded TTL.
// The config silently reverts to the defaults once the TTL elapses, so a
// keepalive must run on its own cadence to keep an admin-written config
// alive between writes.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Get returns the stored configuration, or the defaults when none is stored.
// On a transport or decode failure it still returns the defaults alongside
// the error so callers can degrade instead of stalling a send evaluation.
func (s *Store) Get(ctx context.Context) (Config, error) {
	raw, err := s.rdb.Get(ctx, configKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), fmt.Errorf("get campaign config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode campaign config: %w", err)
	}
	return cfg, nil
}

// Put validates and stores cfg as a full replacement, resetting the TTL.
func (s *Store) Put(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode campaign config: %w", err)
	}

	if err := s.rdb.Set(ctx, configKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store campaign config: %w", err)
	}
	return nil
}

// KeepAlive extends the TTL of the stored config without touching its
// content. A bare EXPIRE cannot race-overwrite a concurrent Put, and running
// it against a missing key is a harmless no-op (defaults apply either way).
func (s *Store) KeepAlive(ctx context.Context) error {
	if err := s.rdb.Expire(ctx, configKey, s.ttl).Err(); err != nil {
		return fmt.Errorf("keepalive campaign config: %w", err)
	}
	return nil
}

var ErrInvalidConfig = errors.New("invalid campaign config")
