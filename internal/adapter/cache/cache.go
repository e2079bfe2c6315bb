// Package cache holds the ports.Cache drivers used for history lists and
// the model/voice catalog.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/ports"
	"github.com/seu-repo/ai-playground/pkg/config"
)

// ErrMiss is returned by Get for absent or expired keys.
var ErrMiss = errors.New("cache miss")

// New builds the driver named by cfg.Cache.Driver. An unreachable Redis
// falls back to the local cache.
func New(cfg *config.Config, log *zap.Logger) (ports.Cache, error) {
	switch cfg.Cache.Driver {
	case "", "local":
		return NewLocalCache(time.Minute, log), nil
	case "none":
		return Noop{}, nil
	case "redis":
		c, err := NewRedisCache(cfg.Redis.URL, cfg.Redis.DialTimeout, log)
		if err != nil {
			log.Warn("Redis unavailable, using local cache", zap.Error(err))
			return NewLocalCache(time.Minute, log), nil
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrMiss, key)
}

func (Noop) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (Noop) Delete(ctx context.Context, key string) error { return nil }
func (Noop) Ping() error                                  { return nil }
func (Noop) Close() error                                 { return nil }
