package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/pkg/config"
)

func TestLocalCache_SetGet(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c := NewLocalCache(time.Minute, zap.NewNop())
	defer c.Close()

	// Act
	if err := c.Set(ctx, "models", []string{"llama3.2"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "models")

	// Assert
	if err != nil {
		t.Fatalf("expected hit, got %v", err)
	}
	if got != `["llama3.2"]` {
		t.Errorf("expected JSON encoded value, got %q", got)
	}
}

func TestLocalCache_MissAndExpiry(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c := NewLocalCache(time.Minute, zap.NewNop())
	defer c.Close()
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set(ctx, "history:tts", "[]", time.Second)

	// Act
	_, missErr := c.Get(ctx, "unknown")
	now = now.Add(2 * time.Second)
	_, expiredErr := c.Get(ctx, "history:tts")

	// Assert
	if !errors.Is(missErr, ErrMiss) {
		t.Errorf("expected ErrMiss for unknown key, got %v", missErr)
	}
	if !errors.Is(expiredErr, ErrMiss) {
		t.Errorf("expected ErrMiss for expired key, got %v", expiredErr)
	}

	c.cleanup()
	if len(c.data) != 0 {
		t.Errorf("expected cleanup to drop expired entries, %d left", len(c.data))
	}
}

func TestLocalCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, zap.NewNop())
	defer c.Close()

	_ = c.Set(ctx, "k", "v", 0)
	_ = c.Delete(ctx, "k")

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss after delete, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close must be safe, got %v", err)
	}
}

func TestNew_Drivers(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{"local", false},
		{"none", false},
		{"", false},
		{"memcached", true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := &config.Config{Cache: config.CacheConfig{Driver: tt.driver}}
			c, err := New(cfg, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if c != nil {
				_ = c.Close()
			}
		})
	}
}

func TestNew_RedisFallsBackToLocal(t *testing.T) {
	cfg := &config.Config{
		Cache: config.CacheConfig{Driver: "redis"},
		Redis: config.RedisConfig{URL: "redis://127.0.0.1:1/0", DialTimeout: 100 * time.Millisecond},
	}

	c, err := New(cfg, zap.NewNop())

	if err != nil {
		t.Fatalf("expected fallback, got %v", err)
	}
	defer c.Close()
	if _, ok := c.(*LocalCache); !ok {
		t.Errorf("expected *LocalCache fallback, got %T", c)
	}
}
