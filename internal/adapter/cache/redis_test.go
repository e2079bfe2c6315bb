package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"
)

func TestRedisCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	c, err := NewRedisCache(url, 5*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	t.Run("set and get", func(t *testing.T) {
		if err := c.Set(ctx, "history:voice", map[string]int{"id": 1}, time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := c.Get(ctx, "history:voice")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != `{"id":1}` {
			t.Errorf("unexpected value %q", got)
		}
	})

	t.Run("miss", func(t *testing.T) {
		if _, err := c.Get(ctx, "absent"); !errors.Is(err, ErrMiss) {
			t.Errorf("expected ErrMiss, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		_ = c.Set(ctx, "gone", "x", time.Minute)
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := c.Get(ctx, "gone"); !errors.Is(err, ErrMiss) {
			t.Errorf("expected ErrMiss after delete, got %v", err)
		}
	})

	if err := c.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
