package health

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/mocks"
)

type pinger struct{ err error }

func (p pinger) Health(context.Context) error { return p.err }

func TestReady_AllHealthy(t *testing.T) {
	// Arrange
	svc := NewService(&Config{
		Backend:      pinger{},
		Cache:        mocks.NewMockCache(),
		BreakerState: func() string { return "closed" },
	}, zap.NewNop())

	// Act
	resp := svc.Ready(context.Background())

	// Assert
	if !resp.Ready || resp.Status != StatusHealthy {
		t.Errorf("expected ready/healthy, got %+v", resp)
	}
	if len(resp.Checks) != 3 {
		t.Errorf("expected 3 checks, got %d", len(resp.Checks))
	}
}

func TestReady_BackendDownIsUnhealthy(t *testing.T) {
	svc := NewService(&Config{Backend: pinger{err: errors.New("connection refused")}}, zap.NewNop())

	resp := svc.Ready(context.Background())

	if resp.Ready || resp.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy, got %+v", resp)
	}
}

func TestReady_CacheAndBreakerOnlyDegrade(t *testing.T) {
	// Arrange
	cache := mocks.NewMockCache()
	cache.PingFunc = func() error { return errors.New("redis down") }
	svc := NewService(&Config{
		Backend:      pinger{},
		Cache:        cache,
		BreakerState: func() string { return "open" },
	}, zap.NewNop())

	// Act
	resp := svc.Ready(context.Background())

	// Assert
	if !resp.Ready || resp.Status != StatusDegraded {
		t.Errorf("expected ready but degraded, got %+v", resp)
	}
	if resp.Checks["circuit_breaker"].Status != StatusDegraded {
		t.Errorf("expected degraded breaker, got %+v", resp.Checks["circuit_breaker"])
	}
}

func TestFiberHandler_ReadyStatusCode(t *testing.T) {
	// Arrange
	app := fiber.New()
	svc := NewService(&Config{Backend: pinger{err: errors.New("down")}}, zap.NewNop())
	NewFiberHandler(svc).RegisterRoutes(app)

	// Act
	live, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
	if err != nil {
		t.Fatal(err)
	}
	ready, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
	if err != nil {
		t.Fatal(err)
	}

	// Assert
	if live.StatusCode != fiber.StatusOK {
		t.Errorf("expected live 200, got %d", live.StatusCode)
	}
	if ready.StatusCode != fiber.StatusServiceUnavailable {
		body, _ := io.ReadAll(ready.Body)
		t.Errorf("expected ready 503, got %d: %s", ready.StatusCode, body)
	}
}
