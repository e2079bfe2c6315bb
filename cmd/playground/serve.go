package main

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/ai-playground/internal/adapter/http/fiber/middleware"
	wsAdapter "github.com/seu-repo/ai-playground/internal/adapter/websocket"
	"github.com/seu-repo/ai-playground/internal/service/health"
	"github.com/seu-repo/ai-playground/internal/service/voice"
)

// gatewayNotifier logs notices; gateway clients see them in the snapshot.
type gatewayNotifier struct {
	log *zap.Logger
}

func (n gatewayNotifier) Notify(message string) {
	n.log.Warn("Voice notice", zap.String("notice", message))
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlags("serve", a.out)
	port := fs.Int("port", a.cfg.UI.Port, "gateway port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hub := wsAdapter.NewHub(a.log)
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	ctrl := a.voiceController(gatewayNotifier{log: a.log})
	unsubscribe := ctrl.Subscribe(hub.Publish)
	defer unsubscribe()
	defer ctrl.Close()

	app := newGateway(a, voice.NewLauncher(ctrl, a.log), hub)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Starting UI gateway", zap.Int("port", *port), zap.String("backend", a.backend.BaseURL()))
		errCh <- app.Listen(fmt.Sprintf(":%d", *port))
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway failed: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("Shutting down UI gateway...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("gateway forced to shutdown: %w", err)
	}
	a.log.Info("UI gateway exited gracefully")
	return nil
}

func newGateway(a *app, launcher *voice.Launcher, hub *wsAdapter.Hub) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               a.cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(a.log),
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(a.log))
	app.Use(middleware.NewCORS(a.cfg.UI))

	healthSvc := health.NewService(&health.Config{
		Version:      a.cfg.App.Version,
		Backend:      a.backend,
		Cache:        a.cache,
		BreakerState: a.breakerState,
	}, a.log)
	healthSvc.RegisterChecker("audio", audioChecker(a.cfg.Audio.FFmpegPath, a.cfg.Audio.FFplayPath))
	health.NewFiberHandler(healthSvc).RegisterRoutes(app)

	if a.cfg.Prometheus.Enabled {
		// Adapt net/http handler to fasthttp for Fiber
		metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(a.cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metrics(c.Context())
			return nil
		})
	}

	handlers.NewVoiceHandler(launcher, hub, a.log).Register(app)
	handlers.NewHistoryHandler(a.historyService(), a.log).Register(app)
	return app
}

// audioChecker degrades readiness when ffmpeg or ffplay is missing; the
// gateway still serves history without them.
func audioChecker(binaries ...string) health.Checker {
	return func(ctx context.Context) health.CheckResult {
		start := time.Now()
		result := health.CheckResult{Name: "audio", Status: health.StatusHealthy, Timestamp: start}
		for _, bin := range binaries {
			if _, err := exec.LookPath(bin); err != nil {
				result.Status = health.StatusDegraded
				result.Message = bin + " not found"
				break
			}
		}
		result.Duration = time.Since(start)
		return result
	}
}
