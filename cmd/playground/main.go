// Command playground is a terminal and local-gateway client for the AI
// Playground backend: streaming chat, hands-free voice mode, speech,
// translation, vision and history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/ai-playground/internal/adapter/audio"
	"github.com/seu-repo/ai-playground/internal/adapter/backend"
	"github.com/seu-repo/ai-playground/internal/adapter/cache"
	"github.com/seu-repo/ai-playground/internal/adapter/queue"
	"github.com/seu-repo/ai-playground/internal/domain"
	"github.com/seu-repo/ai-playground/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/ai-playground/internal/observability/telemetry"
	"github.com/seu-repo/ai-playground/internal/ports"
	"github.com/seu-repo/ai-playground/internal/service/catalog"
	"github.com/seu-repo/ai-playground/internal/service/chat"
	"github.com/seu-repo/ai-playground/internal/service/history"
	"github.com/seu-repo/ai-playground/internal/service/speech"
	"github.com/seu-repo/ai-playground/internal/service/translate"
	"github.com/seu-repo/ai-playground/internal/service/vision"
	"github.com/seu-repo/ai-playground/internal/service/voice"
	"github.com/seu-repo/ai-playground/pkg/config"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"chat":      {"chat", "interactive streaming chat (/attach, /detach, /voice, /reset, /quit)", runChat},
	"voice":     {"voice", "hands-free voice mode", runVoice},
	"stt":       {"stt", "transcribe an audio file, or the microphone with -mic", runSTT},
	"tts":       {"tts", "synthesize speech", runTTS},
	"translate": {"translate", "translate text", runTranslate},
	"vision":    {"vision", "describe an image", runVision},
	"history":   {"history", "list or delete history entries", runHistory},
	"models":    {"models", "list chat models and TTS voices", runModels},
	"serve":     {"serve", "run the local UI gateway", runServe},
	"watch":     {"watch", "follow voice mode state from a running gateway", runWatch},
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "playground:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("playground", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config.yaml")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(stderr)
		return flag.ErrHelp
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		usage(stderr)
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, log, stdout)
	if err != nil {
		return err
	}
	a.in = readLines(os.Stdin)
	defer a.Close()

	return cmd.run(ctx, a, fs.Args()[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: playground [-config path] <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// app holds the adapters shared by every command. Services are built on
// demand since most commands need only one or two.
type app struct {
	cfg *config.Config
	log *zap.Logger
	in  <-chan string
	out io.Writer

	tp      *sdktrace.TracerProvider
	breaker *circuitbreaker.HTTPClient
	backend *backend.Client
	cache   ports.Cache
	mq      queue.MessageQueue
	capture *audio.FFmpegCapture
	player  *audio.FFplayPlayer

	histOnce sync.Once
	hist     *history.Service
}

func newApp(cfg *config.Config, log *zap.Logger, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, log: log, out: out}

	if cfg.OpenTelemetry.Enabled {
		tp, err := telemetry.InitTracer(cfg.OpenTelemetry.ServiceName, cfg.App.Version, cfg.OpenTelemetry.Endpoint, cfg.OpenTelemetry.SampleRatio)
		if err != nil {
			log.Warn("Tracing disabled", zap.Error(err))
		} else {
			a.tp = tp
		}
	}

	var doer backend.Doer = &http.Client{Timeout: cfg.Backend.Timeout}
	if cfg.CircuitBreaker.Enabled {
		a.breaker = circuitbreaker.NewHTTPClientWithSettings(circuitbreaker.HTTPClientSettings{
			Timeout: cfg.Backend.Timeout,
			Breaker: circuitbreaker.Settings{
				Name:         "playground-backend",
				MaxRequests:  uint32(cfg.CircuitBreaker.MaxRequests),
				Interval:     cfg.CircuitBreaker.Interval,
				Timeout:      cfg.CircuitBreaker.Timeout,
				MinRequests:  uint32(cfg.CircuitBreaker.MinRequests),
				FailureRatio: cfg.CircuitBreaker.FailureRatio,
			},
		}, log)
		doer = a.breaker
	}

	client, err := backend.NewClient(cfg.Backend.BaseURL, doer, log)
	if err != nil {
		return nil, err
	}
	a.backend = client

	if a.cache, err = cache.New(cfg, log); err != nil {
		return nil, err
	}

	if a.mq, err = queue.New(cfg.Events, log); err != nil {
		// Turn events are optional; voice mode works without a broker.
		log.Warn("Event broker unavailable, turn events disabled", zap.String("driver", cfg.Events.Driver), zap.Error(err))
		a.mq = nil
	}

	a.capture = audio.NewFFmpegCapture(audio.CaptureOptions{
		FFmpegPath:  cfg.Audio.FFmpegPath,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
		SampleRate:  cfg.Audio.SampleRate,
	}, log)
	a.player = audio.NewFFplayPlayer(cfg.Audio.FFplayPath, log)

	return a, nil
}

func (a *app) Close() {
	a.capture.Stop()
	a.player.Stop()
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			a.log.Warn("Failed to close event broker", zap.Error(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.log.Warn("Failed to close cache", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx, a.tp); err != nil {
		a.log.Warn("Failed to flush traces", zap.Error(err))
	}
}

func (a *app) breakerState() string {
	if a.breaker == nil {
		return "closed"
	}
	return a.breaker.State().String()
}

func (a *app) voiceController(n ports.Notifier) *voice.Controller {
	return voice.NewController(a.backend, a.capture, a.player, n,
		a.historyService().RefreshOnTurn(queue.NewTurnPublisher(a.mq, a.cfg.Events.TurnSubject, a.log)),
		voice.Options{
			Voice:       a.cfg.Voice.Persona,
			Model:       a.cfg.Voice.Model,
			Speed:       a.cfg.Voice.Speed,
			ResumeDelay: a.cfg.Voice.ResumeDelay,
		}, a.log)
}

func (a *app) chatService() *chat.Service {
	svc := chat.NewService(a.backend, a.backend, a.cfg.Chat.Model, a.log)
	svc.OnSession(func(int64) {
		a.historyService().Invalidate(context.Background(), domain.CapabilityChat)
	})
	return svc
}

// historyService is shared so that voice turns and new chat sessions
// invalidate the same cached lists the gateway serves.
func (a *app) historyService() *history.Service {
	a.histOnce.Do(func() {
		a.hist = history.NewService(a.backend, a.backend, a.backend, a.cache, a.cfg.Cache.HistoryTTL, a.log)
	})
	return a.hist
}

func (a *app) catalogService() *catalog.Service {
	return catalog.NewService(a.backend, a.backend, a.cache, a.cfg.Cache.CatalogTTL, a.log)
}

func (a *app) speechService() *speech.Service {
	return speech.NewService(a.backend, a.capture, a.player, a.cfg.Audio.OutputDir, a.log)
}

func (a *app) translateService() *translate.Service {
	return translate.NewService(a.backend, a.cfg.Chat.TranslateModel, a.cfg.Chat.DefaultLanguage, a.log)
}

func (a *app) visionService() *vision.Service {
	return vision.NewService(a.backend, a.cfg.Chat.VisionModel, a.cfg.Chat.VisionPrompt, a.log)
}

// newFlags builds a subcommand flag set in the same style as the root.
func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("playground "+name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
