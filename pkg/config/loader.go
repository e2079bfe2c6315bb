package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ai-playground")
	v.SetDefault("app.version", "v1.0.0")
	v.SetDefault("app.environment", "development")

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 0)

	v.SetDefault("voice.persona", "af_sarah")
	v.SetDefault("voice.model", "llama3.2-vision:latest")
	v.SetDefault("voice.speed", 1.0)
	v.SetDefault("voice.resume_delay", 500*time.Millisecond)

	v.SetDefault("chat.model", "llama3.2")
	v.SetDefault("chat.translate_model", "llama3.2-vision:latest")
	v.SetDefault("chat.vision_model", "llama3.2-vision")
	v.SetDefault("chat.vision_prompt", "Describe this image")
	v.SetDefault("chat.default_language", "Spanish")

	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("audio.ffplay_path", "ffplay")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.output_dir", ".")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.min_requests", 3)
	v.SetDefault("circuit_breaker.failure_ratio", 0.6)

	v.SetDefault("cache.driver", "local")
	v.SetDefault("cache.history_ttl", 30*time.Second)
	v.SetDefault("cache.catalog_ttl", 5*time.Minute)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.turn_subject", "playground.voice.turns")

	v.SetDefault("ui.port", 3000)
	v.SetDefault("ui.allowed_origins", []string{"*"})

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("opentelemetry.enabled", false)
	v.SetDefault("opentelemetry.service_name", "ai-playground")
	v.SetDefault("opentelemetry.sample_ratio", 1.0)
}

// Load reads config.yaml from the usual locations (or path, when given),
// then overlays APP_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ai-playground")
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short aliases for the settings people change most
	v.BindEnv("backend.base_url", "PLAYGROUND_BACKEND_URL", "APP_BACKEND_BASE_URL")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("events.url", "NATS_URL", "AMQP_URL", "APP_EVENTS_URL")
	v.BindEnv("logging.level", "LOG_LEVEL", "APP_LOGGING_LEVEL")
	v.BindEnv("ui.port", "PORT", "APP_UI_PORT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend.base_url %q", c.Backend.BaseURL)
	}
	if c.Voice.Speed <= 0 {
		return fmt.Errorf("voice.speed must be positive, got %v", c.Voice.Speed)
	}
	if c.Voice.ResumeDelay < 0 {
		return fmt.Errorf("voice.resume_delay must not be negative")
	}
	switch c.Cache.Driver {
	case "local", "redis", "none":
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	switch c.Events.Driver {
	case "none", "nats", "rabbitmq":
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	return nil
}
