package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Backend        BackendConfig        `mapstructure:"backend"`
	Voice          VoiceConfig          `mapstructure:"voice"`
	Chat           ChatConfig           `mapstructure:"chat"`
	Audio          AudioConfig          `mapstructure:"audio"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Events         EventsConfig         `mapstructure:"events"`
	UI             UIConfig             `mapstructure:"ui"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type VoiceConfig struct {
	Persona     string        `mapstructure:"persona"`
	Model       string        `mapstructure:"model"`
	Speed       float64       `mapstructure:"speed"`
	ResumeDelay time.Duration `mapstructure:"resume_delay"`
}

type ChatConfig struct {
	Model           string `mapstructure:"model"`
	TranslateModel  string `mapstructure:"translate_model"`
	VisionModel     string `mapstructure:"vision_model"`
	VisionPrompt    string `mapstructure:"vision_prompt"`
	DefaultLanguage string `mapstructure:"default_language"`
}

type AudioConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFplayPath  string `mapstructure:"ffplay_path"`
	InputFormat string `mapstructure:"input_format"`
	InputDevice string `mapstructure:"input_device"`
	SampleRate  int    `mapstructure:"sample_rate"`
	OutputDir   string `mapstructure:"output_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  int           `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  int           `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

type CacheConfig struct {
	Driver     string        `mapstructure:"driver"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
	CatalogTTL time.Duration `mapstructure:"catalog_ttl"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type EventsConfig struct {
	Driver      string `mapstructure:"driver"`
	URL         string `mapstructure:"url"`
	TurnSubject string `mapstructure:"turn_subject"`
}

type UIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type OpenTelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
