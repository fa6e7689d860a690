package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the service configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultGridLevel         = 14
	DefaultRedisAddr         = "127.0.0.1:6379"
	DefaultDBPath            = "./data/gridpulse.db"
	DefaultAlpha             = 0.1
	DefaultHistoryWindow     = 7 * 24 * time.Hour
	DefaultTrackTTL          = 5 * time.Minute
	DefaultBroadcastInterval = 5 * time.Second
	DefaultEventStream       = "congestion:events"
	DefaultMaxStreamLen      = 10000
)

// Baseline strategies.
const (
	StrategyZScore     = "zscore"
	StrategyPercentile = "percentile"
)

// Config is the full service configuration parsed from config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Grid     GridConfig     `yaml:"grid"`
	Live     LiveConfig     `yaml:"live"`
	Baseline BaselineConfig `yaml:"baseline"`
	Events   EventsConfig   `yaml:"events"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, metrics, and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// Auth configures API client authentication.
	Auth AuthConfig `yaml:"auth"`

	// Track controls the live cell registry that feeds the dashboard surface.
	Track TrackConfig `yaml:"track"`

	// WS controls the WebSocket broadcast hub.
	WS WSConfig `yaml:"ws"`
}

// AuthConfig controls API client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header the key is read from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default
// "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// TrackConfig controls live cell registry retention.
type TrackConfig struct {
	// TTL is how long a cell stays listed after its last observation.
	// Default: 5m.
	TTL time.Duration `yaml:"ttl"`
}

// WSConfig controls the WebSocket hub.
type WSConfig struct {
	// BroadcastInterval is how often the hub pushes the cell snapshot to
	// connected clients. Default: 5s.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`
}

// GridConfig controls spatial cell derivation.
type GridConfig struct {
	// Level is the S2 cell level (0–30). Default: 14, roughly 0.4 km² cells.
	Level int `yaml:"level"`
}

// LiveConfig selects and configures the ephemeral counting store.
type LiveConfig struct {
	// Backend is one of: redis | memory.
	Backend string `yaml:"backend"`

	// RedisAddr is the host:port of the Redis server (redis backend).
	RedisAddr string `yaml:"redis_addr"`

	// RedisDB is the Redis logical database number.
	RedisDB int `yaml:"redis_db"`
}

// BaselineConfig selects and configures the durable baseline.
type BaselineConfig struct {
	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db_path"`

	// Strategy is one of: zscore | percentile. Exactly one statistical
	// representation is active per deployment.
	Strategy string `yaml:"strategy"`

	// Alpha is the EMA smoothing factor (zscore strategy). Default: 0.1.
	Alpha float64 `yaml:"alpha"`

	// MinSamples overrides the calibration threshold. Zero selects the
	// strategy default (50 for zscore, 20 for percentile).
	MinSamples int `yaml:"min_samples"`

	// HistoryWindow is the trailing window for percentile queries
	// (percentile strategy). Default: 168h.
	HistoryWindow time.Duration `yaml:"history_window"`
}

// EventsConfig controls event fan-out.
type EventsConfig struct {
	// Stream is the Redis stream events are appended to.
	// Default: congestion:events.
	Stream string `yaml:"stream"`

	// MaxStreamLen caps the stream length (approximate trimming).
	// Default: 10000.
	MaxStreamLen int64 `yaml:"max_stream_len"`

	// Kafka optionally mirrors events onto a Kafka topic. Disabled when
	// Brokers is empty.
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig defines the optional Kafka event sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used with the cell ID as
	// the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over a scored cell:
	// "vehicle_count >= 30", "avg_speed < 15", "level == HIGH",
	// "combined_z > 2".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Track:    TrackConfig{TTL: DefaultTrackTTL},
			WS:       WSConfig{BroadcastInterval: DefaultBroadcastInterval},
		},
		Grid: GridConfig{Level: DefaultGridLevel},
		Live: LiveConfig{
			Backend:   "redis",
			RedisAddr: DefaultRedisAddr,
		},
		Baseline: BaselineConfig{
			DBPath:        DefaultDBPath,
			Strategy:      StrategyZScore,
			Alpha:         DefaultAlpha,
			HistoryWindow: DefaultHistoryWindow,
		},
		Events: EventsConfig{
			Stream:       DefaultEventStream,
			MaxStreamLen: DefaultMaxStreamLen,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Track.TTL < 0 {
		return fmt.Errorf("server.track.ttl must not be negative")
	}
	if cfg.Grid.Level < 0 || cfg.Grid.Level > 30 {
		return fmt.Errorf("grid.level %d is out of range [0, 30]", cfg.Grid.Level)
	}
	switch cfg.Live.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("live.backend %q unknown: want redis|memory", cfg.Live.Backend)
	}
	switch cfg.Baseline.Strategy {
	case StrategyZScore, StrategyPercentile:
	default:
		return fmt.Errorf("baseline.strategy %q unknown: want zscore|percentile", cfg.Baseline.Strategy)
	}
	if cfg.Baseline.Alpha <= 0 || cfg.Baseline.Alpha > 1 {
		return fmt.Errorf("baseline.alpha %g is out of range (0, 1]", cfg.Baseline.Alpha)
	}
	if cfg.Baseline.MinSamples < 0 {
		return fmt.Errorf("baseline.min_samples must not be negative")
	}
	if cfg.Baseline.HistoryWindow <= 0 {
		return fmt.Errorf("baseline.history_window must be positive")
	}
	if cfg.Events.MaxStreamLen <= 0 {
		return fmt.Errorf("events.max_stream_len must be positive")
	}
	if len(cfg.Events.Kafka.Brokers) > 0 && cfg.Events.Kafka.Topic == "" {
		return fmt.Errorf("events.kafka.topic is required when brokers are set")
	}
	return nil
}
