package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Duration decodes Go duration strings ("3s", "1m30s") from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	API       APIConfig       `toml:"api"`
	Bridge    BridgeConfig    `toml:"bridge"`
	Sync      SyncConfig      `toml:"sync"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Log       LogConfig       `toml:"log"`
}

type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Token   string   `toml:"token"`
	Timeout Duration `toml:"timeout"`
}

type BridgeConfig struct {
	Listen string `toml:"listen"`
	Token  string `toml:"token"`
	Debug  bool   `toml:"debug"`
}

// SyncConfig holds the active/idle cadence of every recurring concern and the
// two one-shot typing windows.
type SyncConfig struct {
	ConversationsActive Duration `toml:"conversations_active"`
	ConversationsIdle   Duration `toml:"conversations_idle"`
	MessagesActive      Duration `toml:"messages_active"`
	MessagesIdle        Duration `toml:"messages_idle"`
	TypingActive        Duration `toml:"typing_active"`
	TypingIdle          Duration `toml:"typing_idle"`
	TypingDebounce      Duration `toml:"typing_debounce"`
	TypingDecay         Duration `toml:"typing_decay"`
}

type TelemetryConfig struct {
	AMQPURL      string `toml:"amqp_url"`
	Exchange     string `toml:"exchange"`
	RoutingKey   string `toml:"routing_key"`
	Environment  string `toml:"environment"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: Duration{10 * time.Second},
		},
		Bridge: BridgeConfig{
			Listen: "127.0.0.1:8090",
		},
		Sync: SyncConfig{
			ConversationsActive: Duration{15 * time.Second},
			ConversationsIdle:   Duration{60 * time.Second},
			MessagesActive:      Duration{3 * time.Second},
			MessagesIdle:        Duration{15 * time.Second},
			TypingActive:        Duration{2 * time.Second},
			TypingIdle:          Duration{10 * time.Second},
			TypingDebounce:      Duration{3 * time.Second},
			TypingDecay:         Duration{4 * time.Second},
		},
		Telemetry: TelemetryConfig{
			Exchange:    "insureflow.events",
			RoutingKey:  "messaging.sync",
			Environment: "local",
			ServiceName: "messaging-sync",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path (a missing file is not an error), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.API.BaseURL = getEnv("SYNC_API_BASE_URL", c.API.BaseURL)
	c.API.Token = getEnv("SYNC_API_TOKEN", c.API.Token)
	c.Bridge.Listen = getEnv("SYNC_BRIDGE_LISTEN", c.Bridge.Listen)
	c.Bridge.Token = getEnv("SYNC_BRIDGE_TOKEN", c.Bridge.Token)
	c.Bridge.Debug = getBoolEnv("SYNC_BRIDGE_DEBUG", c.Bridge.Debug)
	c.Telemetry.AMQPURL = getEnv("SYNC_AMQP_URL", c.Telemetry.AMQPURL)
	c.Telemetry.Exchange = getEnv("SYNC_AMQP_EXCHANGE", c.Telemetry.Exchange)
	c.Telemetry.Environment = getEnv("SYNC_ENVIRONMENT", c.Telemetry.Environment)
	c.Telemetry.OTLPEndpoint = getEnv("SYNC_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Log.Level = getEnv("SYNC_LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getBoolEnv("SYNC_LOG_PRETTY", c.Log.Pretty)

	if v, ok := os.LookupEnv("SYNC_API_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SYNC_API_TIMEOUT: %w", err)
		}
		c.API.Timeout = Duration{d}
	}
	return nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url must be set")
	}
	if c.API.Timeout.Duration <= 0 {
		return errors.New("api.timeout must be positive")
	}

	windows := map[string]Duration{
		"sync.conversations_active": c.Sync.ConversationsActive,
		"sync.conversations_idle":   c.Sync.ConversationsIdle,
		"sync.messages_active":      c.Sync.MessagesActive,
		"sync.messages_idle":        c.Sync.MessagesIdle,
		"sync.typing_active":        c.Sync.TypingActive,
		"sync.typing_idle":          c.Sync.TypingIdle,
		"sync.typing_debounce":      c.Sync.TypingDebounce,
		"sync.typing_decay":         c.Sync.TypingDecay,
	}
	for name, d := range windows {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
