package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/rs/zerolog"
)

// Config holds all settings for the messenger client session.
type Config struct {
	// Service settings
	ServiceName string `env:"SERVICE_NAME" envDefault:"messenger"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Backend endpoints and identity
	APIBaseURL string `env:"MESSENGER_API_URL" envDefault:"http://localhost:8081"`
	GatewayURL string `env:"MESSENGER_GATEWAY_URL" envDefault:"ws://localhost:8080/ws"`
	AuthToken  string `env:"MESSENGER_TOKEN"`
	UserID     string `env:"MESSENGER_USER_ID"`

	// HTTP client
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`

	// Gateway connection
	PingInterval time.Duration `env:"GATEWAY_PING_INTERVAL" envDefault:"30s"`
	ReadTimeout  time.Duration `env:"GATEWAY_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"GATEWAY_WRITE_TIMEOUT" envDefault:"10s"`
	EventBuffer  int           `env:"GATEWAY_EVENT_BUFFER" envDefault:"256"`

	// Typing indicator
	TypingDebounce time.Duration `env:"TYPING_DEBOUNCE" envDefault:"2s"`
	TypingTTL      time.Duration `env:"TYPING_TTL" envDefault:"5s"`
}

// Load parses environment variables into Config. Validation happens after
// callers apply flag overrides, via Validate.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// Validate checks endpoint shape and timer sanity before any component is
// built. Identity fields are checked here rather than at dial time so
// misconfiguration fails at startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("MESSENGER_USER_ID is required")
	}
	if strings.TrimSpace(c.AuthToken) == "" {
		return fmt.Errorf("MESSENGER_TOKEN is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("MESSENGER_API_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if !strings.HasPrefix(c.GatewayURL, "ws://") && !strings.HasPrefix(c.GatewayURL, "wss://") {
		return fmt.Errorf("MESSENGER_GATEWAY_URL must be a ws(s) URL, got %q", c.GatewayURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	if c.PingInterval <= 0 || c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("gateway timeouts must be positive")
	}
	if c.ReadTimeout <= c.PingInterval {
		return fmt.Errorf("gateway read timeout must exceed the ping interval")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("gateway event buffer must be positive")
	}
	if c.TypingDebounce <= 0 {
		return fmt.Errorf("typing debounce must be positive")
	}
	if c.TypingTTL < c.TypingDebounce {
		return fmt.Errorf("typing TTL must be at least the debounce window")
	}
	return nil
}

// LoggerLevel parses LogLevel, defaulting to info on unknown values.
func (c *Config) LoggerLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
