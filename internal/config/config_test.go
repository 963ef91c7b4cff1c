package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ServiceName:    "messenger",
		Environment:    "test",
		LogLevel:       "info",
		APIBaseURL:     "http://localhost:8081",
		GatewayURL:     "ws://localhost:8080/ws",
		AuthToken:      "tok",
		UserID:         "u1",
		HTTPTimeout:    15 * time.Second,
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		EventBuffer:    256,
		TypingDebounce: 2 * time.Second,
		TypingTTL:      5 * time.Second,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MESSENGER_TOKEN", "tok")
	t.Setenv("MESSENGER_USER_ID", "u1")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "messenger", cfg.ServiceName)
	assert.Equal(t, "http://localhost:8081", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.GatewayURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 60*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 256, cfg.EventBuffer)
	assert.Equal(t, 2*time.Second, cfg.TypingDebounce)
	assert.Equal(t, 5*time.Second, cfg.TypingTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("MESSENGER_API_URL", "https://chat.example.com/api")
	t.Setenv("MESSENGER_GATEWAY_URL", "wss://chat.example.com/ws")
	t.Setenv("TYPING_DEBOUNCE", "500ms")
	t.Setenv("GATEWAY_EVENT_BUFFER", "64")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "wss://chat.example.com/ws", cfg.GatewayURL)
	assert.Equal(t, 500*time.Millisecond, cfg.TypingDebounce)
	assert.Equal(t, 64, cfg.EventBuffer)
}

func TestValidateCatchesBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing user id", func(c *Config) { c.UserID = " " }},
		{"missing token", func(c *Config) { c.AuthToken = "" }},
		{"bad api url", func(c *Config) { c.APIBaseURL = "ftp://example.com" }},
		{"bad gateway url", func(c *Config) { c.GatewayURL = "http://example.com/ws" }},
		{"zero http timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"negative ping interval", func(c *Config) { c.PingInterval = -time.Second }},
		{"read timeout under ping interval", func(c *Config) { c.ReadTimeout = c.PingInterval }},
		{"zero event buffer", func(c *Config) { c.EventBuffer = 0 }},
		{"zero debounce", func(c *Config) { c.TypingDebounce = 0 }},
		{"ttl under debounce", func(c *Config) { c.TypingTTL = c.TypingDebounce - time.Millisecond }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoggerLevel(t *testing.T) {
	cfg := validConfig()

	cfg.LogLevel = "debug"
	assert.Equal(t, zerolog.DebugLevel, cfg.LoggerLevel())

	cfg.LogLevel = "WARN"
	assert.Equal(t, zerolog.WarnLevel, cfg.LoggerLevel())

	cfg.LogLevel = "bogus"
	assert.Equal(t, zerolog.InfoLevel, cfg.LoggerLevel())

	cfg.LogLevel = ""
	assert.Equal(t, zerolog.InfoLevel, cfg.LoggerLevel())
}
