package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSymbols is returned when symbols.required is set and the list is empty.
var ErrNoSymbols = errors.New("symbol cannot be empty")

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Feed.Source == "" {
		return errors.New("feed.source is required")
	}
	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url must use ws:// or wss://, got %q", c.Feed.URL)
	}
	if len(c.Feed.Topics) == 0 {
		return errors.New("feed.topics must not be empty")
	}
	if c.Feed.StallTimeout <= 0 {
		return fmt.Errorf("feed.stall_timeout must be positive, got %s", c.Feed.StallTimeout)
	}
	if c.Feed.HandshakeTimeout <= 0 {
		return fmt.Errorf("feed.handshake_timeout must be positive, got %s", c.Feed.HandshakeTimeout)
	}
	if c.Feed.WriteTimeout <= 0 {
		return fmt.Errorf("feed.write_timeout must be positive, got %s", c.Feed.WriteTimeout)
	}
	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}
	if c.Feed.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("feed.reconnect_base_delay must be positive, got %s", c.Feed.ReconnectBaseDelay)
	}
	if c.Feed.ReconnectMaxDelay < c.Feed.ReconnectBaseDelay {
		return fmt.Errorf("feed.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Feed.ReconnectMaxDelay, c.Feed.ReconnectBaseDelay)
	}

	if c.Symbols.Required && len(c.SymbolList()) == 0 {
		return ErrNoSymbols
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if c.Metrics.Name == "" {
		return errors.New("metrics.name is required")
	}
	if c.Metrics.HealthPath != "" && !strings.HasPrefix(c.Metrics.HealthPath, "/") {
		return fmt.Errorf("metrics.health_path must start with /, got %q", c.Metrics.HealthPath)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// SymbolList returns the configured symbols, trimmed, upper-cased and
// without blanks.
func (c *Config) SymbolList() []string {
	out := make([]string, 0, len(c.Symbols.List))
	for _, s := range c.Symbols.List {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
