package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvSymbol  = "SYMBOL"  // Comma-separated symbol list
	EnvPort    = "PORT"    // Metrics port
	EnvTimeout = "TIMEOUT" // Stall timeout in seconds (or a Go duration)
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config (or starts empty when path is "") and
// applies environment overrides and default values. Callers validate after
// applying their own flag overrides.
func LoadWithDefaults(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from SYMBOL, PORT and TIMEOUT.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSymbol); ok && strings.TrimSpace(v) != "" {
		c.Symbols.List = strings.Split(v, ",")
	}

	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, err)
		}
		c.Metrics.Port = port
	}

	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvTimeout, err)
		}
		c.Feed.StallTimeout = d
	}

	return nil
}

// maxTimeoutSeconds is the largest whole-second count a time.Duration holds.
const maxTimeoutSeconds = math.MaxInt64 / int64(time.Second)

// ParseTimeout accepts whole seconds ("60") or a Go duration ("1m30s").
func ParseTimeout(v string) (time.Duration, error) {
	secs, err := strconv.ParseInt(v, 10, 64)
	switch {
	case err == nil:
		if secs > maxTimeoutSeconds || secs < -maxTimeoutSeconds {
			return 0, fmt.Errorf("timeout %s seconds out of range", v)
		}
		return time.Duration(secs) * time.Second, nil
	case errors.Is(err, strconv.ErrRange):
		return 0, fmt.Errorf("timeout %s seconds out of range", v)
	}
	return time.ParseDuration(v)
}
