package config

import (
	"github.com/rickgao/midprice-exporter/internal/feed"
	"github.com/rickgao/midprice-exporter/internal/processor"
	"github.com/rickgao/midprice-exporter/internal/server"
	"github.com/rickgao/midprice-exporter/internal/store"
	"github.com/rickgao/midprice-exporter/internal/supervisor"
)

// Default values for log settings. Component defaults come from each
// component's DefaultConfig.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	fd := feed.DefaultConfig()
	sd := supervisor.DefaultConfig()
	md := server.DefaultConfig()

	// Feed defaults
	if c.Feed.Source == "" {
		c.Feed.Source = processor.DefaultSource
	}
	if c.Feed.URL == "" {
		c.Feed.URL = fd.URL
	}
	if len(c.Feed.Topics) == 0 {
		c.Feed.Topics = fd.Topics
	}
	if c.Feed.StallTimeout == 0 {
		c.Feed.StallTimeout = sd.StallTimeout
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = fd.HandshakeTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = fd.WriteTimeout
	}
	if c.Feed.ReadLimit == 0 {
		c.Feed.ReadLimit = fd.ReadLimit
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = fd.BufferSize
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = sd.ReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = max(c.Feed.ReconnectBaseDelay, sd.ReconnectMaxDelay)
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = md.Port
	}
	if c.Metrics.Name == "" {
		c.Metrics.Name = store.DefaultMetricName
	}
	if c.Metrics.HealthPath == "" {
		c.Metrics.HealthPath = md.HealthPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
