package config

import "time"

// Config is the root configuration for the exporter.
type Config struct {
	Feed    FeedConfig    `yaml:"feed"`
	Symbols SymbolsConfig `yaml:"symbols"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// FeedConfig holds upstream stream and reconnect settings.
type FeedConfig struct {
	Source             string        `yaml:"source"` // Exchange label on every sample
	URL                string        `yaml:"url"`
	Topics             []string      `yaml:"topics"`
	StallTimeout       time.Duration `yaml:"stall_timeout"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ReadLimit          int64         `yaml:"read_limit"`
	BufferSize         int           `yaml:"buffer_size"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// SymbolsConfig holds the symbol allow-list.
type SymbolsConfig struct {
	List     []string `yaml:"list"`
	Required bool     `yaml:"required"` // Refuse to start with an empty list
}

// MetricsConfig holds scrape endpoint settings.
type MetricsConfig struct {
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	HealthPath string `yaml:"health_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
