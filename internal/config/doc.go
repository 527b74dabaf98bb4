// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Values are resolved in order: defaults, file, environment (SYMBOL, PORT,
// TIMEOUT), then command-line flags applied by the caller.
package config
