// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/midprice-exporter/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/midprice-exporter/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/midprice-exporter/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import "github.com/prometheus/client_golang/prometheus"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// Labels returns the build identity as constant metric labels.
func Labels() prometheus.Labels {
	return prometheus.Labels{
		"version":    Version,
		"commit":     Commit,
		"build_time": BuildTime,
	}
}

// LogAttrs returns the build identity as slog key/value pairs.
func LogAttrs() []any {
	return []any{"version", Version, "commit", Commit, "build_time", BuildTime}
}
