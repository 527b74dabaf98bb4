// Package server exposes the metric registry over HTTP for scraping.
//
// Every path returns the Prometheus text exposition, except the health
// path which reports the feed loop state as JSON.
package server
