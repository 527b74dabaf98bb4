// Package metrics provides Prometheus self-metrics for the exporter.
//
// Key metrics:
//   - Feed session starts and failures by reason
//   - Event counts by kind, filtered updates, keepalive replies
//   - Decimal conversion fallbacks
//   - Connection state and time of the last received event
//   - Build info
package metrics
