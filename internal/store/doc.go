// Package store holds the latest mid-price per (source, symbol).
//
// The Store is a prometheus.Collector: it is registered on an explicit
// registry and snapshotted on every scrape. Entries are created on first
// observation, overwritten on each update and never removed.
package store
