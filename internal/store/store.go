package store

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Default metric identity, matching what dashboards already scrape.
const (
	DefaultMetricName = "price"
	DefaultMetricHelp = "The price for a given symbol"
)

// Label names attached to every sample.
const (
	LabelExchange = "exchange"
	LabelSymbol   = "symbol"
)

// Key identifies a single gauge series.
type Key struct {
	Source string
	Symbol string
}

// Sample is a point-in-time copy of one entry.
type Sample struct {
	Source string
	Symbol string
	Value  float64
}

// Store is a concurrency-safe map of (source, symbol) to the latest value.
// Writes come from the feed pipeline, reads from any number of scrapes.
type Store struct {
	desc *prometheus.Desc

	mu     sync.RWMutex
	values map[Key]float64
}

// New creates an empty store exposing its entries under metricName.
// An empty name falls back to DefaultMetricName.
func New(metricName string) *Store {
	if metricName == "" {
		metricName = DefaultMetricName
	}

	return &Store{
		desc: prometheus.NewDesc(
			metricName,
			DefaultMetricHelp,
			[]string{LabelExchange, LabelSymbol},
			nil,
		),
		values: make(map[Key]float64),
	}
}

// Set records value for (source, symbol), replacing any previous value.
func (s *Store) Set(source, symbol string, value float64) {
	s.mu.Lock()
	s.values[Key{Source: source, Symbol: symbol}] = value
	s.mu.Unlock()
}

// Get returns the current value for (source, symbol).
func (s *Store) Get(source, symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[Key{Source: source, Symbol: symbol}]
	return v, ok
}

// Len returns the number of tracked series.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a copy of all entries ordered by source then symbol.
func (s *Store) Snapshot() []Sample {
	s.mu.RLock()
	out := make([]Sample, 0, len(s.values))
	for k, v := range s.values {
		out = append(out, Sample{Source: k.Source, Symbol: k.Symbol, Value: v})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Describe implements prometheus.Collector.
func (s *Store) Describe(ch chan<- *prometheus.Desc) {
	ch <- s.desc
}

// Collect implements prometheus.Collector. The lock is held only while
// copying, never while the registry encodes the response.
func (s *Store) Collect(ch chan<- prometheus.Metric) {
	for _, sample := range s.Snapshot() {
		ch <- prometheus.MustNewConstMetric(
			s.desc,
			prometheus.GaugeValue,
			sample.Value,
			sample.Source,
			sample.Symbol,
		)
	}
}
