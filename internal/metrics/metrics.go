package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rickgao/midprice-exporter/internal/version"
)

const namespace = "midprice"

// Failure reasons used as the "reason" label.
const (
	ReasonConnect    = "connect"
	ReasonStall      = "stall"
	ReasonEnded      = "ended"
	ReasonTransport  = "transport"
	ReasonProcessing = "processing"
)

// Event kinds used as the "kind" label.
const (
	KindPriceUpdate  = "price_update"
	KindKeepalive    = "keepalive"
	KindUnrecognized = "unrecognized"
)

// Feed groups the metrics describing the ingestion pipeline.
// All methods are safe to call on a nil *Feed.
type Feed struct {
	sessions            prometheus.Counter
	sessionFailures     *prometheus.CounterVec
	events              *prometheus.CounterVec
	filtered            prometheus.Counter
	keepalives          prometheus.Counter
	conversionFallbacks prometheus.Counter
	connected           prometheus.Gauge
	lastEvent           prometheus.Gauge
}

// NewFeed creates the feed metrics and registers them on reg.
func NewFeed(reg prometheus.Registerer) *Feed {
	factory := promauto.With(reg)

	return &Feed{
		sessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "sessions_total",
			Help:      "Number of feed sessions successfully opened",
		}),
		sessionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "session_failures_total",
			Help:      "Number of feed sessions that ended or failed to open, by reason",
		}, []string{"reason"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_total",
			Help:      "Number of feed events received, by kind",
		}, []string{"kind"}),
		filtered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "filtered_total",
			Help:      "Number of price updates dropped by the symbol filter",
		}),
		keepalives: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "keepalives_total",
			Help:      "Number of keepalive replies sent upstream",
		}),
		conversionFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_fallbacks_total",
			Help:      "Number of mid-prices that could not be represented as float64",
		}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connected",
			Help:      "1 while a feed session is streaming, 0 otherwise",
		}),
		lastEvent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_event_timestamp_seconds",
			Help:      "Unix time of the most recently received feed event",
		}),
	}
}

// SessionOpened records a successful connect.
func (f *Feed) SessionOpened() {
	if f == nil {
		return
	}
	f.sessions.Inc()
	f.connected.Set(1)
}

// SessionFailed records the end of a session (or a failed connect).
func (f *Feed) SessionFailed(reason string) {
	if f == nil {
		return
	}
	f.sessionFailures.WithLabelValues(reason).Inc()
	f.connected.Set(0)
}

// Disconnected marks the feed as not streaming without counting a failure.
func (f *Feed) Disconnected() {
	if f == nil {
		return
	}
	f.connected.Set(0)
}

// EventReceived counts an event of the given kind.
func (f *Feed) EventReceived(kind string, at time.Time) {
	if f == nil {
		return
	}
	f.events.WithLabelValues(kind).Inc()
	f.lastEvent.Set(float64(at.UnixNano()) / 1e9)
}

// Filtered counts a price update rejected by the symbol filter.
func (f *Feed) Filtered() {
	if f == nil {
		return
	}
	f.filtered.Inc()
}

// KeepaliveSent counts an acknowledged keepalive.
func (f *Feed) KeepaliveSent() {
	if f == nil {
		return
	}
	f.keepalives.Inc()
}

// ConversionFallback counts a mid-price replaced by the fallback value.
func (f *Feed) ConversionFallback() {
	if f == nil {
		return
	}
	f.conversionFallbacks.Inc()
}

// RegisterRuntime registers Go runtime, process and build info collectors.
func RegisterRuntime(reg prometheus.Registerer) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "exporter_build_info",
			Help:        "Build information; the value is always 1",
			ConstLabels: version.Labels(),
		}, func() float64 { return 1 }),
	)
}
