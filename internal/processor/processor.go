package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/midprice-exporter/internal/feed"
	"github.com/rickgao/midprice-exporter/internal/metrics"
)

// DefaultSource is the exchange label written with every sample.
const DefaultSource = "Binance"

// ErrUnhandledEvent is returned for event types the processor does not know.
var ErrUnhandledEvent = errors.New("unhandled feed event")

var half = decimal.NewFromFloat(0.5)

// Sink receives mid-price samples.
type Sink interface {
	Set(source, symbol string, value float64)
	Get(source, symbol string) (float64, bool)
}

// Acknowledger answers keepalive requests on the session that produced them.
type Acknowledger interface {
	AcknowledgeKeepalive(payload []byte) error
}

// Config configures a Processor.
type Config struct {
	Source string       // Exchange label (e.g., "Binance")
	Filter SymbolFilter // Empty = all symbols
}

// Processor classifies feed events and publishes mid-prices.
type Processor struct {
	cfg     Config
	sink    Sink
	metrics *metrics.Feed
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Processor. m may be nil.
func New(cfg Config, sink Sink, m *metrics.Feed, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}

	return &Processor{
		cfg:     cfg,
		sink:    sink,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Process handles a single event. A returned error means the session that
// produced ev can no longer be used.
func (p *Processor) Process(ev feed.Event, ack Acknowledger) error {
	switch ev := ev.(type) {
	case feed.PriceUpdate:
		p.metrics.EventReceived(metrics.KindPriceUpdate, p.now())
		p.handlePriceUpdate(ev)
		return nil

	case feed.KeepaliveRequest:
		p.metrics.EventReceived(metrics.KindKeepalive, p.now())
		if err := ack.AcknowledgeKeepalive(ev.Payload); err != nil {
			return fmt.Errorf("acknowledge keepalive: %w", err)
		}
		p.metrics.KeepaliveSent()
		return nil

	case feed.Unrecognized:
		p.metrics.EventReceived(metrics.KindUnrecognized, p.now())
		p.logger.Error("unknown feed message", "raw", string(ev.Raw))
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnhandledEvent, ev)
	}
}

func (p *Processor) handlePriceUpdate(ev feed.PriceUpdate) {
	if !p.cfg.Filter.Allows(ev.Symbol) {
		p.metrics.Filtered()
		return
	}

	mid, exact := MidPrice(ev.BestBid, ev.BestAsk)
	if !exact {
		p.metrics.ConversionFallback()
		p.logger.Warn("mid-price not representable as float64, publishing 0",
			"symbol", ev.Symbol,
			"bid", ev.BestBid.String(),
			"ask", ev.BestAsk.String(),
		)
	}

	if _, seen := p.sink.Get(p.cfg.Source, ev.Symbol); !seen {
		p.logger.Info("first price for symbol", "symbol", ev.Symbol, "mid", mid)
	}
	p.sink.Set(p.cfg.Source, ev.Symbol, mid)
}

// MidPrice returns (bid+ask)/2 as float64. When the exact decimal result
// cannot be represented (overflow to ±Inf or NaN) it returns 0 and false.
// Ordinary float rounding is not a failure.
func MidPrice(bid, ask decimal.Decimal) (float64, bool) {
	mid := bid.Add(ask).Mul(half)

	f, _ := mid.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
