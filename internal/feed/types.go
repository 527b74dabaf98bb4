package feed

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrConnect      = errors.New("feed connect failed")
	ErrStallTimeout = errors.New("no feed message within stall timeout")
	ErrStreamEnded  = errors.New("feed stream ended")
	ErrTransport    = errors.New("feed transport error")
	ErrClosed       = errors.New("session closed")
)

// Event is a decoded upstream message. The set of implementations is closed:
// PriceUpdate, KeepaliveRequest and Unrecognized.
type Event interface {
	isEvent()
}

// PriceUpdate is a best bid/ask update for one symbol.
type PriceUpdate struct {
	Symbol   string
	BestBid  decimal.Decimal
	BestAsk  decimal.Decimal
	UpdateID int64
}

// KeepaliveRequest is a server ping that must be answered with
// Session.AcknowledgeKeepalive.
type KeepaliveRequest struct {
	Payload []byte
}

// Unrecognized carries any frame that is not a book ticker update.
type Unrecognized struct {
	Raw []byte
}

func (PriceUpdate) isEvent()      {}
func (KeepaliveRequest) isEvent() {}
func (Unrecognized) isEvent()     {}

// Config configures a feed session.
type Config struct {
	URL              string        // Base stream URL (e.g., wss://fstream.binance.com)
	Topics           []string      // Stream names joined into the combined-stream query
	HandshakeTimeout time.Duration // WebSocket handshake deadline
	WriteTimeout     time.Duration // Deadline for control frame writes
	ReadLimit        int64         // Max inbound frame size in bytes (0 = unlimited)
	BufferSize       int           // Decoded event channel capacity
}

// DefaultConfig returns the Binance USD-M futures book ticker stream.
func DefaultConfig() Config {
	return Config{
		URL:              "wss://fstream.binance.com",
		Topics:           []string{"!bookTicker"},
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadLimit:        1 << 20,
		BufferSize:       1024,
	}
}
