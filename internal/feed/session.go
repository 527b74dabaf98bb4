package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session represents a single live subscription to the upstream feed.
type Session interface {
	// ID returns a unique identifier used to correlate logs.
	ID() string

	// NextEvent blocks until the next event arrives, timeout elapses,
	// the connection terminates or ctx is done.
	NextEvent(ctx context.Context, timeout time.Duration) (Event, error)

	// AcknowledgeKeepalive answers a KeepaliveRequest. A failure is also
	// reported by the following NextEvent call.
	AcknowledgeKeepalive(payload []byte) error

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// session implements the Session interface.
type session struct {
	id     string
	cfg    Config
	logger *slog.Logger

	conn *websocket.Conn

	events chan Event
	ended  chan struct{} // closed by readLoop on terminal read error
	done   chan struct{} // closed by Close

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error

	mu      sync.Mutex
	readErr error
	ackErr  error
}

// Open dials the feed and subscribes to cfg.Topics.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	streamURL, err := StreamURL(cfg.URL, cfg.Topics)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if cfg.ReadLimit > 0 {
		conn.SetReadLimit(cfg.ReadLimit)
	}

	bufferSize := cfg.BufferSize
	if bufferSize < 1 {
		bufferSize = 1
	}

	id := uuid.NewString()
	s := &session{
		id:     id,
		cfg:    cfg,
		logger: logger.With("session", id),
		conn:   conn,
		events: make(chan Event, bufferSize),
		ended:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	// Server pings become events; the default handler would reply on its own.
	conn.SetPingHandler(func(data string) error {
		select {
		case s.events <- KeepaliveRequest{Payload: []byte(data)}:
		case <-s.done:
		}
		return nil
	})

	go s.readLoop()

	s.logger.Debug("feed connected", "url", streamURL)

	return s, nil
}

// StreamURL builds the combined-stream endpoint for topics.
func StreamURL(base string, topics []string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("unsupported feed url scheme %q", u.Scheme)
	}
	if len(topics) == 0 {
		return "", errors.New("no topics to subscribe")
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/stream"
	// Topic names such as !bookTicker must not be percent-encoded.
	u.RawQuery = "streams=" + strings.Join(topics, "/")
	return u.String(), nil
}

// ID returns the session identifier.
func (s *session) ID() string {
	return s.id
}

// NextEvent returns the next decoded event.
func (s *session) NextEvent(ctx context.Context, timeout time.Duration) (Event, error) {
	if err := s.pendingErr(); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.ended:
		// Deliver anything read before the connection went away.
		select {
		case ev := <-s.events:
			return ev, nil
		default:
		}
		return nil, s.terminalErr()
	case <-s.done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, ErrStallTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AcknowledgeKeepalive sends a pong echoing the ping payload.
func (s *session) AcknowledgeKeepalive(payload []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.writeMu.Lock()
	err := s.conn.WriteControl(websocket.PongMessage, payload, s.writeDeadline())
	s.writeMu.Unlock()

	if err != nil {
		err = fmt.Errorf("%w: pong: %w", ErrTransport, err)
		s.mu.Lock()
		if s.ackErr == nil {
			s.ackErr = err
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		s.writeMu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()

		s.closeErr = s.conn.Close()
		s.logger.Debug("feed session closed")
	})
	return s.closeErr
}

// readLoop decodes frames until the connection fails or is closed.
func (s *session) readLoop() {
	defer close(s.ended)

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}

		var ev Event
		if msgType == websocket.TextMessage {
			ev = decodeFrame(data)
		} else {
			ev = Unrecognized{Raw: data}
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// writeDeadline returns the deadline for a control write; zero means none.
func (s *session) writeDeadline() time.Time {
	if s.cfg.WriteTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.cfg.WriteTimeout)
}

// pendingErr returns a keepalive failure recorded by AcknowledgeKeepalive.
func (s *session) pendingErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ackErr
}

// terminalErr classifies the error that ended readLoop.
func (s *session) terminalErr() error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()

	switch {
	case err == nil:
		return ErrStreamEnded
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %w", ErrStreamEnded, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}
