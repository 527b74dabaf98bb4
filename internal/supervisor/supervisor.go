package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rickgao/midprice-exporter/internal/feed"
	"github.com/rickgao/midprice-exporter/internal/metrics"
	"github.com/rickgao/midprice-exporter/internal/processor"
)

// State is the current phase of the reconnect loop.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateRecovering
	StateStopped
)

// String returns the state name used in logs and health output.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateRecovering:
		return "recovering"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// OpenFunc opens a new feed session.
type OpenFunc func(ctx context.Context) (feed.Session, error)

// Handler processes one event from the session that produced it.
type Handler interface {
	Process(ev feed.Event, ack processor.Acknowledger) error
}

// Config configures the Supervisor.
type Config struct {
	StallTimeout       time.Duration // Max silence before a session is considered dead
	ReconnectBaseDelay time.Duration // Wait after the first failure
	ReconnectMaxDelay  time.Duration // Cap for the doubling delay
}

// DefaultConfig returns a 60s stall timeout and a fixed one-second backoff.
func DefaultConfig() Config {
	return Config{
		StallTimeout:       60 * time.Second,
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  1 * time.Second,
	}
}

// Supervisor owns the feed session lifecycle.
type Supervisor struct {
	cfg     Config
	open    OpenFunc
	handler Handler
	metrics *metrics.Feed
	logger  *slog.Logger

	state    atomic.Int32
	sessions atomic.Int64

	// sleep waits d or until ctx is done; reports whether d elapsed.
	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates a Supervisor. m may be nil.
func New(cfg Config, open OpenFunc, handler Handler, m *metrics.Feed, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Supervisor{
		cfg:     cfg,
		open:    open,
		handler: handler,
		metrics: m,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// State returns the current loop state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Sessions returns how many sessions have been opened.
func (s *Supervisor) Sessions() int64 {
	return s.sessions.Load()
}

// Run loops until ctx is cancelled. It never returns on feed errors.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.setState(StateStopped)

	failures := 0

	for {
		s.setState(StateConnecting)

		sess, err := s.open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.metrics.SessionFailed(metrics.ReasonConnect)
			s.logger.Error("feed connect failed", "error", err)
			failures++
		} else {
			s.sessions.Add(1)
			s.metrics.SessionOpened()
			s.setState(StateStreaming)
			s.logger.Info("feed session started", "session", sess.ID())

			delivered, err := s.stream(ctx, sess)
			if ctx.Err() != nil {
				s.metrics.Disconnected()
				s.logger.Info("feed session stopped", "session", sess.ID(), "events", delivered)
				return nil
			}

			reason := failureReason(err)
			s.metrics.SessionFailed(reason)
			s.logger.Error("feed session ended",
				"session", sess.ID(),
				"reason", reason,
				"events", delivered,
				"error", err,
			)

			if delivered > 0 {
				failures = 0
			}
			failures++
		}

		s.setState(StateRecovering)
		delay := s.backoff(failures)
		s.logger.Info("reconnecting", "delay", delay, "attempt", failures)

		if !s.sleep(ctx, delay) {
			return nil
		}
	}
}

// stream feeds events to the handler until the session fails. The session
// is closed exactly once on every exit path.
func (s *Supervisor) stream(ctx context.Context, sess feed.Session) (delivered int, err error) {
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.logger.Debug("feed session close error", "session", sess.ID(), "error", cerr)
		}
	}()

	for {
		ev, err := sess.NextEvent(ctx, s.cfg.StallTimeout)
		if err != nil {
			return delivered, err
		}
		delivered++

		if err := s.handler.Process(ev, sess); err != nil {
			return delivered, &processingError{err: err}
		}
	}
}

// backoff returns the delay before the next connect attempt. The delay
// doubles per consecutive failure, capped at ReconnectMaxDelay.
func (s *Supervisor) backoff(failures int) time.Duration {
	wait := s.cfg.ReconnectBaseDelay
	maxWait := s.cfg.ReconnectMaxDelay
	if maxWait < wait {
		maxWait = wait
	}

	for i := 1; i < failures && wait < maxWait; i++ {
		wait *= 2
	}
	if wait > maxWait {
		wait = maxWait
	}
	return wait
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
}

// processingError marks failures raised while handling an event, as opposed
// to failures reading from the session.
type processingError struct {
	err error
}

func (e *processingError) Error() string { return e.err.Error() }
func (e *processingError) Unwrap() error { return e.err }

// failureReason maps a session error to a metrics reason label.
func failureReason(err error) string {
	var perr *processingError
	switch {
	case errors.Is(err, feed.ErrStallTimeout):
		return metrics.ReasonStall
	case errors.As(err, &perr):
		// Keepalive send failures end up here; they are transport failures.
		if errors.Is(err, feed.ErrTransport) {
			return metrics.ReasonTransport
		}
		return metrics.ReasonProcessing
	case errors.Is(err, feed.ErrStreamEnded):
		return metrics.ReasonEnded
	default:
		return metrics.ReasonTransport
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
