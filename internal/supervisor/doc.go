// Package supervisor runs the feed reconnect loop.
//
// The Supervisor cycles Connecting -> Streaming -> Recovering forever:
//   - Opens a feed session and streams events to the processor in order
//   - Treats a silent connection (no message within the stall timeout) as dead
//   - Closes the session exactly once, waits the backoff delay, reconnects
//   - Exits only when its context is cancelled
package supervisor
