// Package feed implements the upstream market-data session.
//
// A Session owns one WebSocket connection to the exchange stream:
//   - Subscribes to the configured topics on connect (default !bookTicker)
//   - Decodes frames into PriceUpdate, KeepaliveRequest or Unrecognized events
//   - Surfaces server pings so the caller owns the pong reply
//   - Reports stalls, normal closure and transport errors as distinct errors
package feed
