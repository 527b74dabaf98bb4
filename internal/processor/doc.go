// Package processor turns feed events into store writes.
//
// Price updates pass the symbol filter, are reduced to a mid-price and are
// written under the configured source name. Keepalive requests are answered
// on the originating session. Everything else is logged and discarded.
package processor
