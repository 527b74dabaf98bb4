package feed

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const eventTypeBookTicker = "bookTicker"

// combinedEnvelope wraps payloads on /stream?streams=... endpoints.
type combinedEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// bookTickerWire is the book ticker payload.
//
//	{"e":"bookTicker","u":400900217,"E":1568014460893,"T":1568014460891,
//	 "s":"BNBUSDT","b":"25.35190000","B":"31.21000000","a":"25.36520000","A":"40.66000000"}
//
// encoding/json falls back to case-insensitive key matching, so every
// upper-case key needs its own field or it lands in the lower-case one.
type bookTickerWire struct {
	EventType    string           `json:"e"`
	EventTime    int64            `json:"E"`
	TransactTime int64            `json:"T"`
	UpdateID     int64            `json:"u"`
	Symbol       string           `json:"s"`
	BidPrice     *decimal.Decimal `json:"b"`
	BidQty       *decimal.Decimal `json:"B"`
	AskPrice     *decimal.Decimal `json:"a"`
	AskQty       *decimal.Decimal `json:"A"`
}

// decodeFrame turns a text frame into an Event. It never fails: anything
// that is not a well-formed book ticker becomes Unrecognized.
func decodeFrame(data []byte) Event {
	payload := data

	var env combinedEnvelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.Data) > 0 {
		payload = env.Data
	}

	var wire bookTickerWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Unrecognized{Raw: data}
	}
	if wire.EventType != eventTypeBookTicker || wire.Symbol == "" {
		return Unrecognized{Raw: data}
	}
	if wire.BidPrice == nil || wire.AskPrice == nil {
		return Unrecognized{Raw: data}
	}

	return PriceUpdate{
		Symbol:   wire.Symbol,
		BestBid:  *wire.BidPrice,
		BestAsk:  *wire.AskPrice,
		UpdateID: wire.UpdateID,
	}
}
