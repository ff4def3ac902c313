package models

// -----------------------------------------------------------------------------
// Wire payloads
// -----------------------------------------------------------------------------

const PushTypePrices = "prices"

// MPricePush is the pushed payload (SSE, websocket, gRPC watch, mirrors).
type MPricePush struct {
	Type      string                    `json:"type"`
	Data      map[string]MPriceSnapshot `json:"data"`
	Timestamp int64                     `json:"timestamp"`
}

// MPricePoll is the plain request/response payload.
type MPricePoll struct {
	Prices    map[string]MPriceSnapshot `json:"prices"`
	Timestamp int64                     `json:"timestamp"`
}

// MTokenPrice answers a single-token query.
type MTokenPrice struct {
	Price     MPriceSnapshot `json:"price"`
	Timestamp int64          `json:"timestamp"`
}

// -----------------------------------------------------------------------------

func NewPricePush(state MPriceState) MPricePush {
	return MPricePush{Type: PushTypePrices, Data: state.Prices, Timestamp: state.Timestamp}
}

func NewPricePoll(state MPriceState) MPricePoll {
	return MPricePoll{Prices: state.Prices, Timestamp: state.Timestamp}
}
