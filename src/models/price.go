package models

// MPriceSnapshot is the latest known price record for one token.
// Values are replaced wholesale on update and never mutated in place.
type MPriceSnapshot struct {
	ID                       string  `json:"id"`
	Price                    float64 `json:"price"`
	PriceChange24h           float64 `json:"priceChange24h"`
	PriceChangePercentage24h float64 `json:"priceChangePercentage24h"`
	MarketCap                float64 `json:"marketCap"`
	Volume24h                float64 `json:"volume24h"`
	LastUpdated              int64   `json:"lastUpdated"` // epoch millis
}

// MPriceFields carries the parsed numeric fields of one upstream record.
type MPriceFields struct {
	Price                    float64
	PriceChange24h           float64
	PriceChangePercentage24h float64
	Volume24h                float64 // quote volume, already derived
}

// MPriceState is a point-in-time read of the whole table.
type MPriceState struct {
	Prices    map[string]MPriceSnapshot
	Timestamp int64 // epoch millis of the last visible change
}
