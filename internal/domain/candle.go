package domain

import "time"

// Candle represents a single OHLCV candle bucketed from a market chart.
type Candle struct {
	CoinID   string    `json:"coin_id"`
	Interval string    `json:"interval"`
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// SupportedIntervals defines the candle intervals a chart can be bucketed into.
var SupportedIntervals = []string{"5m", "15m", "1h", "4h", "1d"}
