package domain

import "time"

type SignalType string

const (
	SignalHighVolume    SignalType = "high_volume"
	SignalPriceSpike    SignalType = "price_spike"
	SignalATHProximity  SignalType = "ath_proximity"
	SignalVolatility    SignalType = "volatility"
	SignalMarketOutlier SignalType = "market_outlier"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
	SeveritySuccess Severity = "success"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// WhaleSignal is a heuristic label for unusual volume or price movement.
type WhaleSignal struct {
	Type       SignalType `json:"type"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Indicator  string     `json:"indicator"`
	Confidence float64    `json:"confidence,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

type WhaleInsight struct {
	Summary        string        `json:"summary"`
	RiskLevel      RiskLevel     `json:"risk_level"`
	Recommendation string        `json:"recommendation"`
	Signals        []WhaleSignal `json:"signals"`
	Divergence     *Divergence   `json:"divergence,omitempty"`
}

// Divergence flags whale signals pointing against the prevailing sentiment.
type Divergence struct {
	Detected bool   `json:"detected"`
	Message  string `json:"message"`
}

// WhaleAlert is a whale signal recorded by the background scanner.
type WhaleAlert struct {
	ID         int64      `json:"id"`
	CoinID     string     `json:"coin_id"`
	Symbol     string     `json:"symbol"`
	Type       SignalType `json:"type"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Indicator  string     `json:"indicator"`
	Confidence float64    `json:"confidence"`
	DetectedAt time.Time  `json:"detected_at"`
}

type WhaleAlertFilter struct {
	CoinID string
	Limit  int
}

// MarketOutlier is a coin the isolation forest scored as anomalous against the market.
type MarketOutlier struct {
	CoinID string      `json:"coin_id"`
	Symbol string      `json:"symbol"`
	Name   string      `json:"name"`
	Score  float64     `json:"score"`
	Signal WhaleSignal `json:"signal"`
}
