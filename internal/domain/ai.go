package domain

import "time"

// SentimentResult is the language model's verdict on a coin. Error and Summary
// are set instead of the analysis fields when the feature is unavailable.
type SentimentResult struct {
	Score         float64 `json:"sentiment"`
	Verdict       string  `json:"verdict,omitempty"`
	Logic         string  `json:"logic,omitempty"`
	RiskLevel     string  `json:"risk_level,omitempty"`
	PrimaryDriver string  `json:"primary_driver,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	PriceTarget   string  `json:"price_target,omitempty"`
	Error         string  `json:"error,omitempty"`
	Summary       string  `json:"summary,omitempty"`
}

func (r SentimentResult) Available() bool {
	return r.Error == ""
}

type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
