package whale

import (
	"fmt"
	"math"
	"strings"
	"time"

	"velaris/internal/domain"
)

// VolumeRatio returns 24h volume as a percentage of market cap.
func VolumeRatio(s domain.MarketSnapshot) float64 {
	if s.MarketCap <= 0 {
		return 0
	}
	return s.Volume24h / s.MarketCap * 100
}

// ATHProximity returns the current price as a percentage of the all time high.
func ATHProximity(s domain.MarketSnapshot) float64 {
	if s.ATH <= 0 {
		return 0
	}
	return s.Price / s.ATH * 100
}

// Detect applies the threshold rules to a snapshot. Signals come back in rule
// order and all carry now as their timestamp.
func Detect(s domain.MarketSnapshot, rules Rules, now time.Time) []domain.WhaleSignal {
	var signals []domain.WhaleSignal
	ratio := VolumeRatio(s)

	if ratio > rules.HighVolumeRatio {
		signals = append(signals, domain.WhaleSignal{
			Type:      domain.SignalHighVolume,
			Severity:  domain.SeverityWarning,
			Message:   fmt.Sprintf("Unusual high trading volume detected: %.1f%% of market cap traded in 24h", ratio),
			Indicator: "Potential whale accumulation or distribution",
			Timestamp: now,
		})
	}

	if math.Abs(s.Change1h) > rules.SpikeChange1h && ratio > rules.SpikeVolumeRatio {
		sig := domain.WhaleSignal{
			Type:      domain.SignalPriceSpike,
			Severity:  domain.SeverityDanger,
			Message:   fmt.Sprintf("Dump detected: %.2f%% in 1 hour with high volume", math.Abs(s.Change1h)),
			Indicator: "Potential whale selling",
			Timestamp: now,
		}
		if s.Change1h > 0 {
			sig.Severity = domain.SeveritySuccess
			sig.Message = fmt.Sprintf("Pump detected: %.2f%% in 1 hour with high volume", s.Change1h)
			sig.Indicator = "Potential whale buying"
		}
		signals = append(signals, sig)
	}

	if prox := ATHProximity(s); prox > rules.ATHProximity && ratio > rules.ATHVolumeRatio {
		signals = append(signals, domain.WhaleSignal{
			Type:      domain.SignalATHProximity,
			Severity:  domain.SeverityWarning,
			Message:   fmt.Sprintf("Price is %.1f%% of ATH with elevated volume", prox),
			Indicator: "Whales may be taking profits",
			Timestamp: now,
		})
	}

	if math.Abs(s.Change24h) > math.Abs(s.Change7d)/rules.VolatilityDivisor {
		signals = append(signals, domain.WhaleSignal{
			Type:      domain.SignalVolatility,
			Severity:  domain.SeverityInfo,
			Message:   fmt.Sprintf("24h movement (%.2f%%) significantly differs from 7d trend", s.Change24h),
			Indicator: "Sudden whale activity possible",
			Timestamp: now,
		})
	}

	return signals
}

// Confidence scores how much weight a signal deserves given the snapshot it
// came from. The result is in [0, 1].
func Confidence(sig domain.WhaleSignal, s domain.MarketSnapshot, rules Rules) float64 {
	c := rules.ConfidenceBase

	var volumeRatio float64
	if s.MarketCap > 0 {
		volumeRatio = s.Volume24h / s.MarketCap
	}
	switch {
	case volumeRatio > rules.ConfidenceHighVolume:
		c += 0.2
	case volumeRatio > rules.ConfidenceMidVolume:
		c += 0.1
	}

	move := math.Abs(s.Change24h)
	switch {
	case move > rules.ConfidenceBigMove:
		c += 0.2
	case move > rules.ConfidenceMidMove:
		c += 0.1
	}

	if sig.Severity == domain.SeverityDanger || sig.Severity == domain.SeveritySuccess {
		c += 0.1
	}

	// keep two decimals so 0.5+0.2+0.1 reads as 0.8
	c = math.Round(c*100) / 100
	return math.Min(c, 1)
}

// DetectWithConfidence runs Detect and fills in each signal's confidence.
func DetectWithConfidence(s domain.MarketSnapshot, rules Rules, now time.Time) []domain.WhaleSignal {
	signals := Detect(s, rules, now)
	for i := range signals {
		signals[i].Confidence = Confidence(signals[i], s, rules)
	}
	return signals
}

// Insights summarises a set of signals into a risk reading for coinName.
func Insights(signals []domain.WhaleSignal, coinName string) domain.WhaleInsight {
	if len(signals) == 0 {
		return domain.WhaleInsight{
			Summary:        fmt.Sprintf("No significant whale activity detected for %s. Market appears stable.", coinName),
			RiskLevel:      domain.RiskLow,
			Recommendation: "Normal market conditions",
			Signals:        []domain.WhaleSignal{},
		}
	}

	var hasWarning, hasHighVolume, hasPriceSpike bool
	for _, s := range signals {
		if s.Severity == domain.SeverityWarning || s.Severity == domain.SeverityDanger {
			hasWarning = true
		}
		switch s.Type {
		case domain.SignalHighVolume:
			hasHighVolume = true
		case domain.SignalPriceSpike:
			hasPriceSpike = true
		}
	}

	insight := domain.WhaleInsight{Signals: signals}
	switch {
	case hasWarning && hasHighVolume && hasPriceSpike:
		insight.Summary = fmt.Sprintf("⚠️ Multiple whale signals detected for %s. High volume with significant price movement suggests large players are active.", coinName)
		insight.RiskLevel = domain.RiskHigh
		insight.Recommendation = "Exercise caution. Wait for market stabilization before entering new positions."
	case hasHighVolume:
		insight.Summary = fmt.Sprintf("🐋 Whale activity detected for %s. Volume spike indicates institutional or large holder movement.", coinName)
		insight.RiskLevel = domain.RiskMedium
		insight.Recommendation = "Monitor closely for price direction confirmation."
	default:
		insight.Summary = fmt.Sprintf("📊 Some unusual patterns detected for %s. Market showing signs of volatility.", coinName)
		insight.RiskLevel = domain.RiskLow
		insight.Recommendation = "Stay alert but no immediate action needed."
	}
	return insight
}

const (
	bullishThreshold = 0.3
	bearishThreshold = -0.3
)

// CheckDivergence reports whether whale signals contradict the sentiment score.
// It returns nil when there is no sentiment or no signal to compare. A score
// of zero is a neutral sentiment, not a missing one.
func CheckDivergence(signals []domain.WhaleSignal, sentiment *float64) *domain.Divergence {
	if sentiment == nil || len(signals) == 0 {
		return nil
	}

	var exiting, accumulating bool
	for _, s := range signals {
		text := strings.ToLower(s.Message + " " + s.Indicator)
		if strings.Contains(text, "inflow") || strings.Contains(text, "sell") {
			exiting = true
		}
		if strings.Contains(text, "outflow") || strings.Contains(text, "accumulation") {
			accumulating = true
		}
	}

	score := *sentiment
	detected := (score > bullishThreshold && exiting) || (score < bearishThreshold && accumulating)
	if !detected {
		return &domain.Divergence{}
	}

	msg := "Retail is selling, but Whales are accumulating. Potential opportunity."
	if score > 0 {
		msg = "Retail is buying, but Whales are exiting. Exercise caution."
	}
	return &domain.Divergence{Detected: true, Message: msg}
}
