package whale

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velaris/internal/domain"
)

func stubScores(t *testing.T, scores map[int]float64) {
	t.Helper()
	orig := scoreSamples
	t.Cleanup(func() { scoreSamples = orig })
	scoreSamples = func(samples [][]float64) []float64 {
		out := make([]float64, len(samples))
		for i := range out {
			out[i] = 0.4
			if s, ok := scores[i]; ok {
				out[i] = s
			}
		}
		return out
	}
}

func marketList(n int) []domain.MarketSnapshot {
	out := make([]domain.MarketSnapshot, n)
	for i := range out {
		out[i] = domain.MarketSnapshot{
			CoinID:    fmt.Sprintf("coin-%d", i),
			Symbol:    fmt.Sprintf("C%d", i),
			Name:      fmt.Sprintf("Coin %d", i),
			MarketCap: 1000,
			Volume24h: 50,
		}
	}
	return out
}

func TestOutlierDetectorRanksAboveThreshold(t *testing.T) {
	stubScores(t, map[int]float64{3: 0.71, 7: 0.83, 9: 0.6})
	d := NewOutlierDetector(DefaultRules())

	out := d.Detect(marketList(20), testNow)
	require.Len(t, out, 2)
	assert.Equal(t, "coin-7", out[0].CoinID)
	assert.Equal(t, "coin-3", out[1].CoinID)
	assert.Equal(t, domain.SignalMarketOutlier, out[0].Signal.Type)
	assert.Equal(t, domain.SeverityInfo, out[0].Signal.Severity)
	assert.Equal(t, 0.83, out[0].Signal.Confidence)
	assert.Contains(t, out[0].Signal.Message, "anomaly score 0.83")
}

func TestOutlierDetectorCapsResults(t *testing.T) {
	stubScores(t, map[int]float64{0: 0.9, 1: 0.8, 2: 0.7})
	rules := DefaultRules()
	rules.OutlierMaxResults = 1

	out := NewOutlierDetector(rules).Detect(marketList(16), testNow)
	require.Len(t, out, 1)
	assert.Equal(t, "coin-0", out[0].CoinID)
}

func TestOutlierDetectorNeedsEnoughSamples(t *testing.T) {
	stubScores(t, map[int]float64{0: 0.9})
	assert.Nil(t, NewOutlierDetector(DefaultRules()).Detect(marketList(5), testNow))
}

func TestFeatures(t *testing.T) {
	s := domain.MarketSnapshot{Price: 50, ATH: 100, MarketCap: 200, Volume24h: 20, Change1h: -1, Change24h: -2, Change7d: 3}
	assert.Equal(t, []float64{10, 1, 2, 3, 50}, features(s))
}
