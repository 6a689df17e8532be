package whale

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/narumiruna/go-iforest/pkg/iforest"

	"velaris/internal/domain"
)

// minOutlierSamples is the smallest market list an isolation forest is fitted on.
const minOutlierSamples = 16

// scoreSamples fits a fresh forest on samples and returns one anomaly score
// per row. Scores near 1 are anomalous, near 0.5 are ordinary.
var scoreSamples = func(samples [][]float64) []float64 {
	forest := iforest.New()
	forest.Fit(samples)
	return forest.Score(samples)
}

// OutlierDetector flags coins whose volume and price profile stands out from
// the rest of the market list.
type OutlierDetector struct {
	threshold  float64
	maxResults int
}

func NewOutlierDetector(rules Rules) *OutlierDetector {
	return &OutlierDetector{
		threshold:  rules.OutlierThreshold,
		maxResults: rules.OutlierMaxResults,
	}
}

func features(s domain.MarketSnapshot) []float64 {
	return []float64{
		VolumeRatio(s),
		math.Abs(s.Change1h),
		math.Abs(s.Change24h),
		math.Abs(s.Change7d),
		ATHProximity(s),
	}
}

// Detect scores every snapshot and returns the highest scoring outliers above
// the threshold, most anomalous first.
func (d *OutlierDetector) Detect(snapshots []domain.MarketSnapshot, now time.Time) []domain.MarketOutlier {
	if len(snapshots) < minOutlierSamples {
		return nil
	}

	samples := make([][]float64, len(snapshots))
	for i, s := range snapshots {
		samples[i] = features(s)
	}
	scores := scoreSamples(samples)
	if len(scores) != len(snapshots) {
		return nil
	}

	var out []domain.MarketOutlier
	for i, score := range scores {
		if score <= d.threshold || math.IsNaN(score) {
			continue
		}
		s := snapshots[i]
		out = append(out, domain.MarketOutlier{
			CoinID: s.CoinID,
			Symbol: s.Symbol,
			Name:   s.Name,
			Score:  score,
			Signal: domain.WhaleSignal{
				Type:       domain.SignalMarketOutlier,
				Severity:   domain.SeverityInfo,
				Message:    fmt.Sprintf("%s trades unlike the rest of the market (anomaly score %.2f)", s.Name, score),
				Indicator:  "Volume and price profile suggests concentrated large holder activity",
				Confidence: math.Min(math.Round(score*100)/100, 1),
				Timestamp:  now,
			},
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if d.maxResults > 0 && len(out) > d.maxResults {
		out = out[:d.maxResults]
	}
	return out
}
