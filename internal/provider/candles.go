package provider

import (
	"math"
	"sort"
	"time"

	"velaris/internal/domain"
)

type volumePoint struct {
	ts  int64
	vol float64
}

// BuildCandles buckets a market chart into OHLCV candles of the given
// interval. Unknown intervals and empty charts yield nil.
func BuildCandles(coinID, interval string, chart *domain.MarketChart) []domain.Candle {
	if chart == nil || len(chart.Prices) == 0 {
		return nil
	}

	step := IntervalDuration(interval)
	if step == 0 {
		return nil
	}

	volPoints := make([]volumePoint, 0, len(chart.TotalVolumes))
	for _, v := range chart.TotalVolumes {
		if len(v) >= 2 {
			volPoints = append(volPoints, volumePoint{ts: int64(v[0]), vol: v[1]})
		}
	}

	// the chart may be shared with the cache, so sort a copy
	prices := make([][]float64, 0, len(chart.Prices))
	for _, pt := range chart.Prices {
		if len(pt) >= 2 {
			prices = append(prices, pt)
		}
	}
	sort.SliceStable(prices, func(i, j int) bool { return prices[i][0] < prices[j][0] })

	type bucket struct {
		open, high, low, close float64
	}
	buckets := make(map[int64]*bucket)
	keys := make([]int64, 0)

	for _, pt := range prices {
		price := pt[1]
		key := time.UnixMilli(int64(pt[0])).Truncate(step).UnixMilli()

		b, ok := buckets[key]
		if !ok {
			buckets[key] = &bucket{open: price, high: price, low: price, close: price}
			keys = append(keys, key)
			continue
		}
		b.high = math.Max(b.high, price)
		b.low = math.Min(b.low, price)
		b.close = price
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	candles := make([]domain.Candle, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		candles = append(candles, domain.Candle{
			CoinID:   coinID,
			Interval: interval,
			OpenTime: time.UnixMilli(k).UTC(),
			Open:     b.open,
			High:     b.high,
			Low:      b.low,
			Close:    b.close,
			Volume:   closestVolume(volPoints, k+step.Milliseconds()),
		})
	}
	return candles
}

// closestVolume picks the rolling 24h volume sample nearest to the bucket close.
func closestVolume(volumes []volumePoint, targetMs int64) float64 {
	if len(volumes) == 0 {
		return 0
	}
	closest := volumes[0]
	minDiff := int64(math.MaxInt64)
	for _, v := range volumes {
		diff := v.ts - targetMs
		if diff < 0 {
			diff = -diff
		}
		if diff < minDiff {
			minDiff = diff
			closest = v
		}
	}
	return closest.vol
}

func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return 0
	}
}
