package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"velaris/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestCoinGecko(t *testing.T, fn roundTripFunc) *CoinGeckoProvider {
	t.Helper()
	p := NewCoinGeckoProvider(trace.NewNoopTracerProvider().Tracer("test"), "")
	p.baseURL = "http://example"
	p.client = &http.Client{Transport: fn}
	p.limiter = NewRateLimiter(100, time.Millisecond)
	p.retryInitial = time.Millisecond
	return p
}

func TestBuildCandles(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	chart := &domain.MarketChart{
		Prices: [][]float64{
			{float64(base.Add(6 * time.Minute).UnixMilli()), 8},
			{float64(base.UnixMilli()), 10},
			{float64(base.Add(2 * time.Minute).UnixMilli()), 12},
			{float64(base.Add(8 * time.Minute).UnixMilli()), 9},
		},
		TotalVolumes: [][]float64{
			{float64(base.Add(5 * time.Minute).UnixMilli()), 100},
			{float64(base.Add(10 * time.Minute).UnixMilli()), 200},
		},
	}

	candles := BuildCandles("bitcoin", "5m", chart)
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}

	first := candles[0]
	if first.Open != 10 || first.High != 12 || first.Low != 10 || first.Close != 12 {
		t.Fatalf("unexpected first candle: %+v", first)
	}
	if first.Volume != 100 || first.CoinID != "bitcoin" {
		t.Fatalf("unexpected first candle metadata: %+v", first)
	}

	second := candles[1]
	if !second.OpenTime.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("unexpected open time: %v", second.OpenTime)
	}
	if second.Open != 8 || second.Close != 9 || second.Volume != 200 {
		t.Fatalf("unexpected second candle: %+v", second)
	}

	if chart.Prices[0][1] != 8 {
		t.Fatal("BuildCandles must not reorder the source chart")
	}
}

func TestBuildCandlesRejectsUnknownInterval(t *testing.T) {
	chart := &domain.MarketChart{Prices: [][]float64{{1, 1}}}
	if got := BuildCandles("bitcoin", "3m", chart); got != nil {
		t.Fatalf("expected nil candles, got %+v", got)
	}
	if got := BuildCandles("bitcoin", "1h", nil); got != nil {
		t.Fatalf("expected nil candles for nil chart, got %+v", got)
	}
}

func TestClosestVolume(t *testing.T) {
	volumes := []volumePoint{
		{ts: 1000, vol: 1},
		{ts: 1500, vol: 5},
		{ts: 2000, vol: 10},
	}
	if vol := closestVolume(volumes, 1600); vol != 5 {
		t.Fatalf("expected volume 5, got %f", vol)
	}
	if vol := closestVolume(nil, 1600); vol != 0 {
		t.Fatalf("expected zero volume, got %f", vol)
	}
}

func TestIntervalDuration(t *testing.T) {
	tests := map[string]time.Duration{
		"5m":  5 * time.Minute,
		"15m": 15 * time.Minute,
		"1h":  time.Hour,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
		"bad": 0,
	}
	for interval, expected := range tests {
		if got := IntervalDuration(interval); got != expected {
			t.Fatalf("%s expected %v, got %v", interval, expected, got)
		}
	}
}

func TestCoinGeckoFetchMarkets(t *testing.T) {
	t.Parallel()

	p := newTestCoinGecko(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/coins/markets" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		q := req.URL.Query()
		if q.Get("vs_currency") != "eur" || q.Get("per_page") != "50" || q.Get("order") != "market_cap_desc" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		if q.Get("price_change_percentage") != "1h,24h,7d" || q.Get("sparkline") != "true" {
			t.Fatalf("expected change windows and sparkline, got %s", req.URL.RawQuery)
		}
		if req.Header.Get("x-cg-demo-api-key") != "" {
			t.Fatal("no api key header expected without a key")
		}
		return jsonResponse(http.StatusOK, `[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":100,"market_cap":1000,"total_volume":50,"price_change_percentage_1h_in_currency":1.5}]`), nil
	})

	coins, err := p.FetchMarkets(context.Background(), "eur", 50, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coins) != 1 || coins[0].ID != "bitcoin" || coins[0].PriceChange1hInCurrency != 1.5 {
		t.Fatalf("unexpected coins: %+v", coins)
	}
}

func TestCoinGeckoFetchCoinSendsAPIKey(t *testing.T) {
	t.Parallel()

	p := newTestCoinGecko(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/coins/ethereum" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.Header.Get("x-cg-demo-api-key") != "demo-key" {
			t.Fatalf("expected api key header")
		}
		if req.URL.Query().Get("tickers") != "false" || req.URL.Query().Get("community_data") != "true" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, `{"id":"ethereum","symbol":"eth","name":"Ethereum","market_data":{"current_price":{"usd":3000},"price_change_percentage_1h_in_currency":{"usd":-0.4}}}`), nil
	})
	p.apiKey = "demo-key"

	detail, err := p.FetchCoin(context.Background(), "ethereum")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.MarketData.CurrentPrice["usd"] != 3000 || detail.MarketData.PriceChangePercentage1hInCur["usd"] != -0.4 {
		t.Fatalf("unexpected detail: %+v", detail.MarketData)
	}
}

func TestCoinGeckoFetchCoinNotFound(t *testing.T) {
	t.Parallel()

	var calls int32
	p := newTestCoinGecko(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusNotFound, `{"error":"coin not found"}`), nil
	})

	_, err := p.FetchCoin(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("404 must not be retried, got %d calls", calls)
	}
}

func TestCoinGeckoRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var calls int32
	p := newTestCoinGecko(t, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return jsonResponse(http.StatusTooManyRequests, `throttled`), nil
		}
		return jsonResponse(http.StatusOK, `{"data":{"active_cryptocurrencies":12000,"total_market_cap":{"usd":2.5e12},"market_cap_change_percentage_24h_usd":1.2}}`), nil
	})

	stats, err := p.FetchGlobal(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	if stats.ActiveCryptocurrencies != 12000 || stats.TotalMarketCap["usd"] != 2.5e12 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCoinGeckoGivesUpAfterMaxTries(t *testing.T) {
	t.Parallel()

	var calls int32
	p := newTestCoinGecko(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusServiceUnavailable, `maintenance`), nil
	})

	_, err := p.FetchTrending(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected APIError 503, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestCoinGeckoFetchTrendingAndChart(t *testing.T) {
	t.Parallel()

	p := newTestCoinGecko(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == "/search/trending":
			return jsonResponse(http.StatusOK, `{"coins":[{"item":{"id":"pepe","name":"Pepe","symbol":"PEPE","market_cap_rank":30,"score":0}}]}`), nil
		case strings.HasSuffix(req.URL.Path, "/market_chart"):
			if req.URL.Query().Get("days") != "7" {
				t.Fatalf("unexpected days: %s", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, `{"prices":[[1700000000000,10],[1700000300000,11]],"total_volumes":[[1700000300000,99]]}`), nil
		}
		t.Fatalf("unexpected path: %s", req.URL.Path)
		return nil, nil
	})

	trending, err := p.FetchTrending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trending) != 1 || trending[0].ID != "pepe" {
		t.Fatalf("unexpected trending: %+v", trending)
	}

	chart, err := p.FetchMarketChart(context.Background(), "bitcoin", "usd", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chart.Prices) != 2 || len(chart.TotalVolumes) != 1 {
		t.Fatalf("unexpected chart: %+v", chart)
	}
}
