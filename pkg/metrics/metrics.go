package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velaris_upstream_requests_total",
			Help: "Requests made to external market and news APIs",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "velaris_upstream_request_duration_seconds",
			Help:    "Latency of external API requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velaris_cache_lookups_total",
			Help: "Market cache lookups by result",
		},
		[]string{"resource", "result"},
	)

	WhaleSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velaris_whale_signals_total",
			Help: "Whale signals raised by the background scanner",
		},
		[]string{"type", "severity"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velaris_llm_requests_total",
			Help: "Chat completion calls by feature and outcome",
		},
		[]string{"feature", "outcome"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velaris_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "velaris_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "class"},
	)

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "velaris_ws_clients",
		Help: "Connected websocket clients",
	})
)

// StatusClass folds an HTTP status code into 2xx, 4xx and so on.
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Outcome labels an error as ok or error.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
