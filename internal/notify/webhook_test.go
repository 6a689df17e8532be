package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velaris/internal/domain"
)

func capture(t *testing.T, statuses ...int) (*httptest.Server, *[]map[string]string) {
	t.Helper()
	var received []map[string]string
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		var m map[string]string
		_ = json.Unmarshal(body, &m)
		received = append(received, m)
		status := http.StatusOK
		if int(n) <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func fastSender(url string) *WebhookSender {
	s := NewWebhookSender(url, "TestBot")
	s.retryInitial = time.Millisecond
	return s
}

var alert = domain.WhaleAlert{
	CoinID: "bitcoin", Symbol: "btc", Type: domain.SignalHighVolume, Severity: domain.SeverityWarning,
	Message: "Unusual trading volume detected", Indicator: "Large transactions occurring", Confidence: 0.65,
}

func TestNotifyDisabled(t *testing.T) {
	s := NewWebhookSender("", "")
	assert.False(t, s.Enabled())
	assert.NoError(t, s.NotifyWhaleAlert(context.Background(), alert))
}

func TestNotifySlackFormat(t *testing.T) {
	srv, received := capture(t)
	require.NoError(t, fastSender(srv.URL).NotifyWhaleAlert(context.Background(), alert))

	require.Len(t, *received, 1)
	assert.Equal(t, "TestBot", (*received)[0]["username"])
	assert.Equal(t, "🟠 BTC high_volume: Unusual trading volume detected (Large transactions occurring) confidence 65%", (*received)[0]["text"])
}

func TestNotifyDiscordFormat(t *testing.T) {
	srv, received := capture(t)
	require.NoError(t, fastSender(srv.URL+"/discord/webhook").Send(context.Background(), "hello"))

	require.Len(t, *received, 1)
	assert.Equal(t, "hello", (*received)[0]["content"])
	assert.Empty(t, (*received)[0]["text"])
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	srv, received := capture(t, http.StatusBadGateway, http.StatusOK)
	require.NoError(t, fastSender(srv.URL).Send(context.Background(), "x"))
	assert.Len(t, *received, 2)
}

func TestNotifyDoesNotRetryClientErrors(t *testing.T) {
	srv, received := capture(t, http.StatusNotFound)
	err := fastSender(srv.URL).Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Len(t, *received, 1)
}
