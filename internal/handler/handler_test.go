package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"velaris/internal/advisor"
	"velaris/internal/domain"
	"velaris/internal/provider"
	"velaris/internal/service"
	"velaris/internal/whale"
)

type marketStub struct {
	coins    []domain.Coin
	snapshot domain.MarketSnapshot
	snaps    []domain.MarketSnapshot
	err      error

	lastTerm  string
	lastLimit int
	lastDays  int
}

func (m *marketStub) GlobalStats(ctx context.Context) (*domain.GlobalStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.GlobalStats{ActiveCryptocurrencies: 42}, nil
}

func (m *marketStub) Markets(ctx context.Context, currency string, limit int) ([]domain.Coin, error) {
	return m.coins, m.err
}

func (m *marketStub) SearchMarkets(ctx context.Context, currency string, limit int, term string) ([]domain.Coin, error) {
	m.lastTerm, m.lastLimit = term, limit
	return m.coins, m.err
}

func (m *marketStub) Coin(ctx context.Context, id string) (*domain.CoinDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CoinDetail{ID: id, Name: "Bitcoin"}, nil
}

func (m *marketStub) History(ctx context.Context, id, currency string, days int, interval string) (*service.History, error) {
	m.lastDays = days
	if m.err != nil {
		return nil, m.err
	}
	return &service.History{CoinID: id, Days: days}, nil
}

func (m *marketStub) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	return []domain.TrendingCoin{{ID: "pepe", Name: "Pepe"}}, m.err
}

func (m *marketStub) Snapshot(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	return m.snapshot, m.err
}

func (m *marketStub) Snapshots(ctx context.Context, limit int) ([]domain.MarketSnapshot, error) {
	return m.snaps, m.err
}

type advisorStub struct {
	enabled   bool
	err       error
	sentiment domain.SentimentResult

	askSession string
	askCalls   int
	points     int
}

func (a *advisorStub) Enabled() bool { return a.enabled }

func (a *advisorStub) CoinSentiment(ctx context.Context, coinID string) (domain.SentimentResult, error) {
	return a.sentiment, a.err
}

func (a *advisorStub) ExplainWhales(ctx context.Context, signals []domain.WhaleSignal, coinName string) (string, error) {
	if !a.enabled {
		return "", advisor.ErrAIDisabled
	}
	return fmt.Sprintf("%d signals for %s", len(signals), coinName), nil
}

func (a *advisorStub) Ask(ctx context.Context, sessionID, question string) (string, error) {
	a.askCalls++
	a.askSession = sessionID
	if !a.enabled {
		return "", advisor.ErrAIDisabled
	}
	if a.err != nil {
		return "", a.err
	}
	return "answer: " + question, nil
}

func (a *advisorStub) QueryPortfolio(ctx context.Context, question string, coins []domain.Coin) string {
	return "portfolio: " + question
}

func (a *advisorStub) Summarize(ctx context.Context, text string, points int) []string {
	a.points = points
	return []string{"- one", "- two"}
}

type alertsStub struct {
	alerts []domain.WhaleAlert
	filter domain.WhaleAlertFilter
}

func (s *alertsStub) List(ctx context.Context, filter domain.WhaleAlertFilter) ([]domain.WhaleAlert, error) {
	s.filter = filter
	return s.alerts, nil
}

func newTestRouter(t *testing.T, m *marketStub, a *advisorStub, al *alertsStub, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := New(trace.NewNoopTracerProvider().Tracer("handler-test"), m, a, al, whale.DefaultRules(), opts)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("parse error: %v (body %s)", err, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &marketStub{}, &advisorStub{}, &alertsStub{}, Options{})

	w := do(r, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["status"] != "healthy" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestListCoinsPassesSearchAndLimit(t *testing.T) {
	m := &marketStub{coins: []domain.Coin{{ID: "bitcoin"}, {ID: "bitcoin-cash"}}}
	r := newTestRouter(t, m, &advisorStub{}, &alertsStub{}, Options{})

	w := do(r, http.MethodGet, "/api/coins?limit=20&search=bit", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Coins []domain.Coin `json:"coins"`
		Count int           `json:"count"`
	}
	decode(t, w, &body)
	if body.Count != 2 || m.lastTerm != "bit" || m.lastLimit != 20 {
		t.Fatalf("unexpected result: %+v term=%q limit=%d", body, m.lastTerm, m.lastLimit)
	}
}

func TestListCoinsRejectsBadQuery(t *testing.T) {
	r := newTestRouter(t, &marketStub{}, &advisorStub{}, &alertsStub{}, Options{})

	for _, path := range []string{
		"/api/coins?limit=0",
		"/api/coins?limit=-3",
		"/api/coins?limit=251",
		"/api/coins?currency=doge",
		"/api/whales/alerts?limit=0",
	} {
		if w := do(r, http.MethodGet, path, nil, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestListCoinsOmittedLimitUsesDefault(t *testing.T) {
	m := &marketStub{lastLimit: -1}
	r := newTestRouter(t, m, &advisorStub{}, &alertsStub{}, Options{})

	if w := do(r, http.MethodGet, "/api/coins", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if m.lastLimit != 0 {
		t.Fatalf("an omitted limit should reach the service as 0, got %d", m.lastLimit)
	}
}

func TestGetCoinErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("wrap: %w", provider.ErrNotFound), want: http.StatusNotFound},
		{err: service.ErrInvalidCoinID, want: http.StatusBadRequest},
		{err: errors.New("connection reset"), want: http.StatusBadGateway},
	}
	for _, tc := range tests {
		r := newTestRouter(t, &marketStub{err: tc.err}, &advisorStub{}, &alertsStub{}, Options{})
		if w := do(r, http.MethodGet, "/api/coins/bitcoin", nil, nil); w.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}

func TestGetHistoryValidatesDays(t *testing.T) {
	m := &marketStub{}
	r := newTestRouter(t, m, &advisorStub{}, &alertsStub{}, Options{})

	if w := do(r, http.MethodGet, "/api/coins/bitcoin/history?days=400", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for days=400, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/coins/bitcoin/history?days=30", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if m.lastDays != 30 {
		t.Fatalf("expected days 30, got %d", m.lastDays)
	}
}

func TestGetWhalesReturnsSignalsAndInsight(t *testing.T) {
	m := &marketStub{snapshot: domain.MarketSnapshot{
		CoinID: "bitcoin", Symbol: "btc", Name: "Bitcoin",
		Price: 100, MarketCap: 1000, Volume24h: 200, Change24h: 1, Change7d: 9, ATH: 500,
	}}
	r := newTestRouter(t, m, &advisorStub{}, &alertsStub{}, Options{})

	w := do(r, http.MethodGet, "/api/coins/bitcoin/whales", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body whaleResponse
	decode(t, w, &body)
	if len(body.Insight.Signals) != 1 || body.Insight.Signals[0].Type != domain.SignalHighVolume {
		t.Fatalf("expected one high volume signal, got %+v", body.Insight.Signals)
	}
	if body.Insight.Signals[0].Confidence <= 0 {
		t.Fatalf("expected confidence to be filled in, got %+v", body.Insight.Signals[0])
	}
	if body.Insight.Divergence != nil {
		t.Fatalf("no divergence expected without sentiment, got %+v", body.Insight.Divergence)
	}
}

func TestGetWhalesRejectsBadSentiment(t *testing.T) {
	r := newTestRouter(t, &marketStub{}, &advisorStub{}, &alertsStub{}, Options{})

	for _, v := range []string{"abc", "1.5", "-2"} {
		if w := do(r, http.MethodGet, "/api/coins/bitcoin/whales?sentiment="+v, nil, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("sentiment=%s: expected 400, got %d", v, w.Code)
		}
	}
}

func TestAnalyzeWhalesDisabled(t *testing.T) {
	r := newTestRouter(t, &marketStub{}, &advisorStub{}, &alertsStub{}, Options{})

	if w := do(r, http.MethodPost, "/api/coins/bitcoin/whales/analysis", nil, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestListWhaleAlertsPassesFilter(t *testing.T) {
	al := &alertsStub{alerts: []domain.WhaleAlert{{ID: 1, CoinID: "bitcoin", DetectedAt: time.Now()}}}
	r := newTestRouter(t, &marketStub{}, &advisorStub{}, al, Options{})

	w := do(r, http.MethodGet, "/api/whales/alerts?coin=bitcoin&limit=5", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if al.filter.CoinID != "bitcoin" || al.filter.Limit != 5 {
		t.Fatalf("unexpected filter: %+v", al.filter)
	}
	if w := do(r, http.MethodGet, "/api/whales/alerts?coin=Not%20Valid", nil, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid coin, got %d", w.Code)
	}
}

func TestAIRoutesRequireAPIKey(t *testing.T) {
	r := newTestRouter(t, &marketStub{}, &advisorStub{enabled: true}, &alertsStub{}, Options{APIKey: "secret"})

	if w := do(r, http.MethodGet, "/api/ai/status", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/ai/status", nil, map[string]string{"X-API-Key": "wrong"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	w := do(r, http.MethodGet, "/api/ai/status", nil, map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]bool
	decode(t, w, &body)
	if !body["enabled"] {
		t.Fatalf("expected enabled, got %s", w.Body.String())
	}
}

func TestChatAssignsSession(t *testing.T) {
	a := &advisorStub{enabled: true}
	r := newTestRouter(t, &marketStub{}, a, &alertsStub{}, Options{})

	w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"message": "what is staking?"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	decode(t, w, &body)
	if body["session_id"] == "" || body["session_id"] != a.askSession {
		t.Fatalf("expected a generated session id, got %+v", body)
	}
	if body["reply"] != "answer: what is staking?" {
		t.Fatalf("unexpected reply: %q", body["reply"])
	}
}

func TestChatValidationAndDisabled(t *testing.T) {
	a := &advisorStub{}
	r := newTestRouter(t, &marketStub{}, a, &alertsStub{}, Options{})

	if w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"session_id": "s1"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without message, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"message": "   "}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank message, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"message": "hi"}, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when disabled, got %d", w.Code)
	}
}

func TestChatRateLimitedPerSession(t *testing.T) {
	a := &advisorStub{enabled: true}
	r := newTestRouter(t, &marketStub{}, a, &alertsStub{}, Options{ChatRatePerMin: 2})

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"session_id": "s1", "message": "hi"}, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"session_id": "s1", "message": "hi"}, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"session_id": "s2", "message": "hi"}, nil); w.Code != http.StatusOK {
		t.Fatalf("other sessions must not be limited, got %d", w.Code)
	}
	if a.askCalls != 3 {
		t.Fatalf("expected 3 advisor calls, got %d", a.askCalls)
	}
}

func TestQueryAndSummarize(t *testing.T) {
	a := &advisorStub{enabled: true}
	r := newTestRouter(t, &marketStub{}, a, &alertsStub{}, Options{})

	w := do(r, http.MethodPost, "/api/ai/query", gin.H{"question": "best performer?"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var answer map[string]string
	decode(t, w, &answer)
	if answer["answer"] != "portfolio: best performer?" {
		t.Fatalf("unexpected answer: %+v", answer)
	}

	w = do(r, http.MethodPost, "/api/ai/summarize", gin.H{"text": "long article", "points": 2}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var bullets map[string][]string
	decode(t, w, &bullets)
	if len(bullets["bullets"]) != 2 || a.points != 2 {
		t.Fatalf("unexpected bullets: %+v points=%d", bullets, a.points)
	}

	if w := do(r, http.MethodPost, "/api/ai/summarize", gin.H{"text": "x", "points": 20}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for points=20, got %d", w.Code)
	}
}

func TestGetSentimentReturnsCannedResultWhenDisabled(t *testing.T) {
	a := &advisorStub{sentiment: domain.SentimentResult{Error: "OpenAI API key not configured", Summary: "AI features disabled."}}
	r := newTestRouter(t, &marketStub{}, a, &alertsStub{}, Options{})

	w := do(r, http.MethodGet, "/api/coins/bitcoin/sentiment", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body domain.SentimentResult
	decode(t, w, &body)
	if body.Error == "" || body.Available() {
		t.Fatalf("expected unavailable result, got %+v", body)
	}
}

func TestChatModelFailureIsReportedAsAIError(t *testing.T) {
	adv := &advisorStub{enabled: true, err: fmt.Errorf("%w: %w", advisor.ErrUnavailable, errors.New("connection reset"))}
	r := newTestRouter(t, &marketStub{}, adv, &alertsStub{}, Options{})

	w := do(r, http.MethodPost, "/api/ai/chat", gin.H{"message": "what is staking?"}, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["error"] != "AI feature unavailable" {
		t.Fatalf("unexpected message: %q", body["error"])
	}
}

func TestSessionLimiterNilAllows(t *testing.T) {
	var l *SessionLimiter
	if !l.Allow("any") || NewSessionLimiter(0) != nil {
		t.Fatal("a zero rate must disable limiting")
	}
}

func TestValidationMessage(t *testing.T) {
	registerValidators()
	r := newTestRouter(t, &marketStub{}, &advisorStub{enabled: true}, &alertsStub{}, Options{})

	w := do(r, http.MethodPost, "/api/ai/summarize", gin.H{"points": 2}, nil)
	var body map[string]string
	decode(t, w, &body)
	if body["error"] != "text is required" {
		t.Fatalf("unexpected message: %q", body["error"])
	}

	w = do(r, http.MethodGet, "/api/whales/alerts?coin=BAD_ID", nil, nil)
	decode(t, w, &body)
	if body["error"] != "coin must be a CoinGecko coin id" {
		t.Fatalf("unexpected message: %q", body["error"])
	}
}
