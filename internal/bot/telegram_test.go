package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"velaris/internal/advisor"
	"velaris/internal/domain"
	"velaris/internal/whale"
)

type marketsStub struct {
	coins    []domain.Coin
	snaps    map[string]domain.MarketSnapshot
	trending []domain.TrendingCoin
	err      error
}

func (m marketsStub) Top(ctx context.Context, n int) ([]domain.Coin, error) {
	return m.coins, m.err
}

func (m marketsStub) Snapshot(ctx context.Context, id string) (domain.MarketSnapshot, error) {
	return m.snaps[id], m.err
}

func (m marketsStub) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	return m.trending, m.err
}

type advisorStub struct {
	result  domain.SentimentResult
	askErr  error
	session string
}

func (a *advisorStub) CoinSentiment(ctx context.Context, coinID string) (domain.SentimentResult, error) {
	return a.result, nil
}

func (a *advisorStub) Ask(ctx context.Context, sessionID, question string) (string, error) {
	a.session = sessionID
	return "answer", a.askErr
}

func newTestBot(m marketsStub, a *advisorStub) *Bot {
	return New(trace.NewNoopTracerProvider().Tracer("test"), m, a, whale.DefaultRules())
}

var btc = domain.MarketSnapshot{
	CoinID: "bitcoin", Symbol: "btc", Name: "Bitcoin",
	Price: 64000, MarketCap: 1.2e12, Volume24h: 3e10, Change1h: 0.2, Change24h: 1.5, Change7d: 4,
}

func TestStartSkipsWithoutToken(t *testing.T) {
	newTestBot(marketsStub{}, &advisorStub{}).Start(context.Background(), "")
}

func TestPriceReplyResolvesTicker(t *testing.T) {
	b := newTestBot(marketsStub{
		coins: []domain.Coin{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}},
		snaps: map[string]domain.MarketSnapshot{"bitcoin": btc},
	}, &advisorStub{})

	got := b.PriceReply(context.Background(), []string{"BTC"})
	for _, want := range []string{"Bitcoin (BTC)", "$64000.00", "+1.50%", "1.20T"} {
		if !strings.Contains(got, want) {
			t.Fatalf("reply %q missing %q", got, want)
		}
	}
}

func TestPriceReplyUsageAndUnknown(t *testing.T) {
	b := newTestBot(marketsStub{}, &advisorStub{})

	if got := b.PriceReply(context.Background(), nil); !strings.HasPrefix(got, "Usage") {
		t.Fatalf("expected usage, got %q", got)
	}
	if got := b.PriceReply(context.Background(), []string{"NOT A COIN"}); got != "Unknown coin: NOT A COIN" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestWhalesReplyListsSignals(t *testing.T) {
	hot := btc
	hot.Volume24h = hot.MarketCap * 0.2
	b := newTestBot(marketsStub{snaps: map[string]domain.MarketSnapshot{"bitcoin": hot}}, &advisorStub{})

	got := b.WhalesReply(context.Background(), []string{"bitcoin"})
	if !strings.Contains(got, "Unusual high trading volume") {
		t.Fatalf("expected high volume signal, got %q", got)
	}
}

func TestSentimentReplyDisabled(t *testing.T) {
	a := &advisorStub{result: domain.SentimentResult{Error: "OpenAI API key not configured", Summary: "AI features disabled."}}
	b := newTestBot(marketsStub{}, a)

	if got := b.SentimentReply(context.Background(), []string{"bitcoin"}); got != "AI features disabled." {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestAskReply(t *testing.T) {
	a := &advisorStub{}
	b := newTestBot(marketsStub{}, a)

	if got := b.AskReply(context.Background(), "telegram:7", "what is defi?"); got != "answer" || a.session != "telegram:7" {
		t.Fatalf("unexpected reply %q for session %q", got, a.session)
	}
	a.askErr = advisor.ErrAIDisabled
	if got := b.AskReply(context.Background(), "telegram:7", "again"); !strings.Contains(got, "disabled") {
		t.Fatalf("unexpected reply: %q", got)
	}
	a.askErr = errors.New("boom")
	if got := b.AskReply(context.Background(), "telegram:7", "again"); !strings.Contains(got, "unavailable") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestTrendingReply(t *testing.T) {
	b := newTestBot(marketsStub{trending: []domain.TrendingCoin{{Name: "Pepe", Symbol: "pepe", MarketCapRank: 30}}}, &advisorStub{})

	if got := b.TrendingReply(context.Background()); !strings.Contains(got, "1. Pepe (PEPE) #30") {
		t.Fatalf("unexpected reply: %q", got)
	}
}
