package advisor

import (
	"strings"
	"testing"

	"velaris/internal/domain"
	"velaris/internal/provider"
)

func TestBuildSentimentPrompt(t *testing.T) {
	prompt := BuildSentimentPrompt("Bitcoin", []string{"first", "second"})
	if !strings.HasPrefix(prompt, "You are a professional Quant Analyst. Analyze these market signals for Bitcoin:") {
		t.Fatalf("unexpected prompt head: %q", prompt[:80])
	}
	if !strings.Contains(prompt, "1. first\n2. second\n") {
		t.Fatal("expected numbered headlines")
	}
	for _, key := range []string{`"score"`, `"verdict"`, `"logic"`, `"risk_level"`, `"primary_driver"`, `"confidence"`, `"price_target"`} {
		if !strings.Contains(prompt, key) {
			t.Fatalf("expected key %s in prompt", key)
		}
	}
	if !strings.HasSuffix(prompt, "Think like a trader, not a reporter.") {
		t.Fatal("expected closing instruction")
	}
}

func TestBuildPortfolioPrompt(t *testing.T) {
	prompt := BuildPortfolioPrompt([]domain.Coin{{Name: "Bitcoin", Symbol: "btc", CurrentPrice: 50000, MarketCapRank: 1}})
	if !strings.Contains(prompt, `"name":"Bitcoin"`) || !strings.Contains(prompt, `"rank":1`) {
		t.Fatalf("expected coin JSON in prompt, got %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Keep answers concise (2-3 sentences max).") {
		t.Fatal("expected concision instruction")
	}
	if !strings.Contains(BuildPortfolioPrompt(nil), "data: []") {
		t.Fatal("expected empty JSON list for no coins")
	}
}

func TestBuildWhalePrompt(t *testing.T) {
	prompt := BuildWhalePrompt([]domain.WhaleSignal{
		{Message: "Large price movement with high volume", Indicator: "Potential whale accumulation/distribution"},
	}, "Ethereum")
	if !strings.Contains(prompt, "signals for Ethereum:\n\n- Large price movement with high volume (Potential whale accumulation/distribution)") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "next 4-24 hours") || !strings.Contains(prompt, "Risk level for retail traders") {
		t.Fatal("expected the three questions")
	}
}

func TestEnhanceQuestion(t *testing.T) {
	top := []domain.Coin{
		{Name: "Bitcoin", CurrentPrice: 50000, PriceChangePercentage24h: 1.234},
		{Name: "Ethereum", CurrentPrice: 3000.5, PriceChangePercentage24h: -2},
	}
	got := EnhanceQuestion(top, nil, "why?")
	want := "Current Top 10:\nBitcoin: $50000.00, 24h: 1.23%\nEthereum: $3000.50, 24h: -2.00%\n\nwhy?"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTrimCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		`  {"a":1}  `:             `{"a":1}`,
	}
	for in, want := range cases {
		if got := trimCodeFence(in); got != want {
			t.Fatalf("trimCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildHeadlines(t *testing.T) {
	detail := domain.CoinDetail{
		Name:                       "Solana",
		Symbol:                     "sol",
		Description:                domain.Description{En: "Fast chain"},
		MarketCapRank:              5,
		SentimentVotesUpPercentage: 82.4,
		MarketData: domain.MarketData{
			PriceChangePercentage24h: 7.5,
			PriceChangePercentage7d:  -12,
			MarketCap:                map[string]float64{"usd": 1000},
			TotalVolume:              map[string]float64{"usd": 150},
		},
	}
	news := []provider.Headline{{Title: "SOL hits new high"}, {Title: "Cardano update"}}

	got := BuildHeadlines(detail, news)
	want := []string{
		"Solana is a leading cryptocurrency in the market",
		"Solana surges 7.50% in 24 hours amid strong market momentum",
		"Solana faces weekly decline of 12.00%",
		"Solana maintains top 5 position with strong market dominance",
		"High trading activity with 15.0% of market cap traded in 24h",
		"Community sentiment bullish with 82.4% positive votes",
		"SOL hits new high",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d headlines, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("headline %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestBuildHeadlinesQuietCoin(t *testing.T) {
	got := BuildHeadlines(domain.CoinDetail{Name: "Dai", MarketCapRank: 20, MarketData: domain.MarketData{PriceChangePercentage24h: -0.01}}, nil)
	if len(got) != 1 || got[0] != "Dai shows stable performance with -0.01% change in 24h" {
		t.Fatalf("unexpected headlines: %v", got)
	}

	drop := BuildHeadlines(domain.CoinDetail{Name: "Luna", MarketData: domain.MarketData{PriceChangePercentage24h: -30, PriceChangePercentage7d: 25}}, nil)
	if drop[0] != "Luna drops 30.00% as market faces correction" || drop[1] != "Luna demonstrates strong weekly growth of 25.00%" {
		t.Fatalf("unexpected headlines: %v", drop)
	}
}

func TestBuildHeadlinesReportsMagnitudeOfLosses(t *testing.T) {
	got := BuildHeadlines(domain.CoinDetail{Name: "Luna", MarketData: domain.MarketData{PriceChangePercentage24h: -30, PriceChangePercentage7d: -12}}, nil)
	want := []string{
		"Luna drops 30.00% as market faces correction",
		"Luna faces weekly decline of 12.00%",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d headlines, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("headline %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
