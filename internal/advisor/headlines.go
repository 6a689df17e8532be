package advisor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"velaris/internal/domain"
	"velaris/internal/provider"
)

const maxNewsHeadlines = 3

// BuildHeadlines turns a coin's market data into short headline style
// statements and appends news headlines that mention the coin.
func BuildHeadlines(detail domain.CoinDetail, news []provider.Headline) []string {
	name := detail.Name
	md := detail.MarketData
	var out []string

	if strings.TrimSpace(detail.Description.En) != "" {
		out = append(out, fmt.Sprintf("%s is a leading cryptocurrency in the market", name))
	}

	change24h := md.PriceChangePercentage24h
	switch {
	case change24h > 5:
		out = append(out, fmt.Sprintf("%s surges %.2f%% in 24 hours amid strong market momentum", name, change24h))
	case change24h < -5:
		out = append(out, fmt.Sprintf("%s drops %.2f%% as market faces correction", name, math.Abs(change24h)))
	default:
		out = append(out, fmt.Sprintf("%s shows stable performance with %.2f%% change in 24h", name, change24h))
	}

	change7d := md.PriceChangePercentage7d
	if change7d > 10 {
		out = append(out, fmt.Sprintf("%s demonstrates strong weekly growth of %.2f%%", name, change7d))
	} else if change7d < -10 {
		out = append(out, fmt.Sprintf("%s faces weekly decline of %.2f%%", name, math.Abs(change7d)))
	}

	if detail.MarketCapRank > 0 && detail.MarketCapRank <= 10 {
		out = append(out, fmt.Sprintf("%s maintains top %d position with strong market dominance", name, detail.MarketCapRank))
	}

	if mcap := md.MarketCap["usd"]; mcap > 0 {
		if ratio := md.TotalVolume["usd"] / mcap * 100; ratio > 10 {
			out = append(out, fmt.Sprintf("High trading activity with %.1f%% of market cap traded in 24h", ratio))
		}
	}

	if detail.SentimentVotesUpPercentage > 70 {
		out = append(out, "Community sentiment bullish with "+strconv.FormatFloat(detail.SentimentVotesUpPercentage, 'f', -1, 64)+"% positive votes")
	}

	for _, h := range provider.MentioningCoin(news, detail.Name, detail.Symbol, maxNewsHeadlines) {
		out = append(out, h.Title)
	}
	return out
}

func (s *Service) newsFor(ctx context.Context) []provider.Headline {
	if s.news == nil {
		return nil
	}
	return s.news.Headlines(ctx)
}
