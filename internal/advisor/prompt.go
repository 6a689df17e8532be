package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"velaris/internal/domain"
)

const sentimentSystemPrompt = "You are a crypto market analyst. Provide objective sentiment analysis."

const assistantSystemPrompt = "You are a knowledgeable cryptocurrency education assistant. Explain crypto concepts clearly and simply. Keep explanations beginner-friendly but accurate."

// BuildSentimentPrompt asks for a quant style JSON verdict over numbered
// headlines.
func BuildSentimentPrompt(coinName string, headlines []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a professional Quant Analyst. Analyze these market signals for %s:\n\n", coinName)
	for i, h := range headlines {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, h)
	}
	sb.WriteString(`
Return ONLY a JSON object with these exact keys:
- "score": number from -1 (very bearish) to 1 (very bullish)
- "verdict": ONE WORD only (BULLISH, BEARISH, ACCUMULATE, NEUTRAL, or VOLATILE)
- "logic": ONE concise sentence explaining the primary reason
- "risk_level": "Low", "Medium", or "High"
- "primary_driver": What's driving this? (e.g., "Whale Activity", "Social Hype", "Real Volume", "Momentum Shift", "Market Correction")
- "confidence": number from 0 to 1
- "price_target": If current sentiment holds, suggest next resistance/support level as a percentage change (e.g., "+15%" or "-8%")

Be analytical, not descriptive. Think like a trader, not a reporter.`)
	return sb.String()
}

// BuildPortfolioPrompt embeds the market listing as JSON in the system prompt.
func BuildPortfolioPrompt(coins []domain.Coin) string {
	type row struct {
		Name      string  `json:"name"`
		Symbol    string  `json:"symbol"`
		Price     float64 `json:"price"`
		Change24h float64 `json:"change_24h"`
		MarketCap float64 `json:"market_cap"`
		Rank      int     `json:"rank"`
	}
	rows := make([]row, 0, len(coins))
	for _, c := range coins {
		rows = append(rows, row{
			Name:      c.Name,
			Symbol:    c.Symbol,
			Price:     c.CurrentPrice,
			Change24h: c.PriceChangePercentage24h,
			MarketCap: c.MarketCap,
			Rank:      c.MarketCapRank,
		})
	}
	data, _ := json.Marshal(rows)
	return fmt.Sprintf("You are a helpful crypto portfolio assistant. Answer questions about this cryptocurrency data: %s. Be conversational and helpful. Keep answers concise (2-3 sentences max).", data)
}

func BuildSummaryPrompt(points int) string {
	return fmt.Sprintf("Summarize the following crypto article into exactly %d concise bullet points.", points)
}

// BuildWhalePrompt asks the model to read whale signals for coinName.
func BuildWhalePrompt(signals []domain.WhaleSignal, coinName string) string {
	lines := make([]string, 0, len(signals))
	for _, s := range signals {
		lines = append(lines, fmt.Sprintf("- %s (%s)", s.Message, s.Indicator))
	}
	return fmt.Sprintf(`Analyze these whale/large trader signals for %s:

%s

Based on these patterns, what does this suggest about:
1. Potential price movement in the next 4-24 hours
2. Whether whales are accumulating or distributing
3. Risk level for retail traders

Keep response to 3-4 sentences. Be specific and cautious.`, coinName, strings.Join(lines, "\n"))
}

// FormatTopCoins renders one line per coin for the assistant's market context.
func FormatTopCoins(coins []domain.Coin) string {
	lines := make([]string, 0, len(coins))
	for _, c := range coins {
		lines = append(lines, fmt.Sprintf("%s: $%.2f, 24h: %.2f%%", c.Name, c.CurrentPrice, c.PriceChangePercentage24h))
	}
	return strings.Join(lines, "\n")
}

// EnhanceQuestion prefixes the user's question with live market context.
func EnhanceQuestion(top []domain.Coin, mentioned []domain.Coin, question string) string {
	var sb strings.Builder
	sb.WriteString("Current Top 10:\n")
	if len(top) == 0 {
		sb.WriteString("Market data temporarily unavailable.")
	} else {
		sb.WriteString(FormatTopCoins(top))
	}
	if len(mentioned) > 0 {
		sb.WriteString("\n\nMentioned:\n")
		sb.WriteString(FormatTopCoins(mentioned))
	}
	sb.WriteString("\n\n")
	sb.WriteString(question)
	return sb.String()
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}
