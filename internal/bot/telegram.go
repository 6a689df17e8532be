package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
	tele "gopkg.in/telebot.v3"

	"velaris/internal/advisor"
	"velaris/internal/domain"
	"velaris/internal/provider"
	"velaris/internal/whale"
)

const (
	replyTimeout = 30 * time.Second
	listingSize  = 250
)

// Markets is the market data the bot answers from.
type Markets interface {
	Top(ctx context.Context, n int) ([]domain.Coin, error)
	Snapshot(ctx context.Context, id string) (domain.MarketSnapshot, error)
	Trending(ctx context.Context) ([]domain.TrendingCoin, error)
}

type Advisor interface {
	CoinSentiment(ctx context.Context, coinID string) (domain.SentimentResult, error)
	Ask(ctx context.Context, sessionID, question string) (string, error)
}

// Bot turns chat commands into market lookups. Replies are built by plain
// methods so they can be exercised without Telegram.
type Bot struct {
	tracer  trace.Tracer
	markets Markets
	advisor Advisor
	rules   whale.Rules
}

func New(tracer trace.Tracer, markets Markets, adv Advisor, rules whale.Rules) *Bot {
	return &Bot{tracer: tracer, markets: markets, advisor: adv, rules: rules}
}

// Start connects to Telegram and polls until ctx is done. An empty token
// skips startup.
func (b *Bot) Start(ctx context.Context, token string) {
	if strings.TrimSpace(token) == "" {
		log.Info().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create Telegram bot")
		return
	}
	b.register(tb)

	go func() {
		<-ctx.Done()
		tb.Stop()
	}()
	log.Info().Str("username", tb.Me.Username).Msg("telegram bot started")
	go tb.Start()
}

func (b *Bot) register(tb *tele.Bot) {
	tb.Handle("/start", func(c tele.Context) error { return c.Send(helpText) })
	tb.Handle("/help", func(c tele.Context) error { return c.Send(helpText) })
	tb.Handle("/ping", func(c tele.Context) error { return c.Send("pong") })

	tb.Handle("/price", b.reply("price", func(ctx context.Context, c tele.Context) string {
		return b.PriceReply(ctx, c.Args())
	}))
	tb.Handle("/whales", b.reply("whales", func(ctx context.Context, c tele.Context) string {
		return b.WhalesReply(ctx, c.Args())
	}))
	tb.Handle("/sentiment", b.reply("sentiment", func(ctx context.Context, c tele.Context) string {
		return b.SentimentReply(ctx, c.Args())
	}))
	tb.Handle("/trending", b.reply("trending", func(ctx context.Context, c tele.Context) string {
		return b.TrendingReply(ctx)
	}))
	tb.Handle("/ask", b.reply("ask", func(ctx context.Context, c tele.Context) string {
		return b.AskReply(ctx, chatSession(c.Chat()), c.Message().Payload)
	}))
}

func (b *Bot) reply(command string, fn func(ctx context.Context, c tele.Context) string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()
		ctx, span := b.tracer.Start(ctx, "bot."+command)
		defer span.End()

		_ = c.Notify(tele.Typing)
		return c.Send(fn(ctx, c))
	}
}

func chatSession(chat *tele.Chat) string {
	if chat == nil {
		return "telegram"
	}
	return "telegram:" + strconv.FormatInt(chat.ID, 10)
}

const helpText = `Velaris market bot
/price <coin> - price and 24h change
/whales <coin> - whale activity signals
/sentiment <coin> - AI sentiment read
/trending - trending searches
/ask <question> - ask the crypto tutor`

// resolve maps a ticker, name or id onto a coin id using the top of the market.
func (b *Bot) resolve(ctx context.Context, query string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	coins, err := b.markets.Top(ctx, listingSize)
	if err != nil {
		return "", err
	}
	for _, c := range coins {
		if c.ID == q || strings.ToLower(c.Symbol) == q || strings.ToLower(c.Name) == q {
			return c.ID, nil
		}
	}
	if domain.ValidCoinID(q) {
		return q, nil
	}
	return "", provider.ErrNotFound
}

func (b *Bot) snapshot(ctx context.Context, args []string, usage string) (domain.MarketSnapshot, string) {
	if len(args) == 0 {
		return domain.MarketSnapshot{}, usage
	}
	id, err := b.resolve(ctx, args[0])
	if err == nil {
		var snap domain.MarketSnapshot
		if snap, err = b.markets.Snapshot(ctx, id); err == nil {
			return snap, ""
		}
	}
	if errors.Is(err, provider.ErrNotFound) {
		return domain.MarketSnapshot{}, fmt.Sprintf("Unknown coin: %s", args[0])
	}
	log.Warn().Err(err).Str("coin", args[0]).Msg("bot market lookup failed")
	return domain.MarketSnapshot{}, fmt.Sprintf("Error fetching %s, try again shortly.", args[0])
}

func (b *Bot) PriceReply(ctx context.Context, args []string) string {
	snap, msg := b.snapshot(ctx, args, "Usage: /price btc")
	if msg != "" {
		return msg
	}
	return fmt.Sprintf(
		"%s (%s)\nPrice: $%s\n1h: %+.2f%%  24h: %+.2f%%  7d: %+.2f%%\n24h Volume: $%s\nMarket Cap: $%s",
		snap.Name, strings.ToUpper(snap.Symbol), formatPrice(snap.Price),
		snap.Change1h, snap.Change24h, snap.Change7d,
		compact(snap.Volume24h), compact(snap.MarketCap),
	)
}

func (b *Bot) WhalesReply(ctx context.Context, args []string) string {
	snap, msg := b.snapshot(ctx, args, "Usage: /whales eth")
	if msg != "" {
		return msg
	}
	signals := whale.DetectWithConfidence(snap, b.rules, time.Now().UTC())
	insight := whale.Insights(signals, snap.Name)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s whale watch: %s risk\n%s\n", snap.Name, strings.ToUpper(string(insight.RiskLevel)), insight.Summary)
	for _, s := range insight.Signals {
		fmt.Fprintf(&sb, "\n- %s (%.0f%% confidence)\n  %s", s.Message, s.Confidence*100, s.Indicator)
	}
	fmt.Fprintf(&sb, "\n\n%s", insight.Recommendation)
	return sb.String()
}

func (b *Bot) SentimentReply(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: /sentiment sol"
	}
	id, err := b.resolve(ctx, args[0])
	if err != nil {
		return fmt.Sprintf("Unknown coin: %s", args[0])
	}
	res, err := b.advisor.CoinSentiment(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("coin", id).Msg("bot sentiment failed")
		return "Sentiment is unavailable right now."
	}
	if !res.Available() {
		return res.Summary
	}
	return fmt.Sprintf(
		"%s: %s (%.2f)\nRisk: %s\nDriver: %s\n%s",
		id, res.Verdict, res.Score, res.RiskLevel, res.PrimaryDriver, res.Logic,
	)
}

func (b *Bot) TrendingReply(ctx context.Context) string {
	trending, err := b.markets.Trending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("bot trending failed")
		return "Trending coins are unavailable right now."
	}
	if len(trending) == 0 {
		return "Nothing is trending right now."
	}
	var sb strings.Builder
	sb.WriteString("Trending on CoinGecko")
	for i, t := range trending {
		rank := "-"
		if t.MarketCapRank > 0 {
			rank = "#" + strconv.Itoa(t.MarketCapRank)
		}
		fmt.Fprintf(&sb, "\n%d. %s (%s) %s", i+1, t.Name, strings.ToUpper(t.Symbol), rank)
	}
	return sb.String()
}

func (b *Bot) AskReply(ctx context.Context, sessionID, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return "Usage: /ask what is a stablecoin?"
	}
	answer, err := b.advisor.Ask(ctx, sessionID, question)
	switch {
	case errors.Is(err, advisor.ErrAIDisabled):
		return "AI features are disabled on this server."
	case err != nil:
		log.Warn().Err(err).Str("session", sessionID).Msg("bot ask failed")
		return "The assistant is unavailable right now."
	}
	return answer
}

func formatPrice(p float64) string {
	switch {
	case p >= 1:
		return strconv.FormatFloat(p, 'f', 2, 64)
	case p >= 0.01:
		return strconv.FormatFloat(p, 'f', 4, 64)
	default:
		return strconv.FormatFloat(p, 'g', 4, 64)
	}
}

func compact(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
