package domain

import (
	"regexp"
	"strings"
	"time"
)

// Coin is one row of the CoinGecko /coins/markets listing.
type Coin struct {
	ID                       string     `json:"id"`
	Symbol                   string     `json:"symbol"`
	Name                     string     `json:"name"`
	Image                    string     `json:"image,omitempty"`
	CurrentPrice             float64    `json:"current_price"`
	MarketCap                float64    `json:"market_cap"`
	MarketCapRank            int        `json:"market_cap_rank"`
	TotalVolume              float64    `json:"total_volume"`
	High24h                  float64    `json:"high_24h"`
	Low24h                   float64    `json:"low_24h"`
	PriceChangePercentage24h float64    `json:"price_change_percentage_24h"`
	PriceChange1hInCurrency  float64    `json:"price_change_percentage_1h_in_currency"`
	PriceChange24hInCurrency float64    `json:"price_change_percentage_24h_in_currency"`
	PriceChange7dInCurrency  float64    `json:"price_change_percentage_7d_in_currency"`
	CirculatingSupply        float64    `json:"circulating_supply"`
	TotalSupply              *float64   `json:"total_supply"`
	MaxSupply                *float64   `json:"max_supply"`
	ATH                      float64    `json:"ath"`
	ATHChangePercentage      float64    `json:"ath_change_percentage"`
	ATL                      float64    `json:"atl"`
	Sparkline                *Sparkline `json:"sparkline_in_7d,omitempty"`
	LastUpdated              time.Time  `json:"last_updated"`
}

type Sparkline struct {
	Price []float64 `json:"price"`
}

// CoinDetail is the /coins/{id} payload, trimmed to the fields the dashboard reads.
type CoinDetail struct {
	ID                           string      `json:"id"`
	Symbol                       string      `json:"symbol"`
	Name                         string      `json:"name"`
	Description                  Description `json:"description"`
	MarketCapRank                int         `json:"market_cap_rank"`
	SentimentVotesUpPercentage   float64     `json:"sentiment_votes_up_percentage"`
	SentimentVotesDownPercentage float64     `json:"sentiment_votes_down_percentage"`
	Links                        Links       `json:"links"`
	MarketData                   MarketData  `json:"market_data"`
}

type Description struct {
	En string `json:"en"`
}

type Links struct {
	Homepage []string `json:"homepage"`
}

// MarketData holds per-currency values keyed by lower-case currency code.
type MarketData struct {
	CurrentPrice                 map[string]float64 `json:"current_price"`
	MarketCap                    map[string]float64 `json:"market_cap"`
	TotalVolume                  map[string]float64 `json:"total_volume"`
	High24h                      map[string]float64 `json:"high_24h"`
	Low24h                       map[string]float64 `json:"low_24h"`
	ATH                          map[string]float64 `json:"ath"`
	ATL                          map[string]float64 `json:"atl"`
	PriceChangePercentage24h     float64            `json:"price_change_percentage_24h"`
	PriceChangePercentage7d      float64            `json:"price_change_percentage_7d"`
	PriceChangePercentage30d     float64            `json:"price_change_percentage_30d"`
	PriceChangePercentage1y      float64            `json:"price_change_percentage_1y"`
	PriceChangePercentage1hInCur map[string]float64 `json:"price_change_percentage_1h_in_currency"`
	CirculatingSupply            float64            `json:"circulating_supply"`
	TotalSupply                  *float64           `json:"total_supply"`
	MaxSupply                    *float64           `json:"max_supply"`
}

// GlobalStats is the data object of /global, plus the fear & greed index when known.
type GlobalStats struct {
	ActiveCryptocurrencies          int                `json:"active_cryptocurrencies"`
	Markets                         int                `json:"markets"`
	TotalMarketCap                  map[string]float64 `json:"total_market_cap"`
	TotalVolume                     map[string]float64 `json:"total_volume"`
	MarketCapPercentage             map[string]float64 `json:"market_cap_percentage"`
	MarketCapChangePercentage24hUSD float64            `json:"market_cap_change_percentage_24h_usd"`
	UpdatedAt                       int64              `json:"updated_at"`
	FearGreed                       *FearGreed         `json:"fear_greed,omitempty"`
}

type FearGreed struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	Timestamp      time.Time `json:"timestamp"`
}

// MarketChart is the /coins/{id}/market_chart payload: [unix_ms, value] pairs.
type MarketChart struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

type TrendingCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Score         int    `json:"score"`
}

// MarketSnapshot is the flat metric set the whale heuristic reads.
type MarketSnapshot struct {
	CoinID     string  `json:"coin_id"`
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	MarketCap  float64 `json:"market_cap"`
	Volume24h  float64 `json:"volume_24h"`
	Change1h   float64 `json:"change_1h"`
	Change24h  float64 `json:"change_24h"`
	Change7d   float64 `json:"change_7d"`
	ATH        float64 `json:"ath"`
	MarketRank int     `json:"market_rank"`
}

// SnapshotFromCoin builds a snapshot from a markets row.
func SnapshotFromCoin(c Coin) MarketSnapshot {
	change24h := c.PriceChangePercentage24h
	if change24h == 0 {
		change24h = c.PriceChange24hInCurrency
	}
	return MarketSnapshot{
		CoinID:     c.ID,
		Symbol:     strings.ToUpper(c.Symbol),
		Name:       c.Name,
		Price:      c.CurrentPrice,
		MarketCap:  c.MarketCap,
		Volume24h:  c.TotalVolume,
		Change1h:   c.PriceChange1hInCurrency,
		Change24h:  change24h,
		Change7d:   c.PriceChange7dInCurrency,
		ATH:        c.ATH,
		MarketRank: c.MarketCapRank,
	}
}

// SnapshotFromDetail builds a USD snapshot from a coin detail payload.
// Missing map entries read as zero.
func SnapshotFromDetail(d CoinDetail) MarketSnapshot {
	md := d.MarketData
	return MarketSnapshot{
		CoinID:     d.ID,
		Symbol:     strings.ToUpper(d.Symbol),
		Name:       d.Name,
		Price:      md.CurrentPrice["usd"],
		MarketCap:  md.MarketCap["usd"],
		Volume24h:  md.TotalVolume["usd"],
		Change1h:   md.PriceChangePercentage1hInCur["usd"],
		Change24h:  md.PriceChangePercentage24h,
		Change7d:   md.PriceChangePercentage7d,
		ATH:        md.ATH["usd"],
		MarketRank: d.MarketCapRank,
	}
}

var coinIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,99}$`)

// ValidCoinID reports whether id looks like a CoinGecko coin identifier.
func ValidCoinID(id string) bool {
	return coinIDPattern.MatchString(id)
}

// SupportedCurrencies lists the vs_currency values accepted by the API layer.
var SupportedCurrencies = []string{"usd", "eur", "gbp", "jpy", "btc", "eth"}

func ValidCurrency(c string) bool {
	for _, s := range SupportedCurrencies {
		if s == c {
			return true
		}
	}
	return false
}
