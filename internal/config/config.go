package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	defaultNewsFeeds = []string{
		"https://www.coindesk.com/arc/outboundfeeds/rss/",
		"https://cointelegraph.com/rss",
	}
	defaultSubreddits = []string{"CryptoCurrency", "CryptoMarkets"}
)

type Config struct {
	HTTPPort         int
	APIKey           string
	ChatRatePerMin   int
	LogLevel         string
	LogPretty        bool
	OTelEnabled      bool
	OTelEndpoint     string
	ServiceVersion   string
	DatabaseURL      string
	RedisURL         string
	TelegramBotToken string

	CoinGeckoAPIKey   string
	CoinGeckoPollSecs int
	NewsFeeds         []string
	NewsSubreddits    []string

	WhaleRulesFile  string
	WhaleScanSecs   int
	WhaleScanLimit  int
	WhaleWebhookURL string

	MCPTransport          string
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int

	SSHAddr                   string
	SSHHostKeyPath            string
	SSHAuthorizedFingerprints []string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	AdvisorMaxHistory int
}

// Load reads the environment. Unset or invalid values fall back to defaults
// and missing optional integrations are reported as warnings.
func Load() *Config {
	cfg := &Config{
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogPretty:        envBool("LOG_PRETTY"),
		OTelEnabled:      envBool("OTEL_ENABLED"),
		OTelEndpoint:     envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceVersion:   envString("SERVICE_VERSION", "dev"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		CoinGeckoAPIKey:  strings.TrimSpace(os.Getenv("COINGECKO_API_KEY")),
		WhaleRulesFile:   strings.TrimSpace(os.Getenv("WHALE_RULES_FILE")),
		WhaleWebhookURL:  strings.TrimSpace(os.Getenv("WHALE_WEBHOOK_URL")),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
		SSHHostKeyPath:   envString("SSH_HOST_KEY_PATH", ".ssh/velaris_ed25519"),
		SSHAddr:          envString("SSH_ADDR", ":2222"),
		OpenAIModel:      envString("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
	}

	cfg.HTTPPort = envInt("HTTP_PORT", 8080)
	cfg.ChatRatePerMin = envInt("CHAT_RATE_PER_MIN", 10)
	cfg.CoinGeckoPollSecs = envInt("COINGECKO_POLL_SECS", 60)
	cfg.WhaleScanSecs = envInt("WHALE_SCAN_SECS", 300)
	cfg.WhaleScanLimit = envInt("WHALE_SCAN_LIMIT", 50)
	cfg.MCPHTTPPort = envInt("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = envInt("MCP_REQUEST_TIMEOUT_SECS", 10)
	cfg.AdvisorMaxHistory = envInt("ADVISOR_MAX_HISTORY", 20)

	cfg.NewsFeeds = envList("NEWS_FEEDS", defaultNewsFeeds)
	cfg.NewsSubreddits = envList("NEWS_SUBREDDITS", defaultSubreddits)
	cfg.SSHAuthorizedFingerprints = envList("SSH_AUTHORIZED_FINGERPRINTS", nil)

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, conversations and whale alerts kept in memory")
	}
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warn().Str("value", cfg.MCPTransport).Msg("unsupported MCP_TRANSPORT, defaulting to stdio")
		cfg.MCPTransport = "stdio"
	}
	cfg.MCPHTTPBind = envString("MCP_HTTP_BIND", "127.0.0.1")

	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, AI features will be disabled")
	}

	return cfg
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("invalid positive integer, using default")
		return def
	}
	return n
}

func envBool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}

// envList splits a comma separated variable. Blank entries are dropped.
func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
