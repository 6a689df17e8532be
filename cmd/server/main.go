package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"velaris/docs"
	"velaris/internal/app"
	"velaris/internal/bot"
	"velaris/internal/config"
	"velaris/internal/handler"
	"velaris/internal/job"
	"velaris/internal/notify"
	"velaris/internal/stream"
	"velaris/pkg/logger"
	"velaris/pkg/tracing"
)

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initTracerFunc         = tracing.InitTracer
	buildCoreFunc          = app.Build
	startBackgroundFunc    = func(ctx context.Context, fn func(context.Context)) { go fn(ctx) }
	startTelegramBotFunc   = func(ctx context.Context, b *bot.Bot, token string) { b.Start(ctx, token) }
	newRouterFunc          = gin.New
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Velaris API
// @version         1.0
// @description     Crypto market data, whale activity heuristics and AI market commentary.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	logger.Init(logger.Config{Service: "velaris", Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "velaris",
		Version:     cfg.ServiceVersion,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer provider")
		}
	}()

	core, err := buildCoreFunc(ctx, cfg, tracer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build components")
	}
	defer core.Close()

	hub := stream.NewHub()
	startBackgroundFunc(ctx, hub.Run)

	poller := job.NewMarketPoller(tracer, core.Markets, hub, cfg.CoinGeckoPollSecs)
	startBackgroundFunc(ctx, poller.Start)

	webhook := notify.NewWebhookSender(cfg.WhaleWebhookURL, "")
	if !webhook.Enabled() {
		log.Info().Msg("WHALE_WEBHOOK_URL not set, whale alerts will not be pushed to chat")
	}
	scanner := job.NewWhaleScanJob(tracer, core.Markets, core.Alerts, hub, webhook, core.Rules, cfg.WhaleScanSecs, cfg.WhaleScanLimit)
	startBackgroundFunc(ctx, scanner.Start)

	startTelegramBotFunc(ctx, bot.New(tracer, core.Markets, core.Advisor, core.Rules), cfg.TelegramBotToken)

	h := handler.New(tracer, core.Markets, core.Advisor, core.Alerts, core.Rules, handler.Options{
		Stream:         hub,
		APIKey:         cfg.APIKey,
		ChatRatePerMin: cfg.ChatRatePerMin,
	})

	r := newRouterFunc()
	r.Use(gin.Recovery(), handler.RequestLogger(), handler.Metrics(), otelgin.Middleware("velaris"))

	h.RegisterRoutes(r)
	docs.SwaggerInfo.Version = cfg.ServiceVersion
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
