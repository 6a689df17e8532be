package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"velaris/internal/app"
	"velaris/internal/config"
	"velaris/internal/mcpserver"
	"velaris/pkg/logger"
	"velaris/pkg/tracing"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	buildCoreFunc  = app.Build
	runStdioFunc   = func(ctx context.Context, s *mcp.Server) error {
		return s.Run(ctx, &mcp.StdioTransport{})
	}
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
)

// logOutput keeps logs off stdout, which carries the stdio transport.
var logOutput io.Writer = os.Stderr

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	// stdout carries the protocol in stdio mode
	log.Logger = logger.New(logOutput, logger.Config{Service: "velaris-mcp", Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "velaris-mcp",
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

	server := mcpserver.New(mcpserver.Deps{
		Tracer:    tracer,
		Markets:   core.Markets,
		Sentiment: core.Advisor,
		Alerts:    core.Alerts,
		Rules:     core.Rules,
		Version:   cfg.ServiceVersion,
		Timeout:   time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})

	if cfg.MCPTransport != "http" {
		log.Info().Msg("mcp server on stdio")
		if err := runStdioFunc(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("mcp stdio session ended")
		}
		return
	}

	if cfg.MCPAuthToken == "" {
		log.Warn().Msg("MCP_AUTH_TOKEN not set, HTTP transport is unauthenticated")
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort),
		Handler:           mcpserver.HTTPHandler(server, cfg.MCPAuthToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("mcp server listening")
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Error().Err(err).Msg("mcp server shutdown error")
	}
	log.Info().Msg("mcp server exited")
}
