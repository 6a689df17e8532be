package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	gossh "golang.org/x/crypto/ssh"

	"velaris/internal/app"
	"velaris/internal/config"
	"velaris/internal/tui"
	"velaris/pkg/logger"
	"velaris/pkg/tracing"
)

// ctxKey is a typed context key to avoid collisions.
type ctxKey string

const fingerprintKey ctxKey = "ssh_fingerprint"

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initTracerFunc    = tracing.InitTracer
	buildCoreFunc     = app.Build
	newWishServerFunc = wish.NewServer
	setupSignalNotify = ossignal.Notify
	waitForSignalFunc = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()
	logger.Init(logger.Config{Service: "velaris-ssh", Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: "velaris-ssh",
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

	if len(cfg.SSHAuthorizedFingerprints) == 0 {
		log.Warn().Msg("SSH_AUTHORIZED_FINGERPRINTS empty, any public key may connect")
	}

	srv, err := newWishServerFunc(
		wish.WithAddress(cfg.SSHAddr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(authorizer(cfg.SSHAuthorizedFingerprints)),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				fingerprint, _ := s.Context().Value(fingerprintKey).(string)

				svc := tui.Services{
					Markets:   core.Markets,
					Rules:     core.Rules,
					SessionID: "ssh:" + fingerprint,
					Username:  s.User(),
				}
				if core.Advisor.Enabled() {
					svc.Advisor = core.Advisor
				}

				model := tui.NewAppModel(svc)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create SSH server")
	}

	if srv != nil {
		go func() {
			log.Info().Str("addr", cfg.SSHAddr).Msg("SSH server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				log.Error().Err(err).Msg("SSH server stopped")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Info().Msg("shutting down SSH server")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("SSH server shutdown error")
		}
	}

	log.Info().Msg("SSH server exited")
}

// authorizer accepts keys whose SHA256 fingerprint is listed. An empty list
// accepts every key.
func authorizer(fingerprints []string) func(ssh.Context, ssh.PublicKey) bool {
	allowed := make(map[string]bool, len(fingerprints))
	for _, fp := range fingerprints {
		if fp = strings.TrimSpace(fp); fp != "" {
			allowed[fp] = true
		}
	}
	return func(ctx ssh.Context, key ssh.PublicKey) bool {
		fingerprint := gossh.FingerprintSHA256(key)
		if len(allowed) > 0 && !allowed[fingerprint] {
			log.Warn().Str("fingerprint", fingerprint).Str("user", ctx.User()).Msg("SSH auth denied")
			return false
		}
		ctx.SetValue(fingerprintKey, fingerprint)
		log.Info().Str("fingerprint", fingerprint).Str("user", ctx.User()).Msg("SSH auth accepted")
		return true
	}
}
