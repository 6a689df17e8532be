package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/ssh"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	gossh "golang.org/x/crypto/ssh"

	"velaris/internal/app"
	"velaris/internal/config"
	"velaris/pkg/tracing"
)

func TestMainBootstrap(t *testing.T) {
	restore := stubSSHDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

type fakeContext struct {
	ssh.Context
	values map[interface{}]interface{}
}

func (c *fakeContext) User() string { return "alice" }

func (c *fakeContext) SetValue(key, value interface{}) { c.values[key] = value }

func newKey(t *testing.T) gossh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	key, err := gossh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("wrap key: %v", err)
	}
	return key
}

func TestAuthorizer(t *testing.T) {
	allowedKey, otherKey := newKey(t), newKey(t)
	fp := gossh.FingerprintSHA256(allowedKey)

	auth := authorizer([]string{" " + fp + " "})

	ctx := &fakeContext{values: map[interface{}]interface{}{}}
	if !auth(ctx, allowedKey) {
		t.Fatal("listed key must be accepted")
	}
	if ctx.values[fingerprintKey] != fp {
		t.Fatalf("expected fingerprint stored on the context, got %v", ctx.values[fingerprintKey])
	}
	if auth(&fakeContext{values: map[interface{}]interface{}{}}, otherKey) {
		t.Fatal("unlisted key must be rejected")
	}
}

func TestAuthorizerOpenWhenEmpty(t *testing.T) {
	if !authorizer(nil)(&fakeContext{values: map[interface{}]interface{}{}}, newKey(t)) {
		t.Fatal("an empty list must accept any key")
	}
}

func stubSSHDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitTracer := initTracerFunc
	origBuildCore := buildCoreFunc
	origNewWishServer := newWishServerFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			SSHAddr:        ":2222",
			SSHHostKeyPath: ".ssh/test_key",
		}
	}
	initTracerFunc = func(ctx context.Context, _ tracing.Config) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	buildCoreFunc = func(context.Context, *config.Config, trace.Tracer) (*app.Core, error) {
		return &app.Core{}, nil
	}
	newWishServerFunc = func(ops ...ssh.Option) (*ssh.Server, error) {
		return nil, nil
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initTracerFunc = origInitTracer
		buildCoreFunc = origBuildCore
		newWishServerFunc = origNewWishServer
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
	}
}
