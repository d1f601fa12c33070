package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jchen-dev/recipebox/internal/infra/config"
)

func newTestApp(address string) *App {
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:         address,
			ShutdownTimeout: time.Second,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: cfg.HTTP.Address, Handler: http.NewServeMux()}
	return NewApp(cfg, logger, server)
}

func TestApp_GracefulShutdown(t *testing.T) {
	app := newTestApp("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not shut down within the grace period")
	}
}

func TestApp_ListenFailureSurfaces(t *testing.T) {
	app := newTestApp("not-a-listen-address")

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen failure was not reported")
	}
}
