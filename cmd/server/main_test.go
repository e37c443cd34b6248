package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apimiddleware "github.com/iho/dealsync/internal/adapter/http/middleware"
	"github.com/iho/dealsync/internal/adapter/ledgerapi"
	"github.com/iho/dealsync/internal/infrastructure/config"
)

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{
		HTTPPort:         "9090",
		HTTPReadTimeout:  5 * time.Second,
		HTTPWriteTimeout: 10 * time.Minute,
		HTTPIdleTimeout:  time.Minute,
	}

	srv := newHTTPServer(cfg, http.NotFoundHandler())

	if srv.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %s", srv.Addr)
	}
	if srv.WriteTimeout != 10*time.Minute {
		t.Fatalf("write timeout must cover a full sync run, got %s", srv.WriteTimeout)
	}
	if srv.IdleTimeout != time.Minute {
		t.Fatalf("unexpected idle timeout %s", srv.IdleTimeout)
	}
}

func TestNewLedgerClient(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	client := newLedgerClient(cfg, ledgerapi.NewStaticCredentials("token", time.Time{}), zerolog.Nop(), nil)
	if client == nil {
		t.Fatalf("expected client")
	}
}

func TestCleanupLimitersStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		cleanupLimiters(ctx, apimiddleware.NewRateLimiter(1, 1), time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("cleanup loop did not stop after cancel")
	}
}
