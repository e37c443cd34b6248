package config_test

import (
	"testing"
	"time"

	"github.com/iho/dealsync/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEDGER_ACCESS_TOKEN", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.LedgerPageSize != 100 || cfg.LedgerMaxPages != 1000 || cfg.DetailBatchSize != 5 {
		t.Fatalf("unexpected fetch defaults: page=%d pages=%d batch=%d", cfg.LedgerPageSize, cfg.LedgerMaxPages, cfg.DetailBatchSize)
	}
	if cfg.DetailBatchPause != 200*time.Millisecond || cfg.DetailLongPause != 2*time.Second || cfg.DetailLongPauseEvery != 50 {
		t.Fatalf("unexpected pause defaults: %s %s %d", cfg.DetailBatchPause, cfg.DetailLongPause, cfg.DetailLongPauseEvery)
	}
	if cfg.ReferenceCacheTTL != 30*time.Minute || cfg.ReferenceMissReload != time.Minute {
		t.Fatalf("unexpected reference cache defaults: %s %s", cfg.ReferenceCacheTTL, cfg.ReferenceMissReload)
	}
	if cfg.LedgerRateLimit != 3 || cfg.LedgerRateBurst != 5 {
		t.Fatalf("unexpected ledger throttle defaults: %v %d", cfg.LedgerRateLimit, cfg.LedgerRateBurst)
	}
	if cfg.ApplyConcurrency != 1 {
		t.Fatalf("expected sequential apply by default, got %d", cfg.ApplyConcurrency)
	}
	if !cfg.LedgerTokenExpiresAt.IsZero() {
		t.Fatalf("expected no token expiry by default, got %s", cfg.LedgerTokenExpiresAt)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("LEDGER_ACCESS_TOKEN", "token")
	t.Setenv("LEDGER_TOKEN_EXPIRES_AT", "2024-05-01T10:00:00Z")
	t.Setenv("APPLY_CONCURRENCY", "4")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}
	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}
	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}
	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if cfg.LedgerAccessToken != "token" || !cfg.LedgerTokenExpiresAt.Equal(want) {
		t.Fatalf("expected credential override, got token=%q expires=%s", cfg.LedgerAccessToken, cfg.LedgerTokenExpiresAt)
	}
	if cfg.ApplyConcurrency != 4 {
		t.Fatalf("expected apply concurrency 4, got %d", cfg.ApplyConcurrency)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("DETAIL_BATCH_PAUSE", "not-a-duration")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadInvalidExpiry(t *testing.T) {
	t.Setenv("LEDGER_TOKEN_EXPIRES_AT", "tomorrow")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid token expiry")
	}
}
