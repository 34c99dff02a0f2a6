package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOTE_RATE_LIMIT", "")
	t.Setenv("VOTE_RATE_WINDOW", "")
	t.Setenv("REAPER_RETENTION", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("RATE_LIMIT_BACKEND", "")

	cfg := Load()
	if cfg.StoreBackend != "postgres" || cfg.RateLimitBackend != "redis" {
		t.Fatalf("unexpected backends %q/%q", cfg.StoreBackend, cfg.RateLimitBackend)
	}
	if cfg.VoteRateLimit != 5 {
		t.Fatalf("expected default limit 5, got %d", cfg.VoteRateLimit)
	}
	if cfg.VoteRateWindow != time.Minute {
		t.Fatalf("expected default window 1m, got %s", cfg.VoteRateWindow)
	}
	if cfg.ReaperRetention != 7*24*time.Hour {
		t.Fatalf("expected one week retention, got %s", cfg.ReaperRetention)
	}
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	t.Setenv("VOTE_RATE_LIMIT", "10")
	t.Setenv("VOTE_RATE_WINDOW", "30s")
	t.Setenv("VOTE_TX_TIMEOUT", "not-a-duration")
	t.Setenv("REDIS_DB", "-3")

	cfg := Load()
	if cfg.VoteRateLimit != 10 {
		t.Fatalf("expected limit 10, got %d", cfg.VoteRateLimit)
	}
	if cfg.VoteRateWindow != 30*time.Second {
		t.Fatalf("expected window 30s, got %s", cfg.VoteRateWindow)
	}
	if cfg.VoteTxTimeout != 5*time.Second {
		t.Fatalf("expected fallback tx timeout, got %s", cfg.VoteTxTimeout)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("expected fallback redis db 0, got %d", cfg.RedisDB)
	}
}
