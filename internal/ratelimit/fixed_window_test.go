package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestLimiterBlocksOverQuotaPerKey(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "forumhub:test:register", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	const attacker = "203.0.113.9"
	if !limiter.Allow(attacker) || !limiter.Allow(attacker) {
		t.Fatal("expected first two hits within quota")
	}
	if limiter.Allow(attacker) {
		t.Fatal("expected third hit blocked")
	}
	// Other clients keep their own budget.
	if !limiter.Allow("198.51.100.4") {
		t.Fatal("expected unrelated client unaffected")
	}
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "forumhub:test:login", 1, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}

	if !limiter.Allow("203.0.113.9") {
		t.Fatal("expected first hit within quota")
	}
	if limiter.Allow("203.0.113.9") {
		t.Fatal("expected second hit blocked")
	}
	srv.FastForward(2 * time.Second)
	if !limiter.Allow("203.0.113.9") {
		t.Fatal("expected quota back after the window expired")
	}
}

func TestLimiterFailsClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "forumhub:test", 5, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv.Close()
	if limiter.Allow("203.0.113.9") {
		t.Fatal("expected deny while redis is unreachable")
	}
}

func TestLimiterDeniesUnkeyableCallers(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "forumhub:test", 5, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if limiter.Allow("  ") {
		t.Fatal("expected deny for empty key")
	}
}

func TestLimiterConstructorValidation(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("", "", "forumhub:test", 1, time.Minute); err == nil {
		t.Fatal("expected error for missing redis addr")
	}
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "forumhub:test", 0, time.Minute); err == nil {
		t.Fatal("expected error for zero limit")
	}
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "forumhub:test", 1, 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}
