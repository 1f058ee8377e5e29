package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevokerExpiry(t *testing.T) {
	r := NewMemoryTokenRevoker()
	if err := r.Revoke("jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token to be revoked")
	}
	revoked, err = r.IsRevoked("jti-other")
	if err != nil {
		t.Fatalf("is revoked other: %v", err)
	}
	if revoked {
		t.Fatalf("expected unknown token to not be revoked")
	}
	if err := r.Revoke("jti-2", -time.Second); err != nil {
		t.Fatalf("revoke non-positive ttl: %v", err)
	}
	revoked, err = r.IsRevoked("jti-2")
	if err != nil {
		t.Fatalf("is revoked expired: %v", err)
	}
	if revoked {
		t.Fatalf("expected non-positive ttl revoke to be ignored")
	}
}

func TestRedisTokenRevoker(t *testing.T) {
	redis := miniredis.RunT(t)
	r := NewRedisTokenRevoker(redis.Addr(), "")
	if err := r.Revoke("jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := r.IsRevoked("jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token to be revoked")
	}
	redis.FastForward(2 * time.Minute)
	revoked, err = r.IsRevoked("jti-1")
	if err != nil {
		t.Fatalf("is revoked after expiry: %v", err)
	}
	if revoked {
		t.Fatalf("expected revocation to expire with the token")
	}
}
