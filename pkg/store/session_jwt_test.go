package store

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func TestJWTSessionStoreIssueAndValidate(t *testing.T) {
	store, err := NewJWTSessionStore(testJWTSecret, time.Minute, nil)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	token, err := store.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	userID, ok, err := store.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("validate token: ok=%v err=%v", ok, err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestJWTSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Minute, nil); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestJWTSessionStoreRejectsTamperedToken(t *testing.T) {
	store, err := NewJWTSessionStore(testJWTSecret, time.Minute, nil)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	token, err := store.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if _, ok, _ := store.GetUserIDByToken(tampered); ok {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func TestJWTSessionStoreRejectsWrongSigningMethod(t *testing.T) {
	store, err := NewJWTSessionStore(testJWTSecret, time.Minute, nil)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    defaultJWTIssuer,
		Audience:  jwt.ClaimStrings{defaultJWTAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ID:        "jti-1",
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, ok, _ := store.GetUserIDByToken(token); ok {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

func TestJWTSessionStoreRejectsExpiredToken(t *testing.T) {
	store, err := NewJWTSessionStoreWithOptions(testJWTSecret, time.Minute, nil, JWTOptions{Leeway: time.Millisecond})
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	now := time.Now().UTC().Add(-time.Hour)
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    defaultJWTIssuer,
		Audience:  jwt.ClaimStrings{defaultJWTAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        "jti-expired",
	}
	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := signed.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, ok, _ := store.GetUserIDByToken(token); ok {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestJWTSessionStoreLogoutRevokes(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	store, err := NewJWTSessionStore(testJWTSecret, time.Minute, revoker)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	token, err := store.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := store.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := store.GetUserIDByToken(token); ok {
		t.Fatalf("expected revoked token to be rejected")
	}
}

func TestJWTSessionStoreRejectsForeignIssuer(t *testing.T) {
	store, err := NewJWTSessionStoreWithOptions(testJWTSecret, time.Minute, nil, JWTOptions{Issuer: "forumhub"})
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "someone-else",
		Audience:  jwt.ClaimStrings{defaultJWTAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        "jti-2",
	}
	signed := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := signed.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, ok, _ := store.GetUserIDByToken(token); ok {
		t.Fatalf("expected token from foreign issuer to be rejected")
	}
	if !strings.Contains(token, ".") {
		t.Fatalf("sanity: token should be a jwt")
	}
}
