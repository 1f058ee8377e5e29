package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !CheckPassword("s3cret!", hash) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected password check to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("abc123"); err != nil {
		t.Fatalf("expected 6-char password to be accepted, got: %v", err)
	}
	if err := ValidatePassword("abc12"); err == nil {
		t.Fatalf("expected short password to fail")
	}
	if err := ValidatePassword(strings.Repeat("a", 73)); err == nil {
		t.Fatalf("expected overlong password to fail")
	}
}

func TestHashPasswordRejectsInvalid(t *testing.T) {
	if _, err := HashPassword("ab"); err == nil {
		t.Fatalf("expected hash of invalid password to fail")
	}
}
