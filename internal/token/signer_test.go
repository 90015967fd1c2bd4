package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")
	raw, err := s.IssueSession(42, "user", "alice")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	claims, err := s.VerifySession(raw)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "user" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < SessionTTL-time.Minute || ttl > SessionTTL {
		t.Fatalf("unexpected session expiry in %v", ttl)
	}
}

func TestRecoveryRoundTrip(t *testing.T) {
	s := NewSigner("test-secret")
	raw, err := s.IssueRecovery(7, "deadbeef")
	if err != nil {
		t.Fatalf("IssueRecovery: %v", err)
	}
	claims, err := s.VerifyRecovery(raw)
	if err != nil {
		t.Fatalf("VerifyRecovery: %v", err)
	}
	if claims.UserID != 7 || claims.Secret != "deadbeef" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < RecoveryTTL-time.Minute || ttl > RecoveryTTL {
		t.Fatalf("unexpected recovery expiry in %v", ttl)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	raw, err := NewSigner("key-one").IssueSession(1, "user", "bob")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if _, err := NewSigner("key-two").VerifySession(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := NewSigner("test-secret")
	past := time.Now().Add(-time.Hour)
	claims := RecoveryClaims{
		UserID: 3,
		Secret: "stale",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past.Add(-RecoveryTTL)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.VerifyRecovery(raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("want ErrExpired, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSigner("test-secret")
	if _, err := s.VerifySession("not-a-token"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	claims := SessionClaims{UserID: 1, Role: "admin", Username: "eve"}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewSigner("test-secret").VerifySession(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}
