// Package token issues and verifies the signed tokens used by the account
// lifecycle: stateless session tokens and short-lived recovery carriers.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token lifetimes. Session tokens are verified by signature and expiry only;
// recovery carriers additionally require the persisted secret hash to match.
const (
	SessionTTL  = 24 * time.Hour
	RecoveryTTL = 10 * time.Minute
)

var (
	// ErrExpired indicates the token was well-formed but past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrInvalid indicates a malformed token or a bad signature.
	ErrInvalid = errors.New("token invalid")
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID   int64  `json:"userID"`
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// RecoveryClaims is the payload of a recovery carrier token. The raw secret
// travels only inside the signed token; the server keeps just its hash.
type RecoveryClaims struct {
	UserID int64  `json:"userID"`
	Secret string `json:"recoveryToken"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens with a process-wide key.
type Signer struct {
	key []byte
}

// NewSigner constructs a Signer. Rotating the key invalidates all
// outstanding tokens.
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// IssueSession returns a signed session token expiring in SessionTTL.
func (s *Signer) IssueSession(userID int64, role, username string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:   userID,
		Role:     role,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("token: sign session: %w", err)
	}
	return signed, nil
}

// IssueRecovery returns a signed carrier token embedding the raw recovery
// secret, expiring in RecoveryTTL.
func (s *Signer) IssueRecovery(userID int64, secret string) (string, error) {
	now := time.Now()
	claims := RecoveryClaims{
		UserID: userID,
		Secret: secret,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RecoveryTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("token: sign recovery: %w", err)
	}
	return signed, nil
}

// VerifySession validates signature and expiry and returns the claims.
func (s *Signer) VerifySession(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRecovery validates signature and expiry and returns the claims.
// The expiry check is a hard boundary; there is no grace period.
func (s *Signer) VerifyRecovery(raw string) (*RecoveryClaims, error) {
	claims := &RecoveryClaims{}
	if err := s.parse(raw, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Signer) parse(raw string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}
