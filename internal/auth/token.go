// Package auth validates the externally issued admin token and manages
// server-side sessions.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failures, each with a distinct caller-visible reason.
var (
	ErrTokenFileNotFound = errors.New("admin token file not found")
	ErrTokenMalformed    = errors.New("malformed admin token")
	ErrTokenDecode       = errors.New("failed to decode admin token claims")
	ErrTokenExpired      = errors.New("admin token has expired")
)

// DecodeTokenClaims extracts the claim payload from a dot-delimited bearer
// token without verifying its signature. Trust is delegated entirely to
// custody of the token file; this is the single place a future
// signature-verification step would be inserted.
func DecodeTokenClaims(raw string) (jwt.MapClaims, error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) < 2 {
		return nil, ErrTokenMalformed
	}

	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	return claims, nil
}

// TokenInfo is the decoded token metadata exposed to authenticated clients.
type TokenInfo struct {
	Subject    string     `json:"subject,omitempty"`
	Email      string     `json:"email,omitempty"`
	IssuedAt   *time.Time `json:"issued_at,omitempty"`
	AgeSeconds int64      `json:"age_seconds,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Expired    bool       `json:"expired"`
}

// TokenValidator reads and validates the admin token file. The file is
// issued and rotated externally; it is read-only here and never retried.
type TokenValidator struct {
	path   string
	logger *slog.Logger
}

// NewTokenValidator creates a validator for the token at path.
func NewTokenValidator(path string, logger *slog.Logger) *TokenValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenValidator{path: path, logger: logger}
}

func (v *TokenValidator) read() (string, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTokenFileNotFound
		}
		return "", fmt.Errorf("reading admin token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Validate reads the token file and returns its claims. An exp claim in the
// past fails with ErrTokenExpired.
func (v *TokenValidator) Validate() (jwt.MapClaims, error) {
	raw, err := v.read()
	if err != nil {
		return nil, err
	}

	claims, err := DecodeTokenClaims(raw)
	if err != nil {
		return nil, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}

// Info returns decoded metadata about the token file. Unlike Validate, an
// expired token still yields metadata, with Expired set.
func (v *TokenValidator) Info() (*TokenInfo, error) {
	raw, err := v.read()
	if err != nil {
		return nil, err
	}

	claims, err := DecodeTokenClaims(raw)
	if err != nil {
		return nil, err
	}

	info := &TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	info.Email = EmailFromClaims(claims)

	now := time.Now()
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		info.IssuedAt = &t
		info.AgeSeconds = int64(now.Sub(t).Seconds())
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
		info.Expired = t.Before(now)
	}

	return info, nil
}

// EmailFromClaims returns the best available identity string from a claim
// set: the email claim when present, otherwise the subject.
func EmailFromClaims(claims jwt.MapClaims) string {
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
