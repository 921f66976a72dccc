// Package auth issues and verifies player bearer tokens
// Compliant with GLI-19 §2.5.4: session validation before play
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/alexbotov/casino-engine/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrNoPlayer     = errors.New("token has no player")
)

// Claims is the payload of a player token. The subject is the player id.
type Claims struct {
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens
type Service struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// New creates a token service
func New(cfg config.AuthConfig) *Service {
	expiry := cfg.TokenExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// IssueToken signs a token for a player. Operators normally issue tokens
// themselves; this is used by tooling and tests.
func (s *Service) IssueToken(playerID string) (string, error) {
	if playerID == "" {
		return "", ErrNoPlayer
	}
	now := s.now().UTC()
	claims := Claims{
		SessionID: uuid.New().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token and returns its claims
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrNoPlayer
	}
	return &claims, nil
}

// PlayerID verifies a token and returns the player it was issued to
func (s *Service) PlayerID(tokenString string) (string, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
