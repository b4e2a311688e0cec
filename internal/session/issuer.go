// Package session issues and verifies the signed tokens that carry a login
// between requests. Tokens are HS256 JWTs and nothing is stored server side.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuerName = "shift-scheduler"

var (
	ErrInvalidToken     = errors.New("session: invalid token")
	ErrExpiredToken     = errors.New("session: token has expired")
	ErrInvalidAlgorithm = errors.New("session: invalid signing algorithm")
	ErrEmptySecretKey   = errors.New("session: secret key cannot be empty")
	ErrWeakSecretKey    = errors.New("session: secret key must be at least 32 characters")
	ErrInvalidDuration  = errors.New("session: duration must be positive")
)

// Claims are the JWT claims of a session token. The subject is the user id.
type Claims struct {
	Admin bool `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// Config configures an Issuer.
type Config struct {
	SecretKey string
	Duration  time.Duration
}

// Issuer signs and verifies session tokens.
type Issuer struct {
	config Config
	now    func() time.Time
}

// NewIssuer validates config and returns an Issuer that reads the wall clock.
func NewIssuer(config Config) (*Issuer, error) {
	return NewIssuerWithClock(config, time.Now)
}

// NewIssuerWithClock is NewIssuer with an injectable clock.
func NewIssuerWithClock(config Config, now func() time.Time) (*Issuer, error) {
	if config.SecretKey == "" {
		return nil, ErrEmptySecretKey
	}
	if len(config.SecretKey) < 32 {
		return nil, ErrWeakSecretKey
	}
	if config.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{config: config, now: now}, nil
}

// Issue signs a token for userID that expires after the configured duration.
func (i *Issuer) Issue(userID string, isAdmin bool) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.config.Duration).Truncate(time.Second)
	claims := &Claims{
		Admin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.config.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse validates tokenString and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidAlgorithm
		}
		return []byte(i.config.SecretKey), nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Verify returns the user id carried by a valid token.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Duration is the configured token lifetime.
func (i *Issuer) Duration() time.Duration {
	return i.config.Duration
}
